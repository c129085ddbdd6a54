package app

import (
	"path/filepath"
	"testing"

	"github.com/qumail/qumail-client/internal/auth"
	"github.com/qumail/qumail-client/internal/config"
	"github.com/qumail/qumail-client/internal/requester"
	"github.com/qumail/qumail-client/internal/server"
	"github.com/qumail/qumail-client/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Backend: config.BackendConfig{BaseURL: "https://mail.example.com"},
		OAuth: config.OAuthConfig{
			Provider:    "github",
			RedirectURI: "http://127.0.0.1:53682/oauth",
		},
		Session: config.SessionConfig{
			Path:          filepath.Join(t.TempDir(), "session.json"),
			EncryptionKey: "test-secret",
		},
		Server: config.ServerConfig{Name: "QuMail", Version: "test"},
	}
}

func TestPopulate_FullGraph(t *testing.T) {
	var (
		store   session.Store
		gateway *requester.Gateway
		coord   *auth.Coordinator
		srv     *server.Server
	)
	require.NoError(t, Populate(testConfig(t), &store, &gateway, &coord, &srv))

	assert.NotNil(t, store)
	assert.NotNil(t, gateway)
	assert.Equal(t, "github", coord.Provider().Name())
	assert.Equal(t, "http://127.0.0.1:53682/oauth", coord.RedirectURI())
	assert.Equal(t, []string{"decrypt_message", "list_inbox", "send_email"}, srv.Tools())
}

func TestPopulate_StoreOnly(t *testing.T) {
	cfg := testConfig(t)
	// A bad provider only matters to commands that log in.
	cfg.OAuth.Provider = "myspace"

	var store session.Store
	require.NoError(t, Populate(cfg, &store))
	_, ok, err := store.Load()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPopulate_NoEncryptionKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.Session.EncryptionKey = ""

	var store session.Store
	err := Populate(cfg, &store)
	assert.ErrorContains(t, err, session.ErrNoEncryptionKey.Error())
}

func TestPopulate_UnknownProvider(t *testing.T) {
	cfg := testConfig(t)
	cfg.OAuth.Provider = "myspace"

	var coord *auth.Coordinator
	assert.Error(t, Populate(cfg, &coord))
}
