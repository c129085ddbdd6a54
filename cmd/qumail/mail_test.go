package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/qumail/qumail-client/internal/config"
	"github.com/qumail/qumail-client/internal/requester"
	"github.com/qumail/qumail-client/internal/session"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	method string
	path   string
	auth   string
	body   map[string]any
}

// useBackend points the package config at a test backend and returns the
// session store commands will read.
func useBackend(t *testing.T, handler http.HandlerFunc) session.Store {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	prevCfg, prevFormat := cfg, outputFormat
	t.Cleanup(func() { cfg, outputFormat = prevCfg, prevFormat })

	cfg = &config.Config{
		Backend: config.BackendConfig{BaseURL: srv.URL, Timeout: 5 * time.Second},
		OAuth:   config.OAuthConfig{Provider: "google", RedirectURI: "http://127.0.0.1:53682/oauth"},
		Session: config.SessionConfig{
			Path:          filepath.Join(t.TempDir(), "session.json"),
			EncryptionKey: "test-secret",
		},
	}
	outputFormat = string(formatJSON)

	store, err := session.NewStoreFromConfig(cfg)
	require.NoError(t, err)
	return store
}

func recorder(t *testing.T, status int, response string) (http.HandlerFunc, func() []recordedRequest) {
	var mu sync.Mutex
	var seen []recordedRequest
	handler := func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{method: r.Method, path: r.URL.Path, auth: r.Header.Get("Authorization")}
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			assert.NoError(t, json.Unmarshal(data, &rec.body))
		}
		mu.Lock()
		seen = append(seen, rec)
		mu.Unlock()
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}
	return handler, func() []recordedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedRequest(nil), seen...)
	}
}

func run(cmd *cobra.Command, args ...string) error {
	// A nil slice makes cobra fall back to os.Args.
	cmd.SetArgs(append([]string{}, args...))
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	return cmd.ExecuteContext(context.Background())
}

func TestSendCmd(t *testing.T) {
	handler, requests := recorder(t, http.StatusOK, `{"status":"sent"}`)
	store := useBackend(t, handler)
	_, err := store.Save("u1", "a@b.com", "tok")
	require.NoError(t, err)

	err = run(newSendCmd(), "--to", "b@c.com", "--subject", "hi", "--body", "secret", "--security-level", "pqc")
	require.NoError(t, err)

	got := requests()
	require.Len(t, got, 1)
	assert.Equal(t, http.MethodPost, got[0].method)
	assert.Equal(t, "/messages/send", got[0].path)
	assert.Equal(t, "Bearer tok", got[0].auth)
	assert.Equal(t, map[string]any{
		"to":             "b@c.com",
		"subject":        "hi",
		"body":           "secret",
		"security_level": float64(3),
	}, got[0].body)
}

func TestSendCmd_NumericSecurityLevel(t *testing.T) {
	handler, requests := recorder(t, http.StatusOK, `{}`)
	useBackend(t, handler)

	require.NoError(t, run(newSendCmd(), "--to", "b@c.com", "--security-level", "7"))

	got := requests()
	require.Len(t, got, 1)
	assert.Equal(t, float64(7), got[0].body["security_level"])
	assert.Empty(t, got[0].auth, "no session, no credential")
}

func TestSendCmd_InvalidSecurityLevel(t *testing.T) {
	handler, requests := recorder(t, http.StatusOK, `{}`)
	useBackend(t, handler)

	err := run(newSendCmd(), "--to", "b@c.com", "--security-level", "quantum-ish")
	assert.ErrorContains(t, err, "invalid security level")
	assert.Empty(t, requests(), "nothing is sent")
}

func TestSendCmd_RequiresRecipient(t *testing.T) {
	handler, requests := recorder(t, http.StatusOK, `{}`)
	useBackend(t, handler)

	assert.Error(t, run(newSendCmd(), "--subject", "hi"))
	assert.Empty(t, requests())
}

func TestInboxCmd_Unauthorized(t *testing.T) {
	handler, _ := recorder(t, http.StatusUnauthorized, `{"error":"no session"}`)
	useBackend(t, handler)

	err := run(newInboxCmd())
	require.Error(t, err)
	assert.ErrorIs(t, err, requester.ErrUnauthenticated)
	assert.Contains(t, err.Error(), "run `qumail login`")
	assert.NotContains(t, err.Error(), "cleared")
}

func TestDecryptCmd(t *testing.T) {
	handler, requests := recorder(t, http.StatusOK, `{"body":"plain"}`)
	store := useBackend(t, handler)
	_, err := store.Save("u1", "a@b.com", "tok")
	require.NoError(t, err)

	require.NoError(t, run(newDecryptCmd(), "m-42"))

	got := requests()
	require.Len(t, got, 1)
	assert.Equal(t, "/messages/m-42/decrypt", got[0].path)
	assert.Equal(t, "Bearer tok", got[0].auth)

	assert.Error(t, run(newDecryptCmd()), "a message id is required")
}
