package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/qumail/qumail-client/internal/auth"
	"github.com/qumail/qumail-client/internal/auth/providers"
	"github.com/qumail/qumail-client/internal/auth/surface"
	"github.com/qumail/qumail-client/internal/config"
	"github.com/qumail/qumail-client/internal/parser"
	"github.com/qumail/qumail-client/internal/requester"
	"github.com/qumail/qumail-client/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedSurface struct {
	once   sync.Once
	closed chan struct{}
}

func (s *scriptedSurface) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

func (s *scriptedSurface) Closed() <-chan struct{} { return s.closed }

// scriptedLauncher replays navigations as soon as the surface opens.
type scriptedLauncher struct {
	startURL string
	script   []surface.Navigation
}

func (l *scriptedLauncher) Launch(_ context.Context, startURL string, handler surface.Handler) (surface.Surface, error) {
	l.startURL = startURL
	for _, nav := range l.script {
		handler(nav)
	}
	return &scriptedSurface{closed: make(chan struct{})}, nil
}

func TestLoginThenSend(t *testing.T) {
	var mu sync.Mutex
	var exchangeBodies []map[string]string
	var sendAuth string

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		switch r.URL.Path {
		case "/auth/google/callback":
			var body map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			exchangeBodies = append(exchangeBodies, body)
			_, _ = w.Write([]byte(`{"userId":"u1","email":"a@b.com","token":"tok"}`))
		case "/messages/send":
			sendAuth = r.Header.Get("Authorization")
			_, _ = w.Write([]byte(`{"status":"sent"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer backend.Close()

	routes, err := parser.NewRouteTable(parser.NewOpenAPIParser())
	require.NoError(t, err)

	store := session.NewMemoryStore(session.WithClock(func() time.Time {
		return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	}))
	cfg := &config.Config{Backend: config.BackendConfig{BaseURL: backend.URL}}
	gw := requester.NewGateway(requester.NewHTTPRequester(cfg, requester.NewSessionAuthManager(store)), routes)

	provider, err := providers.NewBackendProvider("google", gw)
	require.NoError(t, err)

	launcher := &scriptedLauncher{script: []surface.Navigation{
		{URL: backend.URL + "/auth/google/init?redirect_uri=qumail%3A%2F%2Foauth", Kind: surface.DidNavigate},
		{URL: "qumail://oauth?code=abc123", Kind: surface.WillNavigate},
		{URL: "qumail://oauth?code=abc123", Kind: surface.DidNavigate},
	}}

	coord, err := auth.NewCoordinator(provider, store, launcher, nil, auth.Options{
		RedirectURI: "qumail://oauth",
		BackendURL:  backend.URL,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	cred, err := coord.Login(ctx)
	require.NoError(t, err)

	assert.Equal(t, backend.URL+"/auth/google/init?redirect_uri=qumail%3A%2F%2Foauth", launcher.startURL)
	assert.Equal(t, "u1", cred.UserID)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), cred.IssuedAt)

	stored, ok, err := store.Load()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "u1", stored.UserID)
	assert.Equal(t, "a@b.com", stored.Email)
	assert.Equal(t, "tok", stored.Token)

	_, err = gw.SendEncryptedEmail(ctx, requester.SendRequest{To: "b@c.com", Subject: "s", Body: "b", SecurityLevel: requester.SecurityOTP})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []map[string]string{{"code": "abc123"}}, exchangeBodies)
	assert.Equal(t, "Bearer tok", sendAuth)
}

func TestFailedReloginKeepsSession(t *testing.T) {
	var mu sync.Mutex
	var callbackAuth []string

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/google/callback" {
			http.NotFound(w, r)
			return
		}
		mu.Lock()
		callbackAuth = append(callbackAuth, r.Header.Get("Authorization"))
		mu.Unlock()
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer backend.Close()

	routes, err := parser.NewRouteTable(parser.NewOpenAPIParser())
	require.NoError(t, err)

	store := session.NewMemoryStore()
	_, err = store.Save("old", "old@b.com", "oldtok")
	require.NoError(t, err)

	cfg := &config.Config{Backend: config.BackendConfig{BaseURL: backend.URL}}
	gw := requester.NewGateway(requester.NewHTTPRequester(cfg, requester.NewSessionAuthManager(store)), routes)

	provider, err := providers.NewBackendProvider("google", gw)
	require.NoError(t, err)

	launcher := &scriptedLauncher{script: []surface.Navigation{
		{URL: "qumail://oauth?code=stale", Kind: surface.WillNavigate},
	}}
	coord, err := auth.NewCoordinator(provider, store, launcher, nil, auth.Options{
		RedirectURI: "qumail://oauth",
		BackendURL:  backend.URL,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = coord.Login(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrExchangeFailed)

	var exchangeErr *auth.ExchangeError
	require.ErrorAs(t, err, &exchangeErr)
	assert.Equal(t, http.StatusUnauthorized, exchangeErr.StatusCode)

	stored, ok, err := store.Load()
	require.NoError(t, err)
	require.True(t, ok, "the existing session survives a failed login")
	assert.Equal(t, "oldtok", stored.Token)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{""}, callbackAuth)
}
