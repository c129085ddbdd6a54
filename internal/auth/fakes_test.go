package auth

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/qumail/qumail-client/internal/auth/models"
	"github.com/qumail/qumail-client/internal/auth/surface"
	"github.com/qumail/qumail-client/internal/session"
	"github.com/stretchr/testify/require"
)

const testBackend = "https://backend.example"

type fakeSurface struct {
	closeOnce sync.Once
	closed    chan struct{}
	closes    atomic.Int32
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{closed: make(chan struct{})}
}

func (s *fakeSurface) Close() error {
	s.closes.Add(1)
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

func (s *fakeSurface) Closed() <-chan struct{} {
	return s.closed
}

func (s *fakeSurface) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

type fakeLauncher struct {
	mu       sync.Mutex
	launches int
	startURL string
	handler  surface.Handler
	surface  *fakeSurface
	err      error
}

func (l *fakeLauncher) Launch(_ context.Context, startURL string, handler surface.Handler) (surface.Surface, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.launches++
	if l.err != nil {
		return nil, l.err
	}
	l.startURL = startURL
	l.handler = handler
	l.surface = newFakeSurface()
	return l.surface, nil
}

func (l *fakeLauncher) navigate(rawURL string, kind surface.EventKind) surface.Decision {
	l.mu.Lock()
	h := l.handler
	l.mu.Unlock()
	return h(surface.Navigation{URL: rawURL, Kind: kind})
}

func (l *fakeLauncher) current() *fakeSurface {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.surface
}

func (l *fakeLauncher) launchCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.launches
}

type fakeProvider struct {
	mu      sync.Mutex
	codes   []string
	result  *models.ExchangeResult
	err     error
	release chan struct{}
}

func (p *fakeProvider) Name() string { return "google" }

func (p *fakeProvider) InitURL(redirectURI string) (string, error) {
	return testBackend + "/auth/google/init?redirect_uri=" + url.QueryEscape(redirectURI), nil
}

func (p *fakeProvider) ExchangeCode(_ context.Context, code string) (*models.ExchangeResult, error) {
	p.mu.Lock()
	p.codes = append(p.codes, code)
	release := p.release
	p.mu.Unlock()

	if release != nil {
		<-release
	}
	if p.err != nil {
		return nil, p.err
	}
	if p.result != nil {
		return p.result, nil
	}
	return &models.ExchangeResult{UserID: "u1", Email: "a@b.com", Token: "tok"}, nil
}

func (p *fakeProvider) exchangedCodes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.codes...)
}

type recordingOpener struct {
	mu   sync.Mutex
	urls []string
}

func (o *recordingOpener) Open(u string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.urls = append(o.urls, u)
	return nil
}

func (o *recordingOpener) opened() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.urls...)
}

type readOnlyStore struct {
	session.MemoryStore
}

func (s *readOnlyStore) Save(string, string, string) (*session.Credential, error) {
	return nil, &session.StoreError{Op: "save", Path: "/ro/session.json", Cause: errors.New("read-only file system")}
}

type harness struct {
	coord    *Coordinator
	launcher *fakeLauncher
	provider *fakeProvider
	opener   *recordingOpener
	store    session.Store
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	h := &harness{
		launcher: &fakeLauncher{},
		provider: &fakeProvider{},
		opener:   &recordingOpener{},
		store:    session.NewMemoryStore(),
	}
	if opts.BackendURL == "" {
		opts.BackendURL = testBackend
	}
	h.rebuild(t, opts)
	return h
}

func (h *harness) rebuild(t *testing.T, opts Options) {
	t.Helper()
	if opts.BackendURL == "" {
		opts.BackendURL = testBackend
	}
	coord, err := NewCoordinator(h.provider, h.store, h.launcher, h.opener, opts)
	require.NoError(t, err)
	h.coord = coord
}

func waitResult(t *testing.T, a *Attempt) (*session.Credential, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	cred, err := a.Wait(ctx)
	require.NotErrorIs(t, err, context.DeadlineExceeded, "attempt did not settle")
	return cred, err
}
