// Package auth drives the delegated login: it opens a browsing surface on the
// backend's login route, waits for the redirect that carries the
// authorization code, redeems the code and stores the resulting session.
package auth

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/qumail/qumail-client/internal/auth/constants"
	"github.com/qumail/qumail-client/internal/auth/providers"
	"github.com/qumail/qumail-client/internal/auth/surface"
	"github.com/qumail/qumail-client/internal/logger"
	"github.com/qumail/qumail-client/internal/session"
	"go.uber.org/zap"
)

// Options tunes a Coordinator.
type Options struct {
	// RedirectURI ends the login. Defaults to constants.DefaultRedirectURI.
	RedirectURI string
	// BackendURL is the backend base URL. Navigations to its host stay in
	// the surface.
	BackendURL string
	// Timeout bounds each attempt. Zero waits until the surface is closed.
	Timeout time.Duration
}

// Coordinator runs one login attempt at a time.
type Coordinator struct {
	provider    providers.Provider
	store       session.Store
	launcher    surface.Launcher
	external    surface.Opener
	redirectURI string
	backend     *url.URL
	timeout     time.Duration

	mu      sync.Mutex
	current *Attempt
}

// NewCoordinator creates a Coordinator. external receives navigations that
// leave the backend; it may be nil, in which case they are only blocked.
func NewCoordinator(provider providers.Provider, store session.Store, launcher surface.Launcher, external surface.Opener, opts Options) (*Coordinator, error) {
	redirectURI := opts.RedirectURI
	if redirectURI == "" {
		redirectURI = constants.DefaultRedirectURI
	}
	if u, err := url.Parse(redirectURI); err != nil || u.Scheme == "" {
		return nil, fmt.Errorf("invalid redirect URI %q", redirectURI)
	}

	backend, err := url.Parse(opts.BackendURL)
	if err != nil || backend.Host == "" {
		return nil, fmt.Errorf("invalid backend URL %q", opts.BackendURL)
	}

	return &Coordinator{
		provider:    provider,
		store:       store,
		launcher:    launcher,
		external:    external,
		redirectURI: redirectURI,
		backend:     backend,
		timeout:     opts.Timeout,
	}, nil
}

// RedirectURI returns the URI prefix that completes a login.
func (c *Coordinator) RedirectURI() string {
	return c.redirectURI
}

// Provider returns the identity provider logins go through.
func (c *Coordinator) Provider() providers.Provider {
	return c.provider
}

// StartLogin opens the browsing surface and returns the running attempt.
// The attempt lives as long as ctx: cancelling ctx before the redirect
// arrives cancels the attempt as if the surface had been closed.
func (c *Coordinator) StartLogin(ctx context.Context) (*Attempt, error) {
	c.mu.Lock()
	if c.current != nil && !c.current.State().Terminal() {
		c.mu.Unlock()
		return nil, ErrLoginInProgress
	}
	a := newAttempt(c)
	c.current = a
	c.mu.Unlock()

	initURL, err := c.provider.InitURL(c.redirectURI)
	if err != nil {
		a.settle(StateFailed, nil, err)
		return nil, fmt.Errorf("failed to build login URL: %w", err)
	}

	var attemptCtx context.Context
	var cancel context.CancelFunc
	if c.timeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, c.timeout)
	} else {
		attemptCtx, cancel = context.WithCancel(ctx)
	}
	// The exchange outlives the attempt context: once the code is in hand
	// the backend round trip is bounded by the HTTP client timeout.
	exchangeCtx := context.WithoutCancel(attemptCtx)

	a.begin(cancel)
	if err := attemptCtx.Err(); err != nil {
		cancelled := &cancelledError{cause: err}
		a.settle(StateCancelled, nil, cancelled)
		return nil, cancelled
	}
	a.log.Info("Starting login", zap.String("redirect_uri", c.redirectURI))

	sf, err := c.launcher.Launch(attemptCtx, initURL, func(nav surface.Navigation) surface.Decision {
		return a.handleNavigation(exchangeCtx, nav)
	})
	if err != nil {
		a.settle(StateFailed, nil, err)
		return nil, fmt.Errorf("failed to open browsing surface: %w", err)
	}
	a.attachSurface(sf)

	go a.watch(attemptCtx, sf)
	return a, nil
}

// Login runs a complete attempt and blocks until it settles.
func (c *Coordinator) Login(ctx context.Context) (*session.Credential, error) {
	a, err := c.StartLogin(ctx)
	if err != nil {
		return nil, err
	}
	// ctx already bounds the attempt; waiting on it too would return before
	// the surface is torn down.
	return a.Wait(context.WithoutCancel(ctx))
}

type navTarget int

const (
	navOwn navTarget = iota
	navRedirect
	navExternal
)

// classify answers "is this URL ours?" for both the redirect check and the
// external-browser check.
func (c *Coordinator) classify(raw string) navTarget {
	if c.isRedirect(raw) {
		return navRedirect
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return navOwn
	}
	if strings.EqualFold(u.Host, c.backend.Host) {
		return navOwn
	}
	return navExternal
}

func (c *Coordinator) isRedirect(raw string) bool {
	if !strings.HasPrefix(raw, c.redirectURI) {
		return false
	}
	rest := raw[len(c.redirectURI):]
	if rest == "" || strings.HasSuffix(c.redirectURI, "/") || strings.HasSuffix(c.redirectURI, "?") {
		return true
	}
	switch rest[0] {
	case '?', '#', '/', '&':
		return true
	}
	return false
}

func codeFrom(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Query().Get(constants.CodeQueryParam)
}

func newAttemptID() string {
	return uuid.NewString()
}

func attemptLogger(id string, provider providers.Provider) *zap.Logger {
	return logger.With(zap.String("attempt_id", id), zap.String("provider", provider.Name()))
}
