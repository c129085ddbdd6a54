package surface

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/qumail/qumail-client/internal/logger"
	"github.com/qumail/qumail-client/internal/utils"
	"go.uber.org/zap"
)

const shutdownTimeout = 2 * time.Second

// ErrNotLoopback is returned for redirect URIs a local listener cannot serve.
var ErrNotLoopback = errors.New("redirect URI is not an http loopback address")

// Loopback is a Launcher for terminals: the login runs in the user's own
// browser and ends on a listener bound to the redirect URI's address.
type Loopback struct {
	redirect *url.URL
	opener   Opener
}

// NewLoopback validates redirectURI, which must look like
// http://127.0.0.1:<port>/<path>.
func NewLoopback(redirectURI string, opener Opener) (*Loopback, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect URI: %w", err)
	}
	if u.Scheme != "http" || u.Port() == "" {
		return nil, fmt.Errorf("%w: %s", ErrNotLoopback, redirectURI)
	}
	switch u.Hostname() {
	case "127.0.0.1", "::1", "localhost":
	default:
		return nil, fmt.Errorf("%w: %s", ErrNotLoopback, redirectURI)
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return &Loopback{redirect: u, opener: opener}, nil
}

// Launch starts the listener, then opens startURL with the opener.
func (l *Loopback) Launch(ctx context.Context, startURL string, handler Handler) (Surface, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", l.redirect.Host)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", l.redirect.Host, err)
	}

	s := &loopbackSurface{
		redirect: l.redirect,
		handler:  handler,
		closed:   make(chan struct{}),
	}
	mux := http.NewServeMux()
	mux.HandleFunc(l.redirect.Path, s.serveRedirect)
	s.srv = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Loopback listener failed", zap.Error(err))
		}
		_ = s.Close()
	}()

	logger.Debug("Loopback surface listening", zap.String("addr", ln.Addr().String()), zap.String("path", l.redirect.Path))

	if l.opener != nil {
		if err := l.opener.Open(startURL); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("failed to open browser: %w", err)
		}
	}
	return s, nil
}

type loopbackSurface struct {
	redirect *url.URL
	handler  Handler
	srv      *http.Server

	// serializes handler calls so navigations arrive in order
	mu        sync.Mutex
	closeOnce sync.Once
	closed    chan struct{}
}

func (s *loopbackSurface) serveRedirect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	target := s.redirect.Scheme + "://" + s.redirect.Host + r.URL.RequestURI()

	s.mu.Lock()
	decision := s.handler(Navigation{URL: target, Kind: Redirect})
	s.mu.Unlock()

	if decision == Allow {
		utils.WritePage(w, http.StatusNotFound, "Nothing here", "This address is only used to finish signing in to QuMail.")
		return
	}
	utils.WritePage(w, http.StatusOK, "Sign-in received", "You can close this tab and return to QuMail.")
}

// Close may run inside serveRedirect, so the server drains in the background.
func (s *loopbackSurface) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := s.srv.Shutdown(ctx); err != nil {
				logger.Debug("Loopback listener shutdown", zap.Error(err))
			}
		}()
	})
	return nil
}

func (s *loopbackSurface) Closed() <-chan struct{} {
	return s.closed
}
