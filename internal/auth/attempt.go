package auth

import (
	"context"
	"sync"

	"github.com/qumail/qumail-client/internal/auth/surface"
	"github.com/qumail/qumail-client/internal/logger"
	"github.com/qumail/qumail-client/internal/session"
	"go.uber.org/zap"
)

// Attempt is one pending login. Its result is settled exactly once.
type Attempt struct {
	id    string
	coord *Coordinator
	log   *zap.Logger
	done  chan struct{}

	mu            sync.Mutex
	state         State
	exchangeBegun bool
	surface       surface.Surface
	cancel        func()
	cred          *session.Credential
	err           error
}

func newAttempt(c *Coordinator) *Attempt {
	id := newAttemptID()
	return &Attempt{
		id:    id,
		coord: c,
		log:   attemptLogger(id, c.provider),
		done:  make(chan struct{}),
		state: StateIdle,
	}
}

// ID identifies the attempt in logs.
func (a *Attempt) ID() string {
	return a.id
}

// State returns the current state.
func (a *Attempt) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Done is closed when the attempt settles.
func (a *Attempt) Done() <-chan struct{} {
	return a.done
}

// Wait blocks until the attempt settles or ctx is done. A done ctx only stops
// the wait; the attempt keeps running.
func (a *Attempt) Wait(ctx context.Context) (*session.Credential, error) {
	select {
	case <-a.done:
		a.mu.Lock()
		defer a.mu.Unlock()
		return a.cred, a.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cancel closes the browsing surface on the user's behalf. An attempt that
// is already exchanging its code runs to completion.
func (a *Attempt) Cancel() {
	a.mu.Lock()
	sf := a.surface
	a.mu.Unlock()

	if sf == nil {
		a.abort(ErrCancelledByUser)
		return
	}
	if err := sf.Close(); err != nil {
		a.log.Warn("Failed to close browsing surface", zap.Error(err))
	}
}

func (a *Attempt) begin(cancel func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cancel = cancel
	a.state = StateAwaitingRedirect
}

func (a *Attempt) attachSurface(sf surface.Surface) {
	a.mu.Lock()
	a.surface = sf
	settled := a.state.Terminal()
	a.mu.Unlock()

	// Settled while the surface was still opening.
	if settled {
		_ = sf.Close()
	}
}

// handleNavigation is the single funnel every surface event goes through.
func (a *Attempt) handleNavigation(ctx context.Context, nav surface.Navigation) surface.Decision {
	target := a.coord.classify(nav.URL)

	a.mu.Lock()
	state := a.state

	switch target {
	case navRedirect:
		if a.exchangeBegun || state != StateAwaitingRedirect {
			a.mu.Unlock()
			a.log.Debug("Ignoring repeated redirect", zap.Stringer("kind", nav.Kind), zap.Stringer("state", state))
			return surface.Deny
		}
		a.exchangeBegun = true

		code := codeFrom(nav.URL)
		if code == "" {
			a.settleLocked(StateFailed, nil, ErrIncompleteRedirect)
			a.mu.Unlock()
			return surface.Deny
		}
		a.state = StateExchanging
		a.mu.Unlock()

		a.log.Debug("Redirect observed", zap.Stringer("kind", nav.Kind), logger.Secret("code", code))
		go a.exchange(ctx, code)
		return surface.Deny

	case navExternal:
		a.mu.Unlock()
		if state == StateAwaitingRedirect && a.coord.external != nil {
			a.log.Debug("Opening external page in the system browser", zap.String("url", nav.URL))
			if err := a.coord.external.Open(nav.URL); err != nil {
				a.log.Warn("Failed to open system browser", zap.String("url", nav.URL), zap.Error(err))
			}
		}
		return surface.Deny

	default:
		a.mu.Unlock()
		return surface.Allow
	}
}

func (a *Attempt) exchange(ctx context.Context, code string) {
	res, err := a.coord.provider.ExchangeCode(ctx, code)
	if err != nil {
		a.settle(StateFailed, nil, newExchangeError(err))
		return
	}

	cred, err := a.coord.store.Save(res.UserID, res.Email, res.Token)
	if err != nil {
		a.settle(StateFailed, nil, err)
		return
	}
	a.settle(StateSucceeded, cred, nil)
}

// watch turns surface closure and context cancellation into Cancelled while
// the attempt is still waiting for its redirect.
func (a *Attempt) watch(ctx context.Context, sf surface.Surface) {
	closed := sf.Closed()
	ctxDone := ctx.Done()
	for {
		select {
		case <-a.done:
			return
		case <-closed:
			closed = nil
			a.abort(ErrCancelledByUser)
		case <-ctxDone:
			ctxDone = nil
			a.abort(&cancelledError{cause: ctx.Err()})
		}
	}
}

func (a *Attempt) abort(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == StateIdle || a.state == StateAwaitingRedirect {
		a.settleLocked(StateCancelled, nil, err)
	}
}

func (a *Attempt) settle(state State, cred *session.Credential, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.settleLocked(state, cred, err)
}

func (a *Attempt) settleLocked(state State, cred *session.Credential, err error) {
	if a.state.Terminal() {
		return
	}
	a.state = state
	a.cred = cred
	a.err = err
	if a.cancel != nil {
		a.cancel()
	}
	close(a.done)

	if a.surface != nil {
		if closeErr := a.surface.Close(); closeErr != nil {
			a.log.Warn("Failed to close browsing surface", zap.Error(closeErr))
		}
	}

	switch state {
	case StateSucceeded:
		a.log.Info("Login succeeded", zap.Object("credential", cred))
	case StateCancelled:
		a.log.Info("Login cancelled", zap.Error(err))
	default:
		a.log.Warn("Login failed", zap.Error(err))
	}
}
