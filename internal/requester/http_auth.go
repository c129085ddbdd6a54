package requester

import (
	"fmt"
	"net/http"

	"github.com/qumail/qumail-client/internal/auth/constants"
	"github.com/qumail/qumail-client/internal/session"
	"golang.org/x/oauth2"
)

// AuthManager handles request authentication
type AuthManager interface {
	// ApplyAuth decorates req and reports whether a credential was attached.
	ApplyAuth(req *http.Request) (bool, error)
}

// SessionAuthManager attaches the stored session token as a bearer
// credential. The store is read on every call so a login or logout is
// picked up by the next request.
type SessionAuthManager struct {
	store session.Store
}

// NewSessionAuthManager creates a new SessionAuthManager
func NewSessionAuthManager(store session.Store) *SessionAuthManager {
	return &SessionAuthManager{store: store}
}

// ApplyAuth adds the bearer header when a credential is present and leaves
// the request unauthenticated otherwise.
func (a *SessionAuthManager) ApplyAuth(req *http.Request) (bool, error) {
	cred, ok, err := a.store.Load()
	if err != nil {
		return false, fmt.Errorf("failed to load session: %w", err)
	}
	if !ok || cred.Token == "" {
		req.Header.Del(constants.AuthHeaderName)
		return false, nil
	}

	token := &oauth2.Token{
		AccessToken: cred.Token,
		TokenType:   constants.TokenType,
	}
	token.SetAuthHeader(req)
	return true, nil
}

// Clear drops the stored credential after the backend rejected it.
func (a *SessionAuthManager) Clear() error {
	return a.store.Clear()
}
