package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/qumail/qumail-client/internal/auth/constants"
	"github.com/qumail/qumail-client/internal/auth/models"
	"github.com/qumail/qumail-client/internal/requester"
	"golang.org/x/oauth2"
)

var (
	// ErrInvalidOAuthProvider is returned for a provider the backend does not federate.
	ErrInvalidOAuthProvider = errors.New("invalid OAuth provider")
	// ErrInvalidCredential is returned when the exchange response lacks a user or token.
	ErrInvalidCredential = errors.New("exchange response is missing credential fields")
)

// Provider starts a delegated login and redeems its authorization code.
type Provider interface {
	// Name is the provider segment of the backend auth routes.
	Name() string
	// InitURL is where the browsing surface starts.
	InitURL(redirectURI string) (string, error)
	// ExchangeCode trades an authorization code for a session credential.
	ExchangeCode(ctx context.Context, code string) (*models.ExchangeResult, error)
}

// Caller is the slice of the request gateway a provider needs.
type Caller interface {
	Call(ctx context.Context, operationID string, params requester.Params) (json.RawMessage, error)
	URL(operationID string, params requester.Params) (string, error)
}

// BackendProvider runs the login through the QuMail backend, which talks to
// the identity provider on the client's behalf.
type BackendProvider struct {
	info    Info
	gateway Caller
}

// NewBackendProvider creates a provider for name. Only registered providers
// are accepted.
func NewBackendProvider(name string, gateway Caller) (*BackendProvider, error) {
	info, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q (supported: %v)", ErrInvalidOAuthProvider, name, constants.SupportedProviders)
	}
	return &BackendProvider{info: info, gateway: gateway}, nil
}

func (p *BackendProvider) Name() string {
	return p.info.Name
}

// Info describes the identity provider behind this login.
func (p *BackendProvider) Info() Info {
	return p.info
}

func (p *BackendProvider) InitURL(redirectURI string) (string, error) {
	return p.gateway.URL(constants.OpInitLogin, requester.Params{
		Path:  map[string]string{"provider": p.info.Name},
		Query: url.Values{constants.RedirectURIQueryParam: []string{redirectURI}},
	})
}

func (p *BackendProvider) ExchangeCode(ctx context.Context, code string) (*models.ExchangeResult, error) {
	body, err := p.gateway.Call(ctx, constants.OpExchangeCode, requester.Params{
		Path: map[string]string{"provider": p.info.Name},
		Body: map[string]string{constants.CodeQueryParam: code},
	})
	if err != nil {
		return nil, err
	}

	var result models.ExchangeResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	if !result.Valid() {
		return nil, ErrInvalidCredential
	}
	return &result, nil
}

// Info names an identity provider and where its consent screens live.
type Info struct {
	Name        string
	DisplayName string
	Endpoint    oauth2.Endpoint
}

// ConsentHost is the host the user signs in on, shown while waiting.
func (i Info) ConsentHost() string {
	u, err := url.Parse(i.Endpoint.AuthURL)
	if err != nil {
		return ""
	}
	return u.Host
}

var registry = map[string]Info{}

func register(info Info) {
	registry[info.Name] = info
}

// Lookup returns the registered provider called name.
func Lookup(name string) (Info, bool) {
	info, ok := registry[name]
	return info, ok
}
