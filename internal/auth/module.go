package auth

import (
	"os"

	"github.com/qumail/qumail-client/internal/auth/providers"
	"github.com/qumail/qumail-client/internal/auth/surface"
	"github.com/qumail/qumail-client/internal/config"
	"github.com/qumail/qumail-client/internal/requester"
	"github.com/qumail/qumail-client/internal/session"
	"go.uber.org/fx"
)

// NewProviderFromConfig selects the configured identity provider.
func NewProviderFromConfig(cfg *config.Config, gateway *requester.Gateway) (*providers.BackendProvider, error) {
	return providers.NewBackendProvider(cfg.OAuth.Provider, gateway)
}

// NewOpenerFromConfig returns the system browser, or prints URLs when
// oauth.open_browser is off.
func NewOpenerFromConfig(cfg *config.Config) surface.Opener {
	if !cfg.OAuth.OpenBrowser {
		return &surface.ManualOpener{Out: os.Stderr}
	}
	return surface.NewSystemBrowser()
}

// NewLauncherFromConfig returns the loopback surface for the configured
// redirect URI.
func NewLauncherFromConfig(cfg *config.Config, opener surface.Opener) (surface.Launcher, error) {
	return surface.NewLoopback(cfg.OAuth.RedirectURI, opener)
}

// NewCoordinatorFromConfig wires a Coordinator from configuration.
func NewCoordinatorFromConfig(cfg *config.Config, provider providers.Provider, store session.Store, launcher surface.Launcher, opener surface.Opener) (*Coordinator, error) {
	return NewCoordinator(provider, store, launcher, opener, Options{
		RedirectURI: cfg.OAuth.RedirectURI,
		BackendURL:  cfg.Backend.BaseURL,
		Timeout:     cfg.OAuth.Timeout,
	})
}

// Module provides the login coordinator
var Module = fx.Module("auth",
	fx.Provide(
		fx.Annotate(
			NewProviderFromConfig,
			fx.As(new(providers.Provider)),
		),
		NewOpenerFromConfig,
		NewLauncherFromConfig,
		NewCoordinatorFromConfig,
	),
)
