// Package app composes the client's modules into an fx container.
package app

import (
	"fmt"

	"github.com/qumail/qumail-client/internal/auth"
	"github.com/qumail/qumail-client/internal/config"
	"github.com/qumail/qumail-client/internal/logger"
	"github.com/qumail/qumail-client/internal/parser"
	"github.com/qumail/qumail-client/internal/requester"
	"github.com/qumail/qumail-client/internal/server"
	"github.com/qumail/qumail-client/internal/session"
	"github.com/spf13/pflag"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

// Modules provides every component the commands draw from. Constructors run
// lazily, so a command only builds what it populates.
var Modules = fx.Options(
	session.Module,
	requester.Module,
	parser.Module,
	auth.Module,
	server.Module,
)

// Bootstrap loads configuration and initializes the global logger.
func Bootstrap(flags *pflag.FlagSet) (*config.Config, error) {
	cfg, err := config.Load(flags)
	if err != nil {
		return nil, err
	}
	if err := logger.InitLogger(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}

// Populate builds the graph for cfg and fills targets, which are pointers to
// provided types such as *auth.Coordinator or *session.Store.
func Populate(cfg *config.Config, targets ...any) error {
	app := fx.New(
		fx.Supply(cfg),
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.GetLogger()}
		}),
		Modules,
		fx.Populate(targets...),
	)
	return app.Err()
}
