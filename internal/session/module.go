package session

import (
	"github.com/qumail/qumail-client/internal/config"
	"go.uber.org/fx"
)

// NewStoreFromConfig builds the file-backed store described by cfg.
func NewStoreFromConfig(cfg *config.Config) (*FileStore, error) {
	sealer, err := NewSealer(cfg.Session.EncryptionKey, cfg.Session.AllowPlaintext)
	if err != nil {
		return nil, err
	}
	return NewFileStore(cfg.Session.Path, sealer)
}

// Module provides the session store
var Module = fx.Module("session",
	fx.Provide(
		fx.Annotate(
			NewStoreFromConfig,
			fx.As(new(Store)),
		),
	),
)
