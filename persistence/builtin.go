package persistence

import (
	"context"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/danpasecinic/nest"
	"github.com/danpasecinic/nest/config"
)

type Option func(*builtinConfig)

type builtinConfig struct {
	db     *sqlx.DB
	shared bool
}

// WithDB uses db instead of opening one from configuration. The hierarchy
// takes ownership: db is closed when the platform scope is disposed, or
// straight away if the Database cannot be registered.
func WithDB(db *sqlx.DB) Option {
	return func(cfg *builtinConfig) {
		cfg.db = db
		cfg.shared = false
	}
}

// WithSharedDB is WithDB for a handle the caller keeps closing itself.
func WithSharedDB(db *sqlx.DB) Option {
	return func(cfg *builtinConfig) {
		cfg.db = db
		cfg.shared = true
	}
}

// Builtin registers the Database at the container it is given, which is
// expected to be the platform scope. Pass it to nest.WithBuiltins.
func Builtin(opts ...Option) nest.BuiltinFunc {
	cfg := &builtinConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *nest.Container) error {
		logger := nest.ResolveOptional[*zap.Logger](c).OrElse(zap.NewNop())

		var db *Database
		if cfg.db != nil {
			db = New(cfg.db, logger)
		} else {
			props, err := nest.Resolve[config.Props](c)
			if err != nil {
				return err
			}
			if db, err = Open(props, logger); err != nil {
				return err
			}
		}

		if cfg.shared {
			return nest.Register(c, db, nest.WithDispose(func(context.Context) error { return nil }))
		}
		if err := nest.Register(c, db); err != nil {
			_ = db.Close()
			return err
		}
		return nil
	}
}

// Contribute returns a ContributeFunc that registers stmts as a
// ConfExtension. Use it at platform scope:
//
//	ext.At(nest.ScopePlatform, persistence.Contribute("audit", stmts...))
func Contribute(name string, stmts ...Statement) nest.ContributeFunc {
	return func(_ context.Context, c *nest.Container) error {
		return nest.RegisterNamed[ConfExtension](c, name, Statements(stmts))
	}
}
