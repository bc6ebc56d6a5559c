package benchmark

import (
	"context"
	"testing"

	"github.com/danpasecinic/nest"
	"github.com/danpasecinic/nest/config"
)

type Config struct {
	Host string
	Port int
}

type Logger struct {
	Level string
}

type Database struct {
	Config *Config
	Logger *Logger
}

type Repository struct {
	DB *Database
}

type Service struct {
	Repo   *Repository
	Logger *Logger
}

// startNest starts a hierarchy without required configuration.
func startNest(b *testing.B, exts ...nest.Extension) *nest.Hierarchy {
	b.Helper()

	h := nest.New(nest.WithExtensions(exts...), nest.WithRequiredKeys())
	if err := h.Start(context.Background(), config.NewProps(nil)); err != nil {
		b.Fatalf("start: %v", err)
	}
	return h
}
