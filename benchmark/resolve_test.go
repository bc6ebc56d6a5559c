package benchmark

import (
	"context"
	"testing"

	"github.com/samber/do/v2"
	"go.uber.org/dig"
	"go.uber.org/fx"

	"github.com/danpasecinic/nest"
)

func BenchmarkResolve_Local_Nest(b *testing.B) {
	ext := nest.NewExtension("bench")
	nest.ProvideAt(ext, nest.ScopeTask, &Config{Host: "localhost", Port: 8080})
	h := startNest(b, ext)
	leaf := h.ComponentContainer()

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = nest.Resolve[*Config](leaf)
	}
	b.StopTimer()
	_ = h.Stop(context.Background())
}

func BenchmarkResolve_Local_Do(b *testing.B) {
	injector := do.New()
	do.ProvideValue(injector, &Config{Host: "localhost", Port: 8080})
	_ = do.MustInvoke[*Config](injector)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = do.MustInvoke[*Config](injector)
	}
}

func BenchmarkResolve_Local_Dig(b *testing.B) {
	c := dig.New()
	_ = c.Provide(func() *Config { return &Config{Host: "localhost", Port: 8080} })
	_ = c.Invoke(func(*Config) {})

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = c.Invoke(func(*Config) {})
	}
}

func BenchmarkResolve_Local_Fx(b *testing.B) {
	var cfg *Config
	app := fx.New(
		fx.NopLogger,
		fx.Provide(func() *Config { return &Config{Host: "localhost", Port: 8080} }),
		fx.Populate(&cfg),
	)
	ctx := context.Background()
	_ = app.Start(ctx)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = cfg
	}
	_ = app.Stop(ctx)
}

// The Depth4 scenario registers at the outermost of four nested scopes and
// resolves from the innermost.

func BenchmarkResolve_Depth4_Nest(b *testing.B) {
	ext := nest.NewExtension("bench")
	nest.ProvideAt(ext, nest.ScopePlatform, &Config{Host: "localhost", Port: 8080})
	h := startNest(b, ext)
	leaf := h.ComponentContainer()

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = nest.Resolve[*Config](leaf)
	}
	b.StopTimer()
	_ = h.Stop(context.Background())
}

func BenchmarkResolve_Depth4_Do(b *testing.B) {
	root := do.New()
	do.ProvideValue(root, &Config{Host: "localhost", Port: 8080})
	task := root.Scope("core-extension").Scope("process").Scope("task")
	_ = do.MustInvoke[*Config](task)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = do.MustInvoke[*Config](task)
	}
}

func BenchmarkResolve_Depth4_Dig(b *testing.B) {
	c := dig.New()
	_ = c.Provide(func() *Config { return &Config{Host: "localhost", Port: 8080} })
	task := c.Scope("core-extension").Scope("process").Scope("task")
	_ = task.Invoke(func(*Config) {})

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = task.Invoke(func(*Config) {})
	}
}

func BenchmarkResolve_Chain_Nest(b *testing.B) {
	ext := nest.NewExtension("bench")
	nest.ProvideAt(ext, nest.ScopePlatform, &Config{Host: "localhost", Port: 8080})
	nest.ProvideAt(ext, nest.ScopePlatform, &Logger{Level: "info"})
	nest.ProvideFuncAt(ext, nest.ScopeCoreExtension, func(_ context.Context, c *nest.Container) (*Database, error) {
		return &Database{Config: nest.MustResolve[*Config](c), Logger: nest.MustResolve[*Logger](c)}, nil
	})
	nest.ProvideFuncAt(ext, nest.ScopeProcess, func(_ context.Context, c *nest.Container) (*Repository, error) {
		return &Repository{DB: nest.MustResolve[*Database](c)}, nil
	})
	nest.ProvideFuncAt(ext, nest.ScopeTask, func(_ context.Context, c *nest.Container) (*Service, error) {
		return &Service{Repo: nest.MustResolve[*Repository](c), Logger: nest.MustResolve[*Logger](c)}, nil
	})
	h := startNest(b, ext)
	leaf := h.ComponentContainer()

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = nest.Resolve[*Service](leaf)
	}
	b.StopTimer()
	_ = h.Stop(context.Background())
}

func BenchmarkResolve_Chain_Do(b *testing.B) {
	injector := do.New()
	do.ProvideValue(injector, &Config{Host: "localhost", Port: 8080})
	do.ProvideValue(injector, &Logger{Level: "info"})
	do.Provide(injector, func(i do.Injector) (*Database, error) {
		return &Database{Config: do.MustInvoke[*Config](i), Logger: do.MustInvoke[*Logger](i)}, nil
	})
	do.Provide(injector, func(i do.Injector) (*Repository, error) {
		return &Repository{DB: do.MustInvoke[*Database](i)}, nil
	})
	do.Provide(injector, func(i do.Injector) (*Service, error) {
		return &Service{Repo: do.MustInvoke[*Repository](i), Logger: do.MustInvoke[*Logger](i)}, nil
	})
	_ = do.MustInvoke[*Service](injector)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = do.MustInvoke[*Service](injector)
	}
}

func BenchmarkResolve_Chain_Dig(b *testing.B) {
	c := dig.New()
	_ = c.Provide(func() *Config { return &Config{Host: "localhost", Port: 8080} })
	_ = c.Provide(func() *Logger { return &Logger{Level: "info"} })
	_ = c.Provide(func(cfg *Config, log *Logger) *Database { return &Database{Config: cfg, Logger: log} })
	_ = c.Provide(func(db *Database) *Repository { return &Repository{DB: db} })
	_ = c.Provide(func(r *Repository, log *Logger) *Service { return &Service{Repo: r, Logger: log} })
	_ = c.Invoke(func(*Service) {})

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = c.Invoke(func(*Service) {})
	}
}
