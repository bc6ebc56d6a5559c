package benchmark

import (
	"fmt"
	"testing"

	"github.com/samber/do/v2"
	"go.uber.org/dig"

	"github.com/danpasecinic/nest"
)

func BenchmarkRegister_Simple_Nest(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		c, _ := nest.NewContainer(nest.ScopeTask, nil)
		_ = nest.Register(c, &Config{Host: "localhost", Port: 8080})
	}
}

func BenchmarkRegister_Simple_Do(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		injector := do.New()
		do.ProvideValue(injector, &Config{Host: "localhost", Port: 8080})
	}
}

func BenchmarkRegister_Simple_Dig(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		c := dig.New()
		_ = c.Provide(func() *Config { return &Config{Host: "localhost", Port: 8080} })
	}
}

var names = func() []string {
	out := make([]string, 10)
	for i := range out {
		out[i] = fmt.Sprintf("cfg_%d", i)
	}
	return out
}()

func BenchmarkNamed_10_Nest(b *testing.B) {
	c, _ := nest.NewContainer(nest.ScopeTask, nil)
	for i, name := range names {
		_ = nest.RegisterNamed(c, name, &Config{Port: i})
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		for _, name := range names {
			_, _ = nest.ResolveNamed[*Config](c, name)
		}
	}
}

func BenchmarkNamed_10_Do(b *testing.B) {
	injector := do.New()
	for i, name := range names {
		do.ProvideNamedValue(injector, name, &Config{Port: i})
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		for _, name := range names {
			_ = do.MustInvokeNamed[*Config](injector, name)
		}
	}
}

func BenchmarkNamed_10_Dig(b *testing.B) {
	c := dig.New()
	for i, name := range names {
		idx := i
		_ = c.Provide(func() *Config { return &Config{Port: idx} }, dig.Name(name))
	}

	type params struct {
		dig.In
		Cfg0 *Config `name:"cfg_0"`
		Cfg9 *Config `name:"cfg_9"`
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = c.Invoke(func(params) {})
	}
}
