package nesttest

import (
	"context"

	"github.com/danpasecinic/nest"
	"github.com/danpasecinic/nest/config"
	"github.com/danpasecinic/nest/internal/reflect"
)

type TB interface {
	Helper()
	Fatal(args ...any)
	Fatalf(format string, args ...any)
	Errorf(format string, args ...any)
	Cleanup(f func())
	TempDir() string
}

// TestHierarchy collects options until RequireStart builds the hierarchy,
// and stops it when the test ends.
type TestHierarchy struct {
	tb   TB
	opts []nest.Option
	h    *nest.Hierarchy
}

func New(tb TB, opts ...nest.Option) *TestHierarchy {
	tb.Helper()

	th := &TestHierarchy{
		tb:   tb,
		opts: append([]nest.Option(nil), opts...),
	}

	tb.Cleanup(func() {
		if th.h == nil {
			return
		}
		if err := th.h.Stop(context.Background()); err != nil {
			tb.Errorf("failed to stop hierarchy: %v", err)
		}
	})

	return th
}

// Props returns configuration that satisfies config.DefaultRequiredKeys,
// with paths under a per-test temporary directory.
func Props(tb TB, overrides map[string]string) config.Props {
	tb.Helper()

	dir := tb.TempDir()
	values := map[string]string{
		config.PathHome:         dir,
		config.PathData:         dir + "/data",
		config.PathTemp:         dir + "/temp",
		config.DatabaseURL:      "postgres://localhost:5432/nest?sslmode=disable",
		config.DatabaseUsername: "nest",
		config.DatabasePassword: "nest",
	}
	for k, v := range overrides {
		values[k] = v
	}
	return config.NewProps(values)
}

func (th *TestHierarchy) With(opts ...nest.Option) *TestHierarchy {
	th.tb.Helper()

	if th.h != nil {
		th.tb.Fatal("options added after start")
	}
	th.opts = append(th.opts, opts...)
	return th
}

func (th *TestHierarchy) RequireStart(ctx context.Context, props config.Props) *nest.Hierarchy {
	th.tb.Helper()

	if th.h != nil {
		th.tb.Fatal("hierarchy already started")
	}
	th.h = nest.New(th.opts...)
	if err := th.h.Start(ctx, props); err != nil {
		th.tb.Fatalf("failed to start hierarchy: %v", err)
	}
	return th.h
}

func (th *TestHierarchy) RequireStop(ctx context.Context) {
	th.tb.Helper()

	if err := th.Hierarchy().Stop(ctx); err != nil {
		th.tb.Fatalf("failed to stop hierarchy: %v", err)
	}
}

func (th *TestHierarchy) Hierarchy() *nest.Hierarchy {
	th.tb.Helper()

	if th.h == nil {
		th.tb.Fatal("hierarchy not started")
	}
	return th.h
}

// Leaf is the task container.
func (th *TestHierarchy) Leaf() *nest.Container {
	th.tb.Helper()
	return th.Hierarchy().ComponentContainer()
}

// Override registers value at s ahead of every extension. Overriding at a
// scope inside the one an extension contributes to shadows that component.
func Override[T any](th *TestHierarchy, s nest.Scope, value T) {
	th.tb.Helper()

	th.With(nest.WithBuiltins(s, func(c *nest.Container) error {
		return nest.Register(c, value)
	}))
}

func OverrideNamed[T any](th *TestHierarchy, s nest.Scope, name string, value T) {
	th.tb.Helper()

	th.With(nest.WithBuiltins(s, func(c *nest.Container) error {
		return nest.RegisterNamed(c, name, value)
	}))
}

func AssertHas[T any](th *TestHierarchy) {
	th.tb.Helper()

	if !nest.Has[T](th.Leaf()) {
		th.tb.Fatalf("expected hierarchy to have %s", reflect.TypeKey[T]())
	}
}

func AssertNotHas[T any](th *TestHierarchy) {
	th.tb.Helper()

	if nest.Has[T](th.Leaf()) {
		th.tb.Fatalf("expected hierarchy to not have %s", reflect.TypeKey[T]())
	}
}

// AssertOwnedBy checks that T resolves from the container of scope s.
func AssertOwnedBy[T any](th *TestHierarchy, s nest.Scope) {
	th.tb.Helper()

	key := reflect.TypeKey[T]()
	owner, ok := th.Leaf().Owner(key)
	if !ok {
		th.tb.Fatalf("expected hierarchy to have %s", key)
		return
	}
	if owner.Scope() != s {
		th.tb.Fatalf("expected %s at %s scope, resolved from %s", key, s, owner.Scope())
	}
}

func MustResolve[T any](th *TestHierarchy) T {
	th.tb.Helper()

	v, err := nest.Resolve[T](th.Leaf())
	if err != nil {
		th.tb.Fatalf("failed to resolve %s: %v", reflect.TypeKey[T](), err)
	}
	return v
}

func MustResolveNamed[T any](th *TestHierarchy, name string) T {
	th.tb.Helper()

	v, err := nest.ResolveNamed[T](th.Leaf(), name)
	if err != nil {
		th.tb.Fatalf("failed to resolve %s: %v", reflect.TypeKeyNamed[T](name), err)
	}
	return v
}
