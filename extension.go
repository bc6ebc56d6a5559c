package nest

import (
	"context"
	"fmt"
)

// Extension contributes components to the scopes it declares. The container
// it receives in Contribute is the only registration surface it gets for that
// scope; enclosing scopes are readable through Resolve but closed for
// registration.
type Extension interface {
	Name() string
	ContributesAt(s Scope) bool
	Contribute(ctx context.Context, s Scope, c *Container) error
}

// Dependent is implemented by extensions that must contribute after other
// extensions, identified by name, at every scope they share.
type Dependent interface {
	DependsOn() []string
}

type ContributeFunc func(ctx context.Context, c *Container) error

// ExtensionBuilder is an Extension assembled from per-scope functions.
type ExtensionBuilder struct {
	name      string
	scopes    map[Scope][]ContributeFunc
	dependsOn []string
}

func NewExtension(name string) *ExtensionBuilder {
	return &ExtensionBuilder{
		name:   name,
		scopes: make(map[Scope][]ContributeFunc),
	}
}

func (e *ExtensionBuilder) Name() string {
	return e.name
}

// At adds fn to the contributions made at s. Several functions at the same
// scope run in the order they were added.
func (e *ExtensionBuilder) At(s Scope, fn ContributeFunc) *ExtensionBuilder {
	e.scopes[s] = append(e.scopes[s], fn)
	return e
}

func (e *ExtensionBuilder) DependsOn(names ...string) *ExtensionBuilder {
	e.dependsOn = append(e.dependsOn, names...)
	return e
}

func (e *ExtensionBuilder) Dependencies() []string {
	deps := make([]string, len(e.dependsOn))
	copy(deps, e.dependsOn)
	return deps
}

func (e *ExtensionBuilder) ContributesAt(s Scope) bool {
	return len(e.scopes[s]) > 0
}

func (e *ExtensionBuilder) Contribute(ctx context.Context, s Scope, c *Container) error {
	for i, fn := range e.scopes[s] {
		if err := fn(ctx, c); err != nil {
			if len(e.scopes[s]) > 1 {
				return fmt.Errorf("contribution %d: %w", i+1, err)
			}
			return err
		}
	}
	return nil
}

// ProvideAt registers a fixed value of type T at s.
func ProvideAt[T any](e *ExtensionBuilder, s Scope, value T, opts ...RegisterOption) *ExtensionBuilder {
	return e.At(s, func(_ context.Context, c *Container) error {
		return Register(c, value, opts...)
	})
}

// ProvideFuncAt registers the result of fn at s. fn runs during the
// contribution phase and may resolve components of enclosing scopes.
func ProvideFuncAt[T any](
	e *ExtensionBuilder,
	s Scope,
	fn func(ctx context.Context, c *Container) (T, error),
	opts ...RegisterOption,
) *ExtensionBuilder {
	return e.At(s, func(ctx context.Context, c *Container) error {
		v, err := fn(ctx, c)
		if err != nil {
			return err
		}
		return Register(c, v, opts...)
	})
}

func dependenciesOf(ext Extension) []string {
	switch d := ext.(type) {
	case *ExtensionBuilder:
		return d.Dependencies()
	case Dependent:
		return d.DependsOn()
	default:
		return nil
	}
}
