package nest

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/danpasecinic/nest/internal/reflect"
	"github.com/danpasecinic/nest/internal/registry"
)

type ContainerState int32

const (
	ContainerDetached ContainerState = iota
	ContainerAttached
	ContainerDisposed
)

func (s ContainerState) String() string {
	switch s {
	case ContainerDetached:
		return "detached"
	case ContainerAttached:
		return "attached"
	case ContainerDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// Container is one scope of the hierarchy. It owns its components and keeps
// a non-owning reference to the container of the enclosing scope. Lookups
// that miss locally continue in the parent, so the innermost registration of
// a key wins.
type Container struct {
	id         string
	scope      Scope
	parent     *Container
	registry   *registry.Registry
	state      atomic.Int32
	sealed     atomic.Bool
	onRegister []RegisterHook
}

// NewContainer creates a detached container. The parent, when given, must be
// of an enclosing scope.
func NewContainer(s Scope, parent *Container) (*Container, error) {
	if !s.Valid() {
		return nil, errInvalidComponent(s, "", "unknown scope")
	}
	if parent != nil && !parent.scope.Outer(s) {
		return nil, errInvalidComponent(s, "", "parent must be an enclosing scope, got "+parent.scope.String())
	}
	return newContainer(s, parent, nil), nil
}

func newContainer(s Scope, parent *Container, onRegister []RegisterHook) *Container {
	return &Container{
		id:         uuid.NewString(),
		scope:      s,
		parent:     parent,
		registry:   registry.New(),
		onRegister: onRegister,
	}
}

func (c *Container) ID() string {
	return c.id
}

func (c *Container) Scope() Scope {
	return c.scope
}

// Parent returns nil for the outermost container.
func (c *Container) Parent() *Container {
	return c.parent
}

func (c *Container) State() ContainerState {
	return ContainerState(c.state.Load())
}

// Start marks the container attached. It has no effect once disposed.
func (c *Container) Start() {
	c.state.CompareAndSwap(int32(ContainerDetached), int32(ContainerAttached))
}

// Stop marks the container detached without releasing anything.
func (c *Container) Stop() {
	c.state.CompareAndSwap(int32(ContainerAttached), int32(ContainerDetached))
}

type RegisterOption func(*registerConfig)

type registerConfig struct {
	name    string
	dispose registry.DisposeFunc
}

// WithName registers under a named variant of the key, so several instances
// of one type can live in the same scope.
func WithName(name string) RegisterOption {
	return func(cfg *registerConfig) {
		cfg.name = name
	}
}

// WithDispose replaces whatever release method the instance has.
func WithDispose(fn func(ctx context.Context) error) RegisterOption {
	return func(cfg *registerConfig) {
		cfg.dispose = fn
	}
}

// Register adds instance to this scope only. Ancestors are not consulted, so
// registering a key an enclosing scope already holds shadows it.
func (c *Container) Register(key string, instance any, opts ...RegisterOption) error {
	cfg := &registerConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	key = reflect.Named(key, cfg.name)

	if key == "" {
		return errInvalidComponent(c.scope, key, "empty component key")
	}
	if instance == nil {
		return errInvalidComponent(c.scope, key, "nil component")
	}

	if c.State() == ContainerDisposed {
		return errContainerStopped(c.scope, key)
	}
	if c.sealed.Load() {
		return errScopeSealed(c.scope, key)
	}

	if err := c.registry.Register(key, instance, cfg.dispose); err != nil {
		if errors.Is(err, registry.ErrDisposed) {
			return errContainerStopped(c.scope, key)
		}
		return errDuplicateRegistration(c.scope, key, err)
	}

	for _, hook := range c.onRegister {
		hook(c.scope, key)
	}
	return nil
}

// Seal closes the container for registration. The hierarchy seals each scope
// once its contributions and initializers have run.
func (c *Container) Seal() {
	c.sealed.Store(true)
}

func (c *Container) Sealed() bool {
	return c.sealed.Load()
}

// Resolve looks key up here and then in every enclosing scope.
func (c *Container) Resolve(key string) (any, error) {
	for cur := c; cur != nil; cur = cur.parent {
		if cur.State() == ContainerDisposed {
			return nil, errContainerStopped(cur.scope, key)
		}
		if instance, ok := cur.registry.Lookup(key); ok {
			return instance, nil
		}
	}
	return nil, errComponentNotFound(key)
}

// ResolveOptional is Resolve without the error: a miss or a stopped
// container both report absence.
func (c *Container) ResolveOptional(key string) (any, bool) {
	instance, err := c.Resolve(key)
	if err != nil {
		return nil, false
	}
	return instance, true
}

// Lookup checks this scope only. A disposed container holds nothing.
func (c *Container) Lookup(key string) (any, bool) {
	if c.State() == ContainerDisposed {
		return nil, false
	}
	return c.registry.Lookup(key)
}

// Owner returns the innermost container, starting here, that holds key.
// The search ends at the first disposed container.
func (c *Container) Owner(key string) (*Container, bool) {
	for cur := c; cur != nil; cur = cur.parent {
		if cur.State() == ContainerDisposed {
			return nil, false
		}
		if cur.registry.Has(key) {
			return cur, true
		}
	}
	return nil, false
}

func (c *Container) Has(key string) bool {
	_, ok := c.Owner(key)
	return ok
}

// Keys returns this scope's keys in registration order.
func (c *Container) Keys() []string {
	return c.registry.Keys()
}

func (c *Container) Size() int {
	return c.registry.Size()
}

// Chain returns this container followed by its ancestors.
func (c *Container) Chain() []*Container {
	var chain []*Container
	for cur := c; cur != nil; cur = cur.parent {
		chain = append(chain, cur)
	}
	return chain
}

func (c *Container) entries() []registry.Entry {
	if c.State() == ContainerDisposed {
		return nil
	}
	return c.registry.Entries()
}

func (c *Container) dispose(ctx context.Context, hooks []DisposeHook) error {
	c.state.Store(int32(ContainerDisposed))
	return c.registry.DisposeAll(ctx, func(key string, err error) {
		for _, hook := range hooks {
			hook(c.scope, key, err)
		}
	})
}
