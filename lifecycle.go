package nest

import (
	"context"
)

// Disposer is implemented by components that hold resources. Components may
// instead implement Stop(ctx) error or io.Closer; WithDispose overrides all
// of them.
type Disposer interface {
	Dispose(ctx context.Context) error
}

// Initializer is run once its scope has finished collecting contributions,
// before the next scope is created. It sees the container it lives in, so it
// can gather whatever extensions contributed next to it.
type Initializer interface {
	Init(ctx context.Context, c *Container) error
}

// InitFunc adapts a function to Initializer.
type InitFunc func(ctx context.Context, c *Container) error

func (f InitFunc) Init(ctx context.Context, c *Container) error {
	return f(ctx, c)
}
