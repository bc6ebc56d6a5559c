package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/multierr"
)

var (
	ErrDuplicate = errors.New("component already registered")
	ErrDisposed  = errors.New("registry disposed")
)

// DisposeFunc releases one component.
type DisposeFunc func(ctx context.Context) error

type Entry struct {
	Key      string
	Instance any
	Dispose  DisposeFunc
}

// DisposeObserver is told about every disposal attempt.
type DisposeObserver func(key string, err error)

// Registry holds the live components of one scope. Insertion order is kept
// so that disposal can run in reverse.
type Registry struct {
	mu       sync.RWMutex
	entries  map[string]*Entry
	order    []string
	disposed bool
}

func New() *Registry {
	return &Registry{
		entries: make(map[string]*Entry),
	}
}

// Register stores instance under key. dispose may be nil, in which case the
// instance's own Dispose, Stop or Close method is used when it has one.
func (r *Registry) Register(key string, instance any, dispose DisposeFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.disposed {
		return fmt.Errorf("%w: cannot register %s", ErrDisposed, key)
	}
	if _, exists := r.entries[key]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicate, key)
	}

	if dispose == nil {
		dispose = disposerFor(instance)
	}

	r.entries[key] = &Entry{Key: key, Instance: instance, Dispose: dispose}
	r.order = append(r.order, key)
	return nil
}

// Lookup reports absence once the registry is disposed.
func (r *Registry) Lookup(key string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.entries[key]
	if !exists || r.disposed {
		return nil, false
	}
	return entry.Instance, true
}

func (r *Registry) Has(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.entries[key]
	return exists && !r.disposed
}

// Keys returns keys in registration order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, len(r.order))
	copy(keys, r.order)
	return keys
}

// Entries returns a snapshot in registration order, empty once disposed.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.disposed {
		return nil
	}
	entries := make([]Entry, 0, len(r.order))
	for _, key := range r.order {
		entries = append(entries, *r.entries[key])
	}
	return entries
}

func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.order)
}

func (r *Registry) Disposed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.disposed
}

// DisposeAll releases every component in reverse registration order. A
// failing component does not stop the others; all failures are combined in
// the returned error. Later calls do nothing.
func (r *Registry) DisposeAll(ctx context.Context, observers ...DisposeObserver) error {
	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		return nil
	}
	r.disposed = true
	order := make([]*Entry, len(r.order))
	for i, key := range r.order {
		order[i] = r.entries[key]
	}
	r.mu.Unlock()

	var errs error
	for i := len(order) - 1; i >= 0; i-- {
		entry := order[i]
		if entry.Dispose == nil {
			continue
		}

		err := safeDispose(ctx, entry)
		for _, observe := range observers {
			observe(entry.Key, err)
		}
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("dispose %s: %w", entry.Key, err))
		}
	}
	return errs
}

func safeDispose(ctx context.Context, entry *Entry) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return entry.Dispose(ctx)
}

type disposer interface {
	Dispose(ctx context.Context) error
}

type stopper interface {
	Stop(ctx context.Context) error
}

func disposerFor(instance any) DisposeFunc {
	switch v := instance.(type) {
	case disposer:
		return v.Dispose
	case stopper:
		return v.Stop
	case io.Closer:
		return func(context.Context) error { return v.Close() }
	default:
		return nil
	}
}
