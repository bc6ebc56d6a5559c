package nest

import (
	"github.com/danpasecinic/nest/internal/reflect"
)

// Key is the registry key used for the static type T.
func Key[T any]() string {
	return reflect.TypeKey[T]()
}

func KeyNamed[T any](name string) string {
	return reflect.TypeKeyNamed[T](name)
}

// Register stores value under the key of T. Use an interface type parameter
// to register an implementation behind its interface.
func Register[T any](c *Container, value T, opts ...RegisterOption) error {
	if reflect.IsNil(value) {
		return errInvalidComponent(c.Scope(), reflect.TypeKey[T](), "nil component")
	}
	return c.Register(reflect.TypeKey[T](), value, opts...)
}

func RegisterNamed[T any](c *Container, name string, value T, opts ...RegisterOption) error {
	opts = append(opts, WithName(name))
	return Register(c, value, opts...)
}

// Add stores value under the key of its dynamic type.
func Add(c *Container, value any, opts ...RegisterOption) error {
	if reflect.IsNil(value) {
		return errInvalidComponent(c.Scope(), reflect.TypeKeyFromValue(value), "nil component")
	}
	return c.Register(reflect.TypeKeyFromValue(value), value, opts...)
}

func Resolve[T any](c *Container) (T, error) {
	return resolveKey[T](c, reflect.TypeKey[T]())
}

func ResolveNamed[T any](c *Container, name string) (T, error) {
	return resolveKey[T](c, reflect.TypeKeyNamed[T](name))
}

func resolveKey[T any](c *Container, key string) (T, error) {
	var zero T

	instance, err := c.Resolve(key)
	if err != nil {
		return zero, err
	}

	typed, ok := instance.(T)
	if !ok {
		return zero, errTypeMismatch(key, reflect.TypeName[T](), instance)
	}
	return typed, nil
}

func MustResolve[T any](c *Container) T {
	v, err := Resolve[T](c)
	if err != nil {
		panic(err)
	}
	return v
}

func MustResolveNamed[T any](c *Container, name string) T {
	v, err := ResolveNamed[T](c, name)
	if err != nil {
		panic(err)
	}
	return v
}

func Has[T any](c *Container) bool {
	return c.Has(reflect.TypeKey[T]())
}

func HasNamed[T any](c *Container, name string) bool {
	return c.Has(reflect.TypeKeyNamed[T](name))
}

// All returns the components of this scope only that satisfy T, in
// registration order.
func All[T any](c *Container) []T {
	var out []T
	for _, entry := range c.entries() {
		if typed, ok := entry.Instance.(T); ok {
			out = append(out, typed)
		}
	}
	return out
}

type Optional[T any] struct {
	value   T
	present bool
}

func (o Optional[T]) Get() (T, bool) {
	return o.value, o.present
}

func (o Optional[T]) Value() T {
	return o.value
}

func (o Optional[T]) Present() bool {
	return o.present
}

func (o Optional[T]) OrElse(defaultValue T) T {
	if o.present {
		return o.value
	}
	return defaultValue
}

func (o Optional[T]) OrElseFunc(fn func() T) T {
	if o.present {
		return o.value
	}
	return fn()
}

func Some[T any](value T) Optional[T] {
	return Optional[T]{value: value, present: true}
}

func None[T any]() Optional[T] {
	return Optional[T]{}
}

// ResolveOptional never fails. A miss, a type mismatch and a stopped
// container all come back as None.
func ResolveOptional[T any](c *Container) Optional[T] {
	v, err := Resolve[T](c)
	if err != nil {
		return None[T]()
	}
	return Some(v)
}

func ResolveOptionalNamed[T any](c *Container, name string) Optional[T] {
	v, err := ResolveNamed[T](c, name)
	if err != nil {
		return None[T]()
	}
	return Some(v)
}
