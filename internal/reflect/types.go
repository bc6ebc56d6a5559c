package reflect

import (
	"reflect"
	"strconv"
	"sync"
)

// NameSeparator joins a type key and a registration name.
const NameSeparator = "#"

var keyCache sync.Map

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// TypeKey returns the registry key for the static type T. Interface types
// keep their own identity instead of collapsing to a dynamic type.
func TypeKey[T any]() string {
	return keyFor(typeOf[T]())
}

func TypeKeyNamed[T any](name string) string {
	return Named(TypeKey[T](), name)
}

// TypeKeyFromValue keys v by its dynamic type.
func TypeKeyFromValue(v any) string {
	if v == nil {
		return "<nil>"
	}
	return keyFor(reflect.TypeOf(v))
}

func Named(key, name string) string {
	if name == "" {
		return key
	}
	return key + NameSeparator + name
}

func keyFor(t reflect.Type) string {
	if cached, ok := keyCache.Load(t); ok {
		return cached.(string)
	}
	key := buildKey(t)
	keyCache.Store(t, key)
	return key
}

func buildKey(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Ptr:
		return "*" + buildKey(t.Elem())
	case reflect.Slice:
		return "[]" + buildKey(t.Elem())
	case reflect.Array:
		return "[" + strconv.Itoa(t.Len()) + "]" + buildKey(t.Elem())
	case reflect.Map:
		return "map[" + buildKey(t.Key()) + "]" + buildKey(t.Elem())
	case reflect.Chan:
		switch t.ChanDir() {
		case reflect.RecvDir:
			return "<-chan " + buildKey(t.Elem())
		case reflect.SendDir:
			return "chan<- " + buildKey(t.Elem())
		default:
			return "chan " + buildKey(t.Elem())
		}
	default:
		if t.Name() == "" {
			return t.String()
		}
		if t.PkgPath() != "" {
			return t.PkgPath() + "." + t.Name()
		}
		return t.Name()
	}
}

// TypeName is the short, human readable form of T used in error messages.
func TypeName[T any]() string {
	return typeOf[T]().String()
}

func IsNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return rv.IsNil()
	default:
		return false
	}
}
