package reflect

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

type marker interface {
	Mark() string
}

type widget struct {
	Name string
}

func (w *widget) Mark() string { return w.Name }

func TestTypeKey_Distinct(t *testing.T) {
	t.Parallel()

	keys := []string{
		TypeKey[int](),
		TypeKey[string](),
		TypeKey[*widget](),
		TypeKey[widget](),
		TypeKey[[]string](),
		TypeKey[[3]int](),
		TypeKey[[4]int](),
		TypeKey[map[string]int](),
		TypeKey[marker](),
		TypeKey[context.Context](),
		TypeKey[<-chan int](),
		TypeKey[chan int](),
		TypeKey[func() error](),
	}

	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		assert.NotEmpty(t, k)
		assert.False(t, seen[k], "duplicate key %s", k)
		seen[k] = true
	}
}

func TestTypeKey_InterfaceKeepsStaticType(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "context.Context", TypeKey[context.Context]())
	assert.Equal(t, "io.Closer", TypeKey[io.Closer]())
	assert.Contains(t, TypeKey[marker](), "internal/reflect.marker")
}

func TestTypeKeyFromValue(t *testing.T) {
	t.Parallel()

	var m marker = &widget{Name: "a"}
	assert.Equal(t, TypeKey[*widget](), TypeKeyFromValue(m))
	assert.Equal(t, "<nil>", TypeKeyFromValue(nil))
	assert.Equal(t, "[3]int", TypeKeyFromValue([3]int{}))
}

func TestNamed(t *testing.T) {
	t.Parallel()

	assert.Equal(t, TypeKey[*widget](), Named(TypeKey[*widget](), ""))
	assert.Equal(t, TypeKey[*widget]()+"#primary", TypeKeyNamed[*widget]("primary"))
}

func TestTypeName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "*reflect.widget", TypeName[*widget]())
	assert.Equal(t, "context.Context", TypeName[context.Context]())
}

func TestIsNil(t *testing.T) {
	t.Parallel()

	var w *widget
	var m marker
	assert.True(t, IsNil(nil))
	assert.True(t, IsNil(w))
	assert.True(t, IsNil(m))
	assert.False(t, IsNil(&widget{}))
	assert.False(t, IsNil(0))
}
