package nest_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danpasecinic/nest"
	"github.com/danpasecinic/nest/nesttest"
)

type namedExtension struct {
	name string
	deps []string
}

func (e namedExtension) Name() string                  { return e.name }
func (e namedExtension) ContributesAt(nest.Scope) bool { return false }
func (e namedExtension) DependsOn() []string           { return e.deps }
func (e namedExtension) Contribute(context.Context, nest.Scope, *nest.Container) error {
	return nil
}

func names(exts []nest.Extension) []string {
	out := make([]string, len(exts))
	for i, ext := range exts {
		out[i] = ext.Name()
	}
	return out
}

func catalogNames(t *testing.T, h *nest.Hierarchy) []string {
	t.Helper()
	return nest.MustResolve[*nest.ExtensionCatalog](h.ComponentContainer()).Names()
}

func TestStaticDiscoveryKeepsOrder(t *testing.T) {
	t.Parallel()

	d := nest.StaticDiscovery{namedExtension{name: "b"}, namedExtension{name: "a"}}
	exts, err := d.Extensions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, names(exts))
}

func TestCatalog(t *testing.T) {
	t.Parallel()

	c := nest.NewCatalog()
	require.NoError(t, c.Register(namedExtension{name: "a"}))
	require.NoError(t, c.Register(namedExtension{name: "b"}))

	assert.ErrorIs(t, c.Register(namedExtension{name: "a"}), nest.ErrDuplicateExtension)
	assert.ErrorIs(t, c.Register(namedExtension{}), nest.ErrEmptyExtensionName)
	assert.Equal(t, 2, c.Len())

	exts, err := c.Extensions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names(exts))

	assert.ErrorIs(t, c.Register(namedExtension{name: "late"}), nest.ErrCatalogClosed)
}

func TestChainRejectsDuplicates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	first := nest.StaticDiscovery{namedExtension{name: "a"}}
	second := nest.StaticDiscovery{namedExtension{name: "b"}}

	exts, err := nest.Chain(first, second).Extensions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names(exts))

	_, err = nest.Chain(first, first).Extensions(ctx)
	assert.ErrorIs(t, err, nest.ErrDuplicateExtension)

	boom := nest.DiscoveryFunc(func(context.Context) ([]nest.Extension, error) {
		return nil, errors.New("scan failed")
	})
	_, err = nest.Chain(first, boom).Extensions(ctx)
	assert.EqualError(t, err, "scan failed")
}

const manifest = `
version: 1
extensions:
  - name: c
  - name: a
  - name: b
    enabled: false
`

func TestManifestDiscovery(t *testing.T) {
	t.Parallel()

	m, err := nest.ParseManifest(strings.NewReader(manifest))
	require.NoError(t, err)

	source := nest.StaticDiscovery{
		namedExtension{name: "a"},
		namedExtension{name: "b"},
		namedExtension{name: "c"},
		namedExtension{name: "d"},
	}

	exts, err := nest.ManifestDiscovery(m, source).Extensions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, names(exts))
}

func TestManifestErrors(t *testing.T) {
	t.Parallel()

	_, err := nest.ParseManifest(strings.NewReader("version: 2\n"))
	assert.ErrorIs(t, err, nest.ErrUnsupportedManifestKey)

	_, err = nest.ParseManifest(strings.NewReader("extensions:\n  - nme: a\n"))
	assert.Error(t, err, "unknown fields are rejected")

	m, err := nest.ParseManifest(strings.NewReader("extensions:\n  - name: ghost\n"))
	require.NoError(t, err)
	_, err = nest.ManifestDiscovery(m, nest.StaticDiscovery{}).Extensions(context.Background())
	assert.ErrorIs(t, err, nest.ErrUnknownExtension)

	_, err = nest.LoadManifest("testdata/does-not-exist.yaml")
	assert.Error(t, err)
}

func TestNilDiscoveryArguments(t *testing.T) {
	t.Parallel()

	_, err := nest.ManifestDiscovery(nil, nest.StaticDiscovery{}).Extensions(context.Background())
	assert.ErrorIs(t, err, nest.ErrNilManifest)

	m, err := nest.ParseManifest(strings.NewReader(""))
	require.NoError(t, err)
	h := newHierarchy(t, nest.WithDiscovery(nest.ManifestDiscovery(m, nil)))
	err = h.Start(context.Background(), nesttest.Props(t, nil))
	assert.True(t, nest.IsExtensionLoad(err))
	assert.ErrorIs(t, err, nest.ErrNilManifest)

	h = newHierarchy(t, nest.WithExtensions(markerExtension()), nest.WithDiscovery(nil))
	require.NoError(t, h.Start(context.Background(), nesttest.Props(t, nil)))
	assert.True(t, nest.Has[*Marker](h.ComponentContainer()))
	require.NoError(t, h.Stop(context.Background()))
}

func TestEmptyManifest(t *testing.T) {
	t.Parallel()

	m, err := nest.ParseManifest(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, 1, m.Version)
	assert.Empty(t, m.Extensions)
}

func TestDependsOnReordersMinimally(t *testing.T) {
	t.Parallel()

	h := newHierarchy(t, nest.WithExtensions(
		namedExtension{name: "reporting", deps: []string{"storage"}},
		namedExtension{name: "audit"},
		namedExtension{name: "storage"},
	))
	require.NoError(t, h.Start(context.Background(), nesttest.Props(t, nil)))
	t.Cleanup(func() { _ = h.Stop(context.Background()) })

	assert.Equal(t, []string{"audit", "storage", "reporting"}, catalogNames(t, h))
}

func TestBuilderDependsOn(t *testing.T) {
	t.Parallel()

	var order []string
	record := func(name string) nest.ContributeFunc {
		return func(context.Context, *nest.Container) error {
			order = append(order, name)
			return nil
		}
	}

	late := nest.NewExtension("late").DependsOn("early").At(nest.ScopeTask, record("late"))
	early := nest.NewExtension("early").At(nest.ScopeTask, record("early"))

	h := newHierarchy(t, nest.WithExtensions(late, early))
	require.NoError(t, h.Start(context.Background(), nesttest.Props(t, nil)))
	t.Cleanup(func() { _ = h.Stop(context.Background()) })

	assert.Equal(t, []string{"early", "late"}, order)
}

func TestOrderingFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		exts []nest.Extension
	}{
		{
			name: "unknown dependency",
			exts: []nest.Extension{namedExtension{name: "a", deps: []string{"ghost"}}},
		},
		{
			name: "cycle",
			exts: []nest.Extension{
				namedExtension{name: "a", deps: []string{"b"}},
				namedExtension{name: "b", deps: []string{"a"}},
			},
		},
		{
			name: "duplicate name",
			exts: []nest.Extension{namedExtension{name: "a"}, namedExtension{name: "a"}},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHierarchy(t, nest.WithExtensions(tt.exts...))
			err := h.Start(context.Background(), nesttest.Props(t, nil))
			assert.True(t, nest.IsExtensionLoad(err), "got %v", err)
			assert.Nil(t, h.ComponentContainer())
		})
	}
}

func TestDiscoveryFailureIsExtensionLoad(t *testing.T) {
	t.Parallel()

	d := nest.DiscoveryFunc(func(context.Context) ([]nest.Extension, error) {
		return nil, errors.New("plugin directory unreadable")
	})

	h := newHierarchy(t, nest.WithDiscovery(d))
	err := h.Start(context.Background(), nesttest.Props(t, nil))
	assert.True(t, nest.IsExtensionLoad(err))
	assert.Contains(t, err.Error(), "plugin directory unreadable")
	assert.Equal(t, nest.StateNotStarted, h.State())
}

func TestDiscoveryRunsOncePerStart(t *testing.T) {
	t.Parallel()

	calls := 0
	d := nest.DiscoveryFunc(func(context.Context) ([]nest.Extension, error) {
		calls++
		return []nest.Extension{markerExtension()}, nil
	})

	h := newHierarchy(t, nest.WithDiscovery(d))
	require.NoError(t, h.Start(context.Background(), nesttest.Props(t, nil)))
	require.NoError(t, h.Stop(context.Background()))
	assert.Equal(t, 1, calls)
}
