package nest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// Discovery lists the installed extensions. The hierarchy asks once per
// Start and does not keep the result afterwards.
type Discovery interface {
	Extensions(ctx context.Context) ([]Extension, error)
}

type DiscoveryFunc func(ctx context.Context) ([]Extension, error)

func (f DiscoveryFunc) Extensions(ctx context.Context) ([]Extension, error) {
	return f(ctx)
}

// StaticDiscovery is a fixed, ordered table compiled into the binary.
type StaticDiscovery []Extension

func (s StaticDiscovery) Extensions(context.Context) ([]Extension, error) {
	out := make([]Extension, len(s))
	copy(out, s)
	return out, nil
}

var (
	ErrEmptyExtensionName     = errors.New("extension name is empty")
	ErrDuplicateExtension     = errors.New("extension already registered")
	ErrCatalogClosed          = errors.New("extension catalog is closed for registration")
	ErrUnknownExtension       = errors.New("unknown extension")
	ErrUnsupportedManifestKey = errors.New("unsupported manifest version")
	ErrNilManifest            = errors.New("manifest discovery needs a manifest and a source")
)

// Catalog is a registry extensions add themselves to, typically from init.
// It closes for registration the first time it is listed so that the set an
// application starts with cannot change underneath it.
type Catalog struct {
	mu     sync.RWMutex
	exts   []Extension
	names  map[string]struct{}
	closed atomic.Bool
}

func NewCatalog() *Catalog {
	return &Catalog{names: make(map[string]struct{})}
}

func (c *Catalog) Register(ext Extension) error {
	if c.closed.Load() {
		return ErrCatalogClosed
	}
	name := ext.Name()
	if name == "" {
		return ErrEmptyExtensionName
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.names[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateExtension, name)
	}
	c.names[name] = struct{}{}
	c.exts = append(c.exts, ext)
	return nil
}

func (c *Catalog) Extensions(context.Context) ([]Extension, error) {
	c.closed.Store(true)

	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Extension, len(c.exts))
	copy(out, c.exts)
	return out, nil
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.exts)
}

var defaultCatalog = NewCatalog()

// RegisterExtension adds ext to the process-wide catalog. It panics on a
// duplicate or late registration, like database/sql.Register.
func RegisterExtension(ext Extension) {
	if err := defaultCatalog.Register(ext); err != nil {
		panic(fmt.Sprintf("nest: RegisterExtension: %v", err))
	}
}

// Registered returns a snapshot of the process-wide catalog without closing it.
func Registered() []Extension {
	defaultCatalog.mu.RLock()
	defer defaultCatalog.mu.RUnlock()

	out := make([]Extension, len(defaultCatalog.exts))
	copy(out, defaultCatalog.exts)
	return out
}

// CatalogDiscovery lists what was passed to RegisterExtension.
func CatalogDiscovery() Discovery {
	return defaultCatalog
}

// Chain concatenates discoveries in order. The same name twice is an error.
func Chain(ds ...Discovery) Discovery {
	return DiscoveryFunc(func(ctx context.Context) ([]Extension, error) {
		seen := make(map[string]struct{})
		var out []Extension
		for _, d := range ds {
			exts, err := d.Extensions(ctx)
			if err != nil {
				return nil, err
			}
			for _, ext := range exts {
				if _, dup := seen[ext.Name()]; dup {
					return nil, fmt.Errorf("%w: %s", ErrDuplicateExtension, ext.Name())
				}
				seen[ext.Name()] = struct{}{}
				out = append(out, ext)
			}
		}
		return out, nil
	})
}

// Manifest selects and orders extensions by name.
//
//	version: 1
//	extensions:
//	  - name: audit
//	  - name: legacy-importer
//	    enabled: false
type Manifest struct {
	Version    int             `yaml:"version"`
	Extensions []ManifestEntry `yaml:"extensions"`
}

type ManifestEntry struct {
	Name    string `yaml:"name"`
	Enabled *bool  `yaml:"enabled"`
}

func (e ManifestEntry) enabled() bool {
	return e.Enabled == nil || *e.Enabled
}

func ParseManifest(r io.Reader) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse extension manifest: %w", err)
	}
	if m.Version == 0 {
		m.Version = 1
	}
	if m.Version != 1 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedManifestKey, m.Version)
	}
	return &m, nil
}

func LoadManifest(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open extension manifest: %w", err)
	}
	defer f.Close()
	return ParseManifest(f)
}

// ManifestDiscovery returns the enabled entries of m, in manifest order,
// taken from source. Naming an extension source does not know is an error;
// extensions the manifest does not mention are left out.
func ManifestDiscovery(m *Manifest, source Discovery) Discovery {
	return DiscoveryFunc(func(ctx context.Context) ([]Extension, error) {
		if m == nil || source == nil {
			return nil, ErrNilManifest
		}
		available, err := source.Extensions(ctx)
		if err != nil {
			return nil, err
		}

		byName := make(map[string]Extension, len(available))
		for _, ext := range available {
			byName[ext.Name()] = ext
		}

		var out []Extension
		seen := make(map[string]struct{})
		for _, entry := range m.Extensions {
			ext, ok := byName[entry.Name]
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrUnknownExtension, entry.Name)
			}
			if _, dup := seen[entry.Name]; dup {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateExtension, entry.Name)
			}
			seen[entry.Name] = struct{}{}
			if entry.enabled() {
				out = append(out, ext)
			}
		}
		return out, nil
	})
}
