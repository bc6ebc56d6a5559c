package config

import (
	"sort"
	"strconv"
	"strings"
)

// Props is a read-only set of configuration properties.
type Props struct {
	values map[string]string
}

// NewProps copies values; later changes to the map are not seen.
func NewProps(values map[string]string) Props {
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return Props{values: copied}
}

// Value returns the raw value and whether the key is set at all.
func (p Props) Value(key string) (string, bool) {
	v, ok := p.values[key]
	return v, ok
}

func (p Props) Get(key, fallback string) string {
	if v, ok := p.values[key]; ok && strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}

func (p Props) Int(key string, fallback int) int {
	v, ok := p.values[key]
	if !ok {
		return fallback
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return i
}

func (p Props) Bool(key string, fallback bool) bool {
	v, ok := p.values[key]
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return b
}

// Has reports whether key is set to a non-blank value.
func (p Props) Has(key string) bool {
	v, ok := p.values[key]
	return ok && strings.TrimSpace(v) != ""
}

// Missing returns the keys that are absent or blank, in argument order.
func (p Props) Missing(keys ...string) []string {
	var missing []string
	for _, k := range keys {
		if !p.Has(k) {
			missing = append(missing, k)
		}
	}
	return missing
}

// Keys returns every key, sorted.
func (p Props) Keys() []string {
	keys := make([]string, 0, len(p.values))
	for k := range p.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (p Props) Len() int {
	return len(p.values)
}

// With returns a copy of p with the given overrides applied.
func (p Props) With(overrides map[string]string) Props {
	merged := make(map[string]string, len(p.values)+len(overrides))
	for k, v := range p.values {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return Props{values: merged}
}

// Without returns a copy of p with the given keys removed.
func (p Props) Without(keys ...string) Props {
	next := NewProps(p.values)
	for _, k := range keys {
		delete(next.values, k)
	}
	return next
}
