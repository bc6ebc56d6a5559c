package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultEnvPrefix selects which process environment variables are read.
const DefaultEnvPrefix = "NEST_"

type LoadOptions struct {
	// YAMLFile is an optional properties file; nested maps become dotted keys.
	YAMLFile string
	// EnvFiles are .env files; missing files are skipped.
	EnvFiles []string
	// EnvPrefix filters the process environment. Empty means DefaultEnvPrefix;
	// "-" disables environment lookup.
	EnvPrefix string
	// Overrides win over every other source.
	Overrides map[string]string
}

// Load merges, lowest to highest precedence: Defaults, the YAML file, the
// .env files, the prefixed process environment and Overrides.
func Load(opts LoadOptions) (Props, error) {
	values := make(map[string]string, len(Defaults))
	for k, v := range Defaults {
		values[k] = v
	}

	if opts.YAMLFile != "" {
		fromYAML, err := readYAML(opts.YAMLFile)
		if err != nil {
			return Props{}, err
		}
		for k, v := range fromYAML {
			values[k] = v
		}
	}

	prefix := opts.EnvPrefix
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}

	for _, file := range opts.EnvFiles {
		env, err := godotenv.Read(file)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return Props{}, fmt.Errorf("read env file %s: %w", file, err)
		}
		for k, v := range env {
			values[EnvToKey(k, prefix)] = v
		}
	}

	if prefix != "-" {
		for _, kv := range os.Environ() {
			name, value, ok := strings.Cut(kv, "=")
			if !ok || !strings.HasPrefix(name, prefix) {
				continue
			}
			values[EnvToKey(name, prefix)] = value
		}
	}

	for k, v := range opts.Overrides {
		values[k] = v
	}

	return Props{values: values}, nil
}

// EnvToKey maps NEST_PATH_HOME to path.home. Names without the prefix are
// lowered and dotted as well, so plain .env entries work too.
func EnvToKey(name, prefix string) string {
	if prefix != "-" {
		name = strings.TrimPrefix(name, prefix)
	}
	return strings.ToLower(strings.ReplaceAll(name, "_", "."))
}

func readYAML(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	flat := make(map[string]string)
	flatten("", doc, flat)
	return flat, nil
}

func flatten(prefix string, node map[string]any, out map[string]string) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}

		switch typed := v.(type) {
		case map[string]any:
			flatten(key, typed, out)
		case nil:
			out[key] = ""
		case []any:
			parts := make([]string, len(typed))
			for i, item := range typed {
				parts[i] = fmt.Sprint(item)
			}
			out[key] = strings.Join(parts, ",")
		default:
			out[key] = fmt.Sprint(typed)
		}
	}
}
