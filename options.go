package nest

import (
	"go.uber.org/zap"

	"github.com/danpasecinic/nest/config"
)

type Option func(*hierarchyConfig)

// BuiltinFunc registers infrastructure the host owns at one scope. It runs
// before any extension sees that scope.
type BuiltinFunc func(c *Container) error

type hierarchyConfig struct {
	logger       *zap.Logger
	discovery    Discovery
	status       StatusReporter
	requiredKeys []string
	builtins     map[Scope][]BuiltinFunc
	onRegister   []RegisterHook
	onContribute []ContributeHook
	onDispose    []DisposeHook
	onState      []StateHook
}

func defaultConfig() *hierarchyConfig {
	return &hierarchyConfig{
		logger:       zap.NewNop(),
		discovery:    StaticDiscovery(nil),
		requiredKeys: config.DefaultRequiredKeys,
		builtins:     make(map[Scope][]BuiltinFunc),
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(cfg *hierarchyConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithDiscovery sets where extensions come from. A nil d is ignored.
func WithDiscovery(d Discovery) Option {
	return func(cfg *hierarchyConfig) {
		if d != nil {
			cfg.discovery = d
		}
	}
}

// WithExtensions is shorthand for WithDiscovery(StaticDiscovery(exts)).
func WithExtensions(exts ...Extension) Option {
	return WithDiscovery(StaticDiscovery(exts))
}

func WithStatusReporter(r StatusReporter) Option {
	return func(cfg *hierarchyConfig) {
		cfg.status = r
	}
}

// WithRequiredKeys replaces config.DefaultRequiredKeys.
func WithRequiredKeys(keys ...string) Option {
	return func(cfg *hierarchyConfig) {
		cfg.requiredKeys = keys
	}
}

func WithBuiltins(s Scope, fns ...BuiltinFunc) Option {
	return func(cfg *hierarchyConfig) {
		cfg.builtins[s] = append(cfg.builtins[s], fns...)
	}
}

func WithRegisterObserver(hook RegisterHook) Option {
	return func(cfg *hierarchyConfig) {
		cfg.onRegister = append(cfg.onRegister, hook)
	}
}

func WithContributeObserver(hook ContributeHook) Option {
	return func(cfg *hierarchyConfig) {
		cfg.onContribute = append(cfg.onContribute, hook)
	}
}

func WithDisposeObserver(hook DisposeHook) Option {
	return func(cfg *hierarchyConfig) {
		cfg.onDispose = append(cfg.onDispose, hook)
	}
}

func WithStateObserver(hook StateHook) Option {
	return func(cfg *hierarchyConfig) {
		cfg.onState = append(cfg.onState, hook)
	}
}
