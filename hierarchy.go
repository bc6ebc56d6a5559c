package nest

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/danpasecinic/nest/config"
	"github.com/danpasecinic/nest/internal/graph"
)

type State int32

const (
	StateNotStarted State = iota
	StateStarting
	StateStarted
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not-started"
	case StateStarting:
		return "starting"
	case StateStarted:
		return "started"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Hierarchy builds the four nested scopes, lets every discovered extension
// contribute to them and tears them down again. A Hierarchy starts at most
// once; build a new one to start again after Stop.
type Hierarchy struct {
	cfg    *hierarchyConfig
	logger *zap.Logger
	status StatusReporter

	lifecycle sync.Mutex

	mu         sync.RWMutex
	state      State
	containers []*Container
	leaf       *Container
}

func New(opts ...Option) *Hierarchy {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	status := cfg.status
	if status == nil {
		status = NewStatusFlag()
	}

	return &Hierarchy{
		cfg:    cfg,
		logger: cfg.logger.Named("nest"),
		status: status,
	}
}

func (h *Hierarchy) State() State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

// ComponentContainer returns the innermost (task) container, or nil if the
// hierarchy has never started successfully. After Stop it is still returned,
// but every lookup through it fails with ErrCodeContainerStopped.
func (h *Hierarchy) ComponentContainer() *Container {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.leaf
}

// Container returns the container of scope s, or nil if it does not exist.
func (h *Hierarchy) Container(s Scope) *Container {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if !s.Valid() || int(s) >= len(h.containers) {
		return nil
	}
	return h.containers[s]
}

// Containers returns the containers from outermost to innermost.
func (h *Hierarchy) Containers() []*Container {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]*Container, len(h.containers))
	copy(out, h.containers)
	return out
}

func (h *Hierarchy) StatusReporter() StatusReporter {
	return h.status
}

// Start builds every scope outermost first. It fails at once when the
// hierarchy is not in StateNotStarted, including calls made by contributions
// or initializers while it is starting.
func (h *Hierarchy) Start(ctx context.Context, props config.Props) error {
	if state := h.State(); state != StateNotStarted {
		return errIllegalTransition(state, "start")
	}

	h.lifecycle.Lock()
	defer h.lifecycle.Unlock()

	if state := h.State(); state != StateNotStarted {
		return errIllegalTransition(state, "start")
	}

	if missing := props.Missing(h.cfg.requiredKeys...); len(missing) > 0 {
		h.logger.Error("refusing to start", zap.Strings("missing", missing))
		return errInvalidConfiguration(missing)
	}

	started := time.Now()
	h.setState(StateStarting)
	h.status.SetStatus(StatusStarting)

	exts, err := h.discover(ctx)
	if err != nil {
		h.abort(ctx, nil, err)
		return err
	}

	created := make([]*Container, 0, Depth)
	var parent *Container
	for _, s := range Scopes() {
		c := newContainer(s, parent, h.cfg.onRegister)
		c.Start()
		created = append(created, c)

		if err := h.buildScope(ctx, c, props, exts); err != nil {
			h.abort(ctx, created, err)
			return err
		}
		parent = c
	}

	h.mu.Lock()
	h.containers = created
	h.leaf = parent
	h.mu.Unlock()

	h.setState(StateStarted)
	h.status.SetStatus(StatusUp)
	h.logger.Info("hierarchy started",
		zap.Int("extensions", len(exts)),
		zap.Duration("took", time.Since(started)),
	)
	return nil
}

func (h *Hierarchy) discover(ctx context.Context) ([]Extension, error) {
	exts, err := h.cfg.discovery.Extensions(ctx)
	if err != nil {
		return nil, errDiscoveryFailed(err)
	}
	return orderExtensions(exts)
}

// orderExtensions keeps discovery order except where DependsOn requires an
// extension to move after another.
func orderExtensions(exts []Extension) ([]Extension, error) {
	g := graph.New()
	byName := make(map[string]Extension, len(exts))
	for _, ext := range exts {
		name := ext.Name()
		if name == "" {
			return nil, errDiscoveryFailed(ErrEmptyExtensionName)
		}
		if _, dup := byName[name]; dup {
			return nil, errExtensionLoad(name, Scope(-1), ErrDuplicateExtension)
		}
		byName[name] = ext
		g.AddNode(name, dependenciesOf(ext))
	}

	if missing := g.Missing(); len(missing) > 0 {
		for _, name := range g.IDs() {
			if deps, ok := missing[name]; ok {
				return nil, errExtensionLoad(name, Scope(-1),
					fmt.Errorf("%w: depends on %v", ErrUnknownExtension, deps))
			}
		}
	}

	order, err := g.StableOrder()
	if err != nil {
		name := ""
		cycle := g.FindCycle()
		if len(cycle) > 0 {
			name = cycle[0]
		}
		return nil, errExtensionLoad(name, Scope(-1), fmt.Errorf("%w: %v", err, cycle))
	}

	out := make([]Extension, 0, len(order))
	for _, name := range order {
		out = append(out, byName[name])
	}
	return out, nil
}

func (h *Hierarchy) buildScope(ctx context.Context, c *Container, props config.Props, exts []Extension) error {
	s := c.Scope()

	if err := ctx.Err(); err != nil {
		return errStartupFailed(s, "scope", err)
	}

	if err := h.registerBuiltins(c, props, exts); err != nil {
		return err
	}

	for _, ext := range exts {
		if !ext.ContributesAt(s) {
			continue
		}
		if err := h.contribute(ctx, ext, c); err != nil {
			return err
		}
	}

	for _, entry := range c.entries() {
		initializer, ok := entry.Instance.(Initializer)
		if !ok {
			continue
		}
		if err := initializer.Init(ctx, c); err != nil {
			return errStartupFailed(s, "component "+entry.Key, err).WithComponent(entry.Key)
		}
	}

	c.Seal()
	h.logger.Debug("scope ready", zap.Stringer("scope", s), zap.Int("components", c.Size()))
	return nil
}

func (h *Hierarchy) registerBuiltins(c *Container, props config.Props, exts []Extension) error {
	s := c.Scope()

	var err error
	switch s {
	case ScopePlatform:
		err = multierr.Combine(
			Register(c, props),
			Register(c, h.cfg.logger),
			Register(c, h.status),
		)
	case ScopeCoreExtension:
		err = Register(c, newExtensionCatalog(exts))
	}
	if err != nil {
		return errStartupFailed(s, "built-in components", err)
	}

	for _, fn := range h.cfg.builtins[s] {
		if err := fn(c); err != nil {
			return errStartupFailed(s, "host components", err)
		}
	}
	return nil
}

func (h *Hierarchy) contribute(ctx context.Context, ext Extension, c *Container) (err error) {
	s := c.Scope()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		took := time.Since(start)
		for _, hook := range h.cfg.onContribute {
			hook(ext.Name(), s, took, err)
		}
		if err != nil {
			err = errExtensionLoad(ext.Name(), s, err)
			return
		}
		h.logger.Debug("extension contributed",
			zap.String("extension", ext.Name()),
			zap.Stringer("scope", s),
			zap.Duration("took", took),
		)
	}()

	return ext.Contribute(ctx, s, c)
}

// abort unwinds a failed start. Disposal failures here are only logged; the
// caller reports the error that caused the unwind.
func (h *Hierarchy) abort(ctx context.Context, created []*Container, cause error) {
	h.logger.Error("start failed, unwinding", zap.Error(cause), zap.Int("scopes", len(created)))

	if err := h.disposeAll(ctx, created); err != nil {
		h.logger.Warn("disposal failures while unwinding", zap.Error(err))
	}

	h.mu.Lock()
	h.containers = nil
	h.leaf = nil
	h.mu.Unlock()

	h.status.SetStatus(StatusDown)
	h.setState(StateNotStarted)
}

// Stop disposes every scope innermost first. It is a no-op unless the
// hierarchy is started. Disposal failures do not interrupt teardown; they
// come back together as one ErrCodeDisposalFailed error once everything has
// been released.
func (h *Hierarchy) Stop(ctx context.Context) error {
	if h.State() != StateStarted {
		return nil
	}

	h.lifecycle.Lock()
	defer h.lifecycle.Unlock()

	if h.State() != StateStarted {
		return nil
	}

	h.setState(StateStopping)

	err := h.disposeAll(ctx, h.Containers())

	h.status.SetStatus(StatusDown)
	h.setState(StateStopped)

	if err != nil {
		h.logger.Warn("hierarchy stopped with disposal failures", zap.Error(err))
		return errDisposalFailed(err)
	}
	h.logger.Info("hierarchy stopped")
	return nil
}

func (h *Hierarchy) disposeAll(ctx context.Context, containers []*Container) error {
	var errs error
	for i := len(containers) - 1; i >= 0; i-- {
		c := containers[i]
		c.Stop()
		if err := c.dispose(ctx, h.cfg.onDispose); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s scope: %w", c.Scope(), err))
		}
	}
	return errs
}

// Run starts the hierarchy, waits for ctx to end or for SIGINT or SIGTERM
// and stops it.
func (h *Hierarchy) Run(ctx context.Context, props config.Props) error {
	if err := h.Start(ctx, props); err != nil {
		return err
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-ctx.Done():
	case <-quit:
	}

	signal.Stop(quit)

	return h.Stop(context.Background())
}

func (h *Hierarchy) setState(to State) {
	h.mu.Lock()
	from := h.state
	h.state = to
	h.mu.Unlock()

	if from == to {
		return
	}
	for _, hook := range h.cfg.onState {
		hook(from, to)
	}
}

// ExtensionCatalog is registered at core-extension scope and lists the
// extensions taking part in this start, in contribution order.
type ExtensionCatalog struct {
	names []string
}

func newExtensionCatalog(exts []Extension) *ExtensionCatalog {
	names := make([]string, len(exts))
	for i, ext := range exts {
		names[i] = ext.Name()
	}
	return &ExtensionCatalog{names: names}
}

func (c *ExtensionCatalog) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

func (c *ExtensionCatalog) Has(name string) bool {
	for _, n := range c.names {
		if n == name {
			return true
		}
	}
	return false
}

func (c *ExtensionCatalog) Len() int {
	return len(c.names)
}
