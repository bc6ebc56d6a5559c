// Package nest builds a fixed chain of nested component scopes and lets
// independently developed extensions contribute components to them.
//
// The chain has four scopes, outermost first:
//
//	platform        configuration, logger, status reporter, persistence
//	core-extension  components of core extensions, extension catalog
//	process         per-process components
//	task            per-task components; the container applications see
//
// # Quick Start
//
//	audit := nest.NewExtension("audit")
//	nest.ProvideAt(audit, nest.ScopeProcess, &AuditLog{})
//	nest.ProvideFuncAt(audit, nest.ScopeTask, func(ctx context.Context, c *nest.Container) (*Recorder, error) {
//	    log, err := nest.Resolve[*AuditLog](c)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return &Recorder{log: log}, nil
//	})
//
//	h := nest.New(nest.WithExtensions(audit), nest.WithLogger(logger))
//	if err := h.Start(ctx, props); err != nil {
//	    return err
//	}
//	defer h.Stop(context.Background())
//
//	rec := nest.MustResolve[*Recorder](h.ComponentContainer())
//
// # Resolution
//
// A lookup checks the container it is made on and then every enclosing
// scope. The innermost registration of a key wins, so a process scope may
// shadow a platform component of the same type. Registration only ever
// touches the container it is made on, and each scope is sealed once its
// extensions and initializers have run.
//
//	nest.Resolve[T](c)              // value or *Error
//	nest.ResolveNamed[T](c, "name")
//	nest.ResolveOptional[T](c)      // Optional[T], never fails
//	nest.All[T](c)                  // local components assignable to T
//
// # Extensions
//
// An Extension names the scopes it contributes to. Discovery lists the
// installed extensions: StaticDiscovery for a table compiled into the
// binary, RegisterExtension plus CatalogDiscovery for init-time
// self-registration, ManifestDiscovery to select and order them from a YAML
// manifest, and Chain to combine sources. Extensions contribute in
// discovery order unless DependsOn requires otherwise.
//
// # Lifecycle
//
// Start validates configuration, builds the scopes outermost first and
// unwinds everything already built if any contribution fails. Stop disposes
// innermost first, continuing past failures, and reports them afterwards as
// one ErrCodeDisposalFailed error. Components are disposed through an
// explicit WithDispose function, or Dispose(ctx), Stop(ctx) or Close.
//
// Components implementing Initializer are called after every extension has
// contributed to their scope, which lets a component collect what others
// registered next to it.
//
// # Errors
//
// Every error is an *Error carrying an ErrorCode:
//
//	if nest.IsComponentNotFound(err) { ... }
//	if errors.Is(err, nest.ErrContainerStopped) { ... }
//
// # Observability
//
//	nest.WithLogger(zapLogger)
//	nest.WithContributeObserver(func(ext string, s nest.Scope, d time.Duration, err error) { ... })
//	nest.WithDisposeObserver(func(s nest.Scope, key string, err error) { ... })
//	nest.WithStateObserver(func(from, to nest.State) { ... })
//
// Live, Ready and Health run the HealthChecker and ReadinessChecker
// components of every scope. FprintTree and FprintTreeDOT print the scopes.
package nest
