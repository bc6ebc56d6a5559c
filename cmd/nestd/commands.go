package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/danpasecinic/nest"
	"github.com/danpasecinic/nest/config"
	"github.com/danpasecinic/nest/persistence"
	"github.com/danpasecinic/nest/platform"
)

const shutdownTimeout = 30 * time.Second

type rootOptions struct {
	configFile string
	envFiles   []string
	envPrefix  string
	manifest   string
	overrides  []string
	noDatabase bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "nestd",
		Short:         "Host for a nested component hierarchy",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "YAML configuration file")
	flags.StringSliceVar(&opts.envFiles, "env-file", []string{".env"}, ".env files, later files win")
	flags.StringVar(&opts.envPrefix, "env-prefix", "NEST_", `environment prefix, "-" to ignore the environment`)
	flags.StringVar(&opts.manifest, "manifest", "", "YAML manifest selecting extensions")
	flags.StringArrayVar(&opts.overrides, "set", nil, "key=value override, may repeat")
	flags.BoolVar(&opts.noDatabase, "no-database", false, "do not open the platform database")

	cmd.AddCommand(
		newServeCommand(opts),
		newScopesCommand(opts),
		newConfigCommand(opts),
	)
	return cmd
}

func (o *rootOptions) props() (config.Props, error) {
	overrides := make(map[string]string, len(o.overrides))
	for _, kv := range o.overrides {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return config.Props{}, fmt.Errorf("invalid --set %q, want key=value", kv)
		}
		overrides[k] = v
	}

	return config.Load(config.LoadOptions{
		YAMLFile:  o.configFile,
		EnvFiles:  o.envFiles,
		EnvPrefix: o.envPrefix,
		Overrides: overrides,
	})
}

func (o *rootOptions) discovery() (nest.Discovery, error) {
	if o.manifest == "" {
		return nest.CatalogDiscovery(), nil
	}
	m, err := nest.LoadManifest(o.manifest)
	if err != nil {
		return nil, err
	}
	return nest.ManifestDiscovery(m, nest.CatalogDiscovery()), nil
}

// hierarchyOptions assembles everything but metrics, which only serve adds.
func (o *rootOptions) hierarchyOptions(logger *zap.Logger) ([]nest.Option, error) {
	d, err := o.discovery()
	if err != nil {
		return nil, err
	}

	opts := []nest.Option{
		nest.WithLogger(logger),
		nest.WithDiscovery(d),
	}
	opts = append(opts, platform.Builtins()...)

	if o.noDatabase {
		opts = append(opts, nest.WithRequiredKeys(config.PathHome, config.PathData, config.PathTemp))
	} else {
		opts = append(opts, nest.WithBuiltins(nest.ScopePlatform, persistence.Builtin()))
	}
	return opts, nil
}

func newLogger(props config.Props) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if props.Get(config.AppEnv, "local") == "local" {
		cfg = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(props.Get(config.LogLevel, "info"))
	if err != nil {
		return nil, err
	}
	cfg.Level = level
	return cfg.Build()
}

func newServeCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the hierarchy and serve health, scopes and metrics over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			props, err := root.props()
			if err != nil {
				return err
			}
			logger, err := newLogger(props)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			return serve(cmd.Context(), root, props, logger)
		},
	}
}

func serve(ctx context.Context, root *rootOptions, props config.Props, logger *zap.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	metrics, err := platform.NewMetrics(reg)
	if err != nil {
		return err
	}

	status := nest.NewStatusFlag()
	defer metrics.Bind(status)()

	opts, err := root.hierarchyOptions(logger)
	if err != nil {
		return err
	}
	opts = append(opts, metrics.Options()...)
	opts = append(opts, nest.WithStatusReporter(status))

	h := nest.New(opts...)
	if err := h.Start(ctx, props); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              props.Get(config.HTTPAddr, ":9090"),
		Handler:           platform.NewRouter(h, reg),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("serving", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		if stopErr := h.Stop(shutdownCtx); stopErr != nil {
			logger.Warn("stop", zap.Error(stopErr))
		}
		return err
	})

	return g.Wait()
}

func newScopesCommand(root *rootOptions) *cobra.Command {
	var dot bool

	cmd := &cobra.Command{
		Use:   "scopes",
		Short: "Start the hierarchy, print its scopes and stop it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			props, err := root.props()
			if err != nil {
				return err
			}
			return printScopes(cmd.Context(), cmd.OutOrStdout(), root, props, dot)
		},
	}
	cmd.Flags().BoolVar(&dot, "dot", false, "print Graphviz DOT instead of text")
	return cmd
}

func printScopes(ctx context.Context, w io.Writer, root *rootOptions, props config.Props, dot bool) error {
	opts, err := root.hierarchyOptions(zap.NewNop())
	if err != nil {
		return err
	}

	h := nest.New(opts...)
	if err := h.Start(ctx, props); err != nil {
		return err
	}

	if dot {
		h.FprintTreeDOT(w)
	} else {
		h.FprintTree(w)
	}
	return h.Stop(ctx)
}

var secretKeys = map[string]bool{
	config.DatabasePassword: true,
}

func newConfigCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the merged configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			props, err := root.props()
			if err != nil {
				return err
			}
			printConfig(cmd.OutOrStdout(), props)
			return nil
		},
	}
}

func printConfig(w io.Writer, props config.Props) {
	for _, k := range props.Keys() {
		v := props.Get(k, "")
		if secretKeys[k] && v != "" {
			v = "****"
		}
		_, _ = fmt.Fprintf(w, "%s=%s\n", k, v)
	}
}
