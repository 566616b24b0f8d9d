package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/ajitpratap0/datatable/pkg/column"
	"github.com/ajitpratap0/datatable/pkg/config"
	"github.com/ajitpratap0/datatable/pkg/logger"
	"github.com/ajitpratap0/datatable/pkg/parallel"
	"github.com/ajitpratap0/datatable/pkg/rowindex"
	"github.com/ajitpratap0/datatable/pkg/sorting"
	"github.com/ajitpratap0/datatable/pkg/tablefile"
)

var version = "0.1.0"

// app is the state shared by every subcommand once the root pre-run has
// loaded the configuration.
type app struct {
	cfg     *config.Config
	team    *parallel.Team
	log     *zap.Logger
	metrics *http.Server

	configFile  string
	logLevel    string
	metricsAddr string
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg := config.Default()
	if a.configFile != "" {
		loaded, err := config.Load(a.configFile)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = a.logLevel
	}
	if a.metricsAddr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Addr = a.metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := logger.Init(logger.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		Encoding:    cfg.Logging.Encoding,
	}); err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logger.With(zap.String("component", "dtcore"))

	a.team = parallel.New(cfg.Parallel.GetWorkers())
	column.SetTeam(a.team)
	rowindex.SetTeam(a.team)

	if cfg.Metrics.Enabled {
		a.serveMetrics(cfg.Metrics.Addr)
	}
	a.log.Debug("configured",
		zap.Int("workers", a.team.Size()),
		zap.String("compression", cfg.Storage.Compression),
		zap.Bool("mmap_loads", cfg.Storage.MmapLoads))
	return nil
}

func (a *app) serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	a.metrics = &http.Server{
		Addr:              addr,
		Handler:           h2c.NewHandler(mux, &http2.Server{}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.log.Info("starting metrics server", zap.String("addr", addr))
		if err := a.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("metrics server failed", zap.Error(err))
		}
	}()
}

func (a *app) teardown(*cobra.Command, []string) {
	if a.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = a.metrics.Shutdown(ctx)
	}
	_ = logger.Sync()
}

func (a *app) sorter() *sorting.Sorter {
	return sorting.New(sorting.OptionsFromConfig(a.cfg), a.team, a.log)
}

func (a *app) storageOptions() (tablefile.Options, error) {
	opts, err := tablefile.OptionsFromConfig(a.cfg, a.team)
	if err != nil {
		return opts, err
	}
	opts.Logger = a.log
	return opts, nil
}

func newRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "dtcore",
		Short: "dtcore - columnar table storage toolkit",
		Long: `dtcore creates, inspects and sorts tables stored in the columnar
directory format: one memory-mappable file per column plus a _meta.json
descriptor.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: a.teardown,
	}
	root.PersistentFlags().StringVar(&a.configFile, "config", "", "Path to a YAML configuration file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&a.metricsAddr, "metrics-addr", "", "Serve prometheus metrics on this address (e.g. :9102)")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "dtcore v%s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "Go version: %s\n", runtime.Version())
			fmt.Fprintf(cmd.OutOrStdout(), "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})
	root.AddCommand(newGenCommand(a), newInfoCommand(a), newSortCommand(a))
	return root
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
