package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/inorbit-ai/flowcore-connector/internal/server"
	"github.com/inorbit-ai/flowcore-connector/pkg/config"
	"github.com/inorbit-ai/flowcore-connector/pkg/connector/base"
	"github.com/inorbit-ai/flowcore-connector/pkg/connector/core"
	"github.com/inorbit-ai/flowcore-connector/pkg/connector/flowcore"
	"github.com/inorbit-ai/flowcore-connector/pkg/fleet"
	"github.com/inorbit-ai/flowcore-connector/pkg/logger"
	"github.com/inorbit-ai/flowcore-connector/pkg/metrics"
	"github.com/inorbit-ai/flowcore-connector/pkg/observability"
	"github.com/inorbit-ai/flowcore-connector/pkg/platform"
	"github.com/inorbit-ai/flowcore-connector/pkg/version"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

const (
	appName        = "flowcore-connector"
	envPrefix      = "FLOWCORE_CONNECTOR"
	healthInterval = 10 * time.Second
)

// options holds the resolved command line settings
type options struct {
	configFile      string
	envFile         string
	logLevel        string
	logFormat       string
	metricsAddr     string
	telemetryOut    string
	traceStdout     bool
	systemStats     bool
	shutdownTimeout time.Duration
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCommand(stdout, stderr)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:   appName,
		Short: "FLOWCore fleet connector for InOrbit",
		Long: `Connects a FLOWCore fleet manager to the InOrbit platform.

Robot telemetry is published on every execution tick, platform commands are
dispatched to the fleet and maps are fetched on demand.

Every flag can also be set through a FLOWCORE_CONNECTOR_<FLAG> environment
variable, e.g. FLOWCORE_CONNECTOR_CONFIG=config/fleet.yaml.`,
		Version:       version.Get(),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := options{
				configFile:      v.GetString("config"),
				envFile:         v.GetString("env-file"),
				logLevel:        v.GetString("log-level"),
				logFormat:       v.GetString("log-format"),
				metricsAddr:     v.GetString("metrics-addr"),
				telemetryOut:    v.GetString("telemetry-out"),
				traceStdout:     v.GetBool("trace-stdout"),
				systemStats:     v.GetBool("system-stats"),
				shutdownTimeout: v.GetDuration("shutdown-timeout"),
			}
			return run(cmd.Context(), opts, stdout)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	flags := cmd.Flags()
	flags.StringP("config", "c", "", "Path to the connector configuration YAML file (required)")
	flags.String("env-file", config.DefaultEnvFile, "Path to a dotenv file with fleet settings; ignored when missing")
	flags.String("log-level", "", "Log level (debug, info, warn, error); overrides log_level from the configuration")
	flags.String("log-format", "json", "Log encoding (json or console)")
	flags.String("metrics-addr", "", "Address serving /metrics and /healthz, e.g. :9464; disabled when empty")
	flags.String("telemetry-out", "", "File receiving published telemetry as JSON lines; - writes to stdout")
	flags.Bool("trace-stdout", false, "Export hook spans as JSON to stdout")
	flags.Bool("system-stats", true, "Publish host CPU, memory and disk usage on every tick")
	flags.Duration("shutdown-timeout", 30*time.Second, "Maximum time to wait for the connector to disconnect")
	_ = v.BindPFlags(flags)

	return cmd
}

func run(ctx context.Context, opts options, stdout io.Writer) error {
	if opts.configFile == "" {
		return stderrors.New("a configuration file is required (--config)")
	}

	environ, err := config.EnvironWithFile(opts.envFile, os.Environ())
	if err != nil {
		return err
	}

	bootstrapLevel := opts.logLevel
	if bootstrapLevel == "" {
		bootstrapLevel = config.DefaultLogLevel
	}
	log, level, err := logger.NewWithLevel(logger.Config{Level: bootstrapLevel, Encoding: opts.logFormat})
	if err != nil {
		return err
	}
	defer logger.Sync(log)

	cfg, err := config.LoadFile(opts.configFile, environ)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("configuration file %s not found", opts.configFile)
		}
		return fmt.Errorf("invalid configuration %s: %w", opts.configFile, err)
	}

	if opts.logLevel == "" {
		configured, err := zapcore.ParseLevel(cfg.LogLevel())
		if err != nil {
			return fmt.Errorf("invalid log level: %w", err)
		}
		level.SetLevel(configured)
	}

	log.Info("Starting connector",
		zap.String("version", version.Get()),
		zap.String("connector_type", cfg.ConnectorType()),
		zap.String("config", opts.configFile))

	var tracerProvider trace.TracerProvider
	if opts.traceStdout {
		tp, err := observability.InitTracing(ctx, tracingConfig(stdout))
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), opts.shutdownTimeout)
			defer cancel()
			if err := observability.Shutdown(shutdownCtx, tp); err != nil {
				log.Warn("Failed to flush traces", zap.Error(err))
			}
		}()
		tracerProvider = tp
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(cfg.ConnectorType(), registry)

	sink, closeSink, err := newSink(opts.telemetryOut, stdout, cfg, log)
	if err != nil {
		return err
	}
	defer closeSink()

	connectorOpts := []flowcore.Option{flowcore.WithMetrics(collector)}
	if opts.systemStats {
		connectorOpts = append(connectorOpts, flowcore.WithSystemStats(platform.NewSystemStatsCollector("")))
	}
	hooks := flowcore.New(cfg, fleet.NewPlaceholderClient(cfg.Fleet(), log), sink, log, connectorOpts...)

	driver := base.NewDriver(cfg, hooks, log,
		base.WithMetrics(collector),
		base.WithTracer(observability.NewConnectorTracer(cfg.ConnectorType(), appName, tracerProvider)))
	if err := driver.Start(ctx); err != nil {
		return err
	}

	health := base.NewHealthChecker(driver.Name(), healthInterval, driver.Health, log)
	health.Start(ctx)
	defer health.Stop()

	g, gctx := errgroup.WithContext(ctx)
	if opts.metricsAddr != "" {
		srv := server.New(opts.metricsAddr, registry, health, log)
		g.Go(func() error {
			return srv.Run(gctx)
		})
	}
	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-driver.Done():
		}
		log.Info("Shutting down connector")
		driver.Stop()

		joinCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), opts.shutdownTimeout)
		defer cancel()
		if err := driver.Join(joinCtx); err != nil {
			return err
		}
		if gctx.Err() == nil {
			return stderrors.New("connector stopped unexpectedly")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("Connector stopped")
	return nil
}

func tracingConfig(stdout io.Writer) observability.TracingConfig {
	cfg := observability.DefaultTracingConfig(version.Get())
	cfg.Writer = stdout
	return cfg
}

// newSink builds the platform sink: every publish is logged, and also
// written as JSON lines when telemetryOut is set.
func newSink(telemetryOut string, stdout io.Writer, cfg *config.ConnectorConfig, log *zap.Logger) (core.Sink, func(), error) {
	sinks := platform.MultiSink{platform.NewLogSink(log)}
	closeFn := func() {}

	switch telemetryOut {
	case "":
		return sinks, closeFn, nil
	case "-":
		return append(sinks, platform.NewJSONSink(stdout, platform.WithLocation(cfg.Location()))), closeFn, nil
	}

	f, err := os.OpenFile(telemetryOut, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644) //nolint:gosec // G304: path is supplied by the operator
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open telemetry output: %w", err)
	}
	closeFn = func() {
		if err := f.Close(); err != nil {
			log.Warn("Failed to close telemetry output", zap.Error(err))
		}
	}
	return append(sinks, platform.NewJSONSink(f, platform.WithLocation(cfg.Location()))), closeFn, nil
}
