// Copyright (c) StepFlow Authors.
// Licensed under the MIT License.

// Command stepflow executes declarative workflow definitions.
//
// Usage:
//
//	stepflow run -f flow.yaml          # execute a definition
//	stepflow describe -f flow.yaml     # print the workflow tree
//	stepflow validate -f flow.yaml     # check a definition
//	stepflow version                   # show version information
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/stepflow/config"
	"github.com/BaSui01/stepflow/definition"
	"github.com/BaSui01/stepflow/internal/metrics"
	"github.com/BaSui01/stepflow/internal/server"
	"github.com/BaSui01/stepflow/internal/telemetry"
	"github.com/BaSui01/stepflow/observability"
	"github.com/BaSui01/stepflow/workflow"
)

// Build-time version information, injected via -ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runRun(os.Args[2:])
	case "describe":
		runDescribe(os.Args[2:])
	case "validate":
		runValidate(os.Args[2:])
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// kvFlag collects repeatable -set key=value pairs into a context seed map.
// Values that parse as integers, floats or booleans are stored typed, so
// they can drive key-based predicates and selectors.
type kvFlag map[string]any

func (f kvFlag) String() string {
	pairs := make([]string, 0, len(f))
	for k, v := range f {
		pairs = append(pairs, fmt.Sprintf("%s=%v", k, v))
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}

func (f kvFlag) Set(arg string) error {
	key, value, ok := strings.Cut(arg, "=")
	if !ok || key == "" {
		return fmt.Errorf("expected key=value, got %q", arg)
	}
	f[key] = parseScalar(value)
	return nil
}

func parseScalar(s string) any {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if fl, err := strconv.ParseFloat(s, 64); err == nil {
		return fl
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}

func runRun(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	file := fs.String("f", "", "Path to workflow definition (YAML)")
	configPath := fs.String("config", "", "Path to config file")
	timeout := fs.Duration("timeout", 0, "Execution timeout, 0 uses the engine default")
	metricsAddr := fs.String("metrics-addr", "", "Listen address for Prometheus /metrics, overrides config")
	dumpContext := fs.Bool("dump-context", false, "Print the final context after execution")
	seed := kvFlag{}
	fs.Var(seed, "set", "Seed a context entry before execution (key=value, repeatable)")
	fs.Parse(args)

	if *file == "" {
		fmt.Fprintln(os.Stderr, "run: -f <definition.yaml> is required")
		os.Exit(1)
	}

	cfg := loadConfig(*configPath)

	logger := initLogger(cfg.Logging)
	defer logger.Sync()

	logger.Info("starting stepflow",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	providers, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}

	def, err := definition.LoadFile(*file)
	if err != nil {
		logger.Fatal("failed to load definition", zap.String("file", *file), zap.Error(err))
	}

	built, err := definition.NewBuilder().Build(def)
	if err != nil {
		logger.Fatal("failed to build workflow", zap.String("file", *file), zap.Error(err))
	}

	metricsSrv := startMetricsServer(cfg.Metrics, *metricsAddr, logger)

	var root workflow.Workflow = built
	if cfg.Metrics.Enabled {
		collector := metrics.NewCollector(cfg.Metrics.Namespace, logger)
		root, err = workflow.NewInstrumented(root, collector)
		if err != nil {
			logger.Fatal("failed to instrument workflow", zap.Error(err))
		}
	}
	root = observability.Trace(root)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	budget := *timeout
	if budget == 0 {
		budget = cfg.Engine.DefaultTimeout
	}
	if budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, budget)
		defer cancel()
	}

	logger.Info("executing workflow",
		zap.String("workflow", built.Name()),
		zap.String("type", built.Type()),
		zap.String("file", *file),
	)

	wctx := workflow.NewContextFrom(seed)
	res := root.Execute(ctx, wctx)

	if *dumpContext {
		printSnapshot(wctx.Snapshot())
	}

	if res.IsSuccess() {
		fmt.Printf("%s: %s in %s\n", built.Name(), res.Status(), res.Duration().Round(time.Millisecond))
	} else {
		fmt.Fprintf(os.Stderr, "%s: %s in %s", built.Name(), res.Status(), res.Duration().Round(time.Millisecond))
		if err := res.Err(); err != nil {
			fmt.Fprintf(os.Stderr, ": %v", err)
		}
		fmt.Fprintln(os.Stderr)
	}

	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(context.Background()); err != nil {
			logger.Warn("metrics server shutdown failed", zap.Error(err))
		}
	}
	shutdownTelemetry(providers, logger)
	if !res.IsSuccess() {
		os.Exit(1)
	}
}

func runDescribe(args []string) {
	fs := flag.NewFlagSet("describe", flag.ExitOnError)
	file := fs.String("f", "", "Path to workflow definition (YAML)")
	fs.Parse(args)

	if *file == "" {
		fmt.Fprintln(os.Stderr, "describe: -f <definition.yaml> is required")
		os.Exit(1)
	}

	def, err := definition.LoadFile(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid definition: %v\n", err)
		os.Exit(1)
	}

	root, err := stubBuilder(def).Build(def)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build workflow: %v\n", err)
		os.Exit(1)
	}

	if def.Name != "" {
		if def.Version != "" {
			fmt.Printf("%s (version %s)\n", def.Name, def.Version)
		} else {
			fmt.Println(def.Name)
		}
	}
	printTree(root, 0)
}

func runValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	file := fs.String("f", "", "Path to workflow definition (YAML)")
	fs.Parse(args)

	if *file == "" {
		fmt.Fprintln(os.Stderr, "validate: -f <definition.yaml> is required")
		os.Exit(1)
	}

	def, err := definition.LoadFile(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid definition: %v\n", err)
		os.Exit(1)
	}

	if def.Name != "" {
		fmt.Printf("OK: %s\n", def.Name)
	} else {
		fmt.Println("OK")
	}
}

// stubBuilder registers no-op implementations for every reference named in
// the definition, so describe can build the tree without caller code.
func stubBuilder(def *definition.Definition) *definition.Builder {
	b := definition.NewBuilder()

	noopTask := func(context.Context, *workflow.Context) error { return nil }

	var walk func(n *definition.Node)
	walk = func(n *definition.Node) {
		if n == nil {
			return
		}
		if n.Kind == definition.KindTask && n.Ref != "" {
			b.RegisterTask(n.Ref, noopTask)
		}
		if n.When != nil && n.When.Ref != "" {
			b.RegisterPredicate(n.When.Ref, func(context.Context, *workflow.Context) (bool, error) {
				return false, nil
			})
		}
		if n.Selector != nil && n.Selector.Ref != "" {
			b.RegisterSelector(n.Selector.Ref, func(context.Context, *workflow.Context) (string, error) {
				return "", nil
			})
		}
		for _, step := range n.Steps {
			if step.Action != "" {
				b.RegisterTask(step.Action, noopTask)
			}
			if step.Compensation != "" {
				b.RegisterTask(step.Compensation, noopTask)
			}
		}

		for _, child := range n.Children {
			walk(child)
		}
		walk(n.Then)
		walk(n.Else)
		for _, c := range n.Cases {
			walk(c.Workflow)
		}
		walk(n.Default)
		walk(n.Body)
		walk(n.Primary)
		walk(n.Fallback)
	}
	walk(def.Workflow)

	return b
}

func printTree(w workflow.Workflow, depth int) {
	fmt.Printf("%s%s %s\n", strings.Repeat("  ", depth), w.Type(), w.Name())
	if c, ok := w.(workflow.Container); ok {
		for _, child := range c.SubWorkflows() {
			printTree(child, depth+1)
		}
	}
}

func printSnapshot(snap map[string]any) {
	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Println("context:")
	for _, k := range keys {
		fmt.Printf("  %s: %v\n", k, snap[k])
	}
}

func loadConfig(path string) *config.Config {
	loader := config.NewLoader()
	if path != "" {
		loader = loader.WithConfigPath(path)
	}

	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	return cfg
}

// startMetricsServer exposes the Prometheus registry over HTTP when an
// address is configured. Returns nil when metrics serving is disabled.
func startMetricsServer(cfg config.MetricsConfig, override string, logger *zap.Logger) *server.Manager {
	addr := cfg.Addr
	if override != "" {
		addr = override
	}
	if !cfg.Enabled || addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srvCfg := server.DefaultConfig()
	srvCfg.Addr = addr

	srv := server.NewManager(mux, srvCfg, logger)
	if err := srv.Start(); err != nil {
		logger.Warn("failed to start metrics server", zap.Error(err))
		return nil
	}
	logger.Info("serving metrics", zap.String("addr", srv.Addr()))
	return srv
}

func shutdownTelemetry(providers *telemetry.Providers, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := providers.Shutdown(ctx); err != nil {
		logger.Warn("telemetry shutdown failed", zap.Error(err))
	}
}

func printVersion() {
	fmt.Printf("stepflow %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`StepFlow - Composable Workflow Engine

Usage:
  stepflow <command> [options]

Commands:
  run       Execute a workflow definition
  describe  Print the workflow tree of a definition
  validate  Check a definition without executing it
  version   Show version information
  help      Show this help message

Options for 'run':
  -f <path>             Workflow definition file (YAML)
  -config <path>        Configuration file (YAML)
  -set key=value        Seed a context entry (repeatable)
  -timeout <duration>   Execution timeout (0 uses the engine default)
  -metrics-addr <addr>  Serve Prometheus metrics on this address
  -dump-context         Print the final context after execution

Examples:
  stepflow run -f flow.yaml
  stepflow run -f flow.yaml -set approved=true -timeout 30s
  stepflow describe -f flow.yaml
  stepflow validate -f flow.yaml
  stepflow version`)
}

func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	zapConfig := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       cfg.Format == "console",
		DisableCaller:     !cfg.EnableCaller,
		DisableStacktrace: !cfg.EnableStacktrace,
		Encoding:          "json",
		EncoderConfig:     encoderConfig,
		OutputPaths:       cfg.OutputPaths,
		ErrorOutputPaths:  []string{"stderr"},
	}
	if cfg.Format == "console" {
		zapConfig.Encoding = "console"
	}

	logger, err := zapConfig.Build()
	if err != nil {
		logger, _ = zap.NewProduction()
	}

	return logger
}
