// Package main is the entry point for the scenetx script runner.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dshills/scenetx/internal/app"
	"github.com/dshills/scenetx/internal/config"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// cliOptions holds parsed command line flags.
type cliOptions struct {
	ConfigPath string
	LogLevel   string
	Capacity   int
	JSONLogs   bool
	Watch      bool
	Scripts    []string
}

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load configuration: %v\n", err)
		return 1
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	if opts.Capacity >= 0 {
		cfg.History.Capacity = opts.Capacity
	}

	lc := app.DefaultLoggerConfig()
	lc.Level = app.ParseLogLevel(cfg.Logging.Level)
	lc.JSON = opts.JSONLogs
	logger := app.NewLogger(lc)

	session, err := app.NewSession(app.Options{Config: cfg, Logger: logger})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}
	// Ensure cleanup on all exit paths
	defer session.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := session.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if opts.Watch && opts.ConfigPath != "" {
		if err := session.WatchConfig(opts.ConfigPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}

	status := 0
	for _, path := range opts.Scripts {
		if err := session.RunScript(ctx, path); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			status = 1
			if ctx.Err() != nil {
				break
			}
		}
	}

	if opts.Watch {
		logger.Info("waiting for signal")
		<-ctx.Done()
	}

	stats, err := session.Stats(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Printf("entities=%d undo=%d redo=%d capacity=%d\n",
		stats.Entities, stats.UndoCount, stats.RedoCount, stats.Capacity)
	return status
}

func parseFlags() cliOptions {
	var opts cliOptions
	var showVersion bool
	var showHelp bool

	flag.StringVar(&opts.ConfigPath, "config", "", "Path to configuration file")
	flag.StringVar(&opts.ConfigPath, "c", "", "Path to configuration file (shorthand)")
	flag.StringVar(&opts.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.IntVar(&opts.Capacity, "capacity", -1, "Undo history capacity, 0 for unbounded")
	flag.BoolVar(&opts.JSONLogs, "json", false, "Write logs as JSON")
	flag.BoolVar(&opts.Watch, "watch", false, "Reload the configuration file on change and wait for a signal")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "scenetx - transactional scene editing with undo/redo\n\n")
		fmt.Fprintf(os.Stderr, "Usage: scenetx [options] [scripts...]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  scenetx build.lua                  Run a script\n")
		fmt.Fprintf(os.Stderr, "  scenetx -capacity 50 a.lua b.lua   Run scripts with a bounded history\n")
		fmt.Fprintf(os.Stderr, "  scenetx -c scenetx.toml -watch     Watch the configuration\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("scenetx %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	// Validate log level
	switch opts.LogLevel {
	case "", "debug", "info", "warn", "error":
		// Valid
	default:
		fmt.Fprintf(os.Stderr, "Error: invalid log level %q (must be debug, info, warn, or error)\n", opts.LogLevel)
		os.Exit(1)
	}

	opts.Scripts = flag.Args()
	return opts
}
