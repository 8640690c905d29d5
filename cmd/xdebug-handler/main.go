package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mescon/xdebug-handler/internal/config"
	"github.com/mescon/xdebug-handler/internal/detector"
	"github.com/mescon/xdebug-handler/internal/envsnap"
	"github.com/mescon/xdebug-handler/internal/handler"
	"github.com/mescon/xdebug-handler/internal/logger"
	"github.com/mescon/xdebug-handler/internal/marker"
	"github.com/mescon/xdebug-handler/internal/metrics"
	"github.com/mescon/xdebug-handler/internal/relauncher"
)

// exitSpawnFailed mirrors the shell's status for a command that cannot be run.
const exitSpawnFailed = 127

// Replaced in tests.
var (
	osExit       = os.Exit
	relaunchArgs = selfArgs
)

func main() {
	// Define command line flags (these override environment variables)
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.BoolVar(showVersion, "v", false, "Print version and exit (shorthand)")
	showStatus := flag.Bool("status", false, "Print the restart status as JSON on stdout")

	// Configuration flags - all can also be set via environment variables (XDEBUG_HANDLER_*)
	flagPHP := flag.String("php", "", "PHP binary probed for Xdebug (env: XDEBUG_HANDLER_PHP_BINARY, default: php)")
	flagLogLevel := flag.String("log-level", "", "Log level: debug, info, warn, error (env: XDEBUG_HANDLER_LOG_LEVEL, default: info)")
	flagLogDir := flag.String("log-dir", "", "Directory for a rotated log file (env: XDEBUG_HANDLER_LOG_DIR)")
	flagScanDir := flag.String("scan-dir", "", "PHP_INI_SCAN_DIR for the relaunched process (env: XDEBUG_HANDLER_SCAN_DIR, default: empty)")
	flagChildEnv := flag.String("child-env", "", "Comma separated KEY=VALUE pairs for the relaunched process, or none (env: XDEBUG_HANDLER_CHILD_ENV, default: "+config.DefaultChildEnv+")")
	flagDetectTimeout := flag.Duration("detect-timeout", 0, "Timeout for probing the PHP binary (env: XDEBUG_HANDLER_DETECT_TIMEOUT, default: 5s)")
	flagMetricsFile := flag.String("metrics-file", "", "Write Prometheus textfile metrics here (env: XDEBUG_HANDLER_METRICS_FILE)")
	flagDisabled := flag.Bool("disabled", false, "Skip the check and run the command as is (env: XDEBUG_HANDLER_DISABLED)")

	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		fmt.Printf("xdebug-handler %s\n", config.Version)
		os.Exit(0)
	}

	config.Load()

	flagOverrides := config.FlagOverrides{
		PHPBinary:     flagPHP,
		LogLevel:      flagLogLevel,
		LogDir:        flagLogDir,
		ChildEnv:      flagChildEnv,
		DetectTimeout: flagDetectTimeout,
		MetricsFile:   flagMetricsFile,
		Disabled:      flagDisabled,
	}
	// Special handling for scan dir: an explicit empty value overrides the environment
	if flagWasSet("scan-dir") {
		flagOverrides.ScanDir = flagScanDir
	}
	config.ApplyFlags(flagOverrides)

	cfg := config.Get()

	if err := logger.Init(cfg.LogDir); err != nil {
		fmt.Fprintf(os.Stderr, "xdebug-handler: %v\n", err)
	}
	logger.SetLevel(cfg.LogLevel)

	code := run(cfg, flag.Args(), *showStatus, os.Stdout)
	_ = logger.Close()
	os.Exit(code)
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "Usage: %s [flags] [--] <command> [args...]\n\n", os.Args[0])
	fmt.Fprintf(out, "Relaunches itself without Xdebug when the PHP binary loads it, then runs <command>.\n\nFlags:\n")
	flag.PrintDefaults()
}

func flagWasSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

// run performs the check and the command and returns the process exit status.
// A parent that relaunched never returns from here: it exits with the child's status.
func run(cfg *config.Config, command []string, showStatus bool, stdout io.Writer) int {
	logger.Debugf("Configuration:")
	logger.Debugf("  Log Level: %s", logger.Level())
	if dir := logger.GetLogDir(); dir != "" {
		logger.Debugf("  Log Directory: %s", dir)
	}
	logger.Debugf("  PHP Binary: %s", cfg.PHPBinary)
	logger.Debugf("  Scan Dir: %q", cfg.ScanDir)
	logger.Debugf("  Child Env: %s", config.FormatChildEnv(cfg.ChildEnv))
	logger.Debugf("  Detect Timeout: %s", cfg.DetectTimeout)

	metricsService := metrics.NewMetricsService()
	status := handler.Status{}
	// Taken before the check: a relaunched child consumes the marker from
	// its own environment but runs the command with what the parent prepared.
	handed := os.Environ()

	if cfg.Disabled {
		logger.Debugf("Check disabled, running command as is")
	} else {
		controller, err := newController(cfg, metricsService)
		if err != nil {
			logger.Errorf("%v", err)
			return 1
		}
		status, err = controller.Check(context.Background())
		if err != nil {
			var envErr *handler.EnvironmentWriteError
			if errors.As(err, &envErr) {
				logger.Errorf("Cannot prepare restart: %v", err)
				return 1
			}
			logger.Errorf("Restart check failed: %v", err)
		}
		// The relaunched child leaves the counters to its parent.
		if !status.Restarted {
			writeMetrics(cfg, metricsService)
		}
	}

	if showStatus {
		if err := json.NewEncoder(stdout).Encode(status); err != nil {
			logger.Errorf("Failed to print status: %v", err)
		}
	}

	if len(command) == 0 {
		if !showStatus {
			usage()
			return 2
		}
		return 0
	}
	return runCommand(command, commandEnv(status, handed))
}

// commandEnv returns the environment for the wrapped command. A relaunched
// child passes on the environment its parent prepared, so the scan dir and
// child overrides reach PHP; only the marker is dropped.
func commandEnv(status handler.Status, handed []string) []string {
	if !status.Restarted {
		return os.Environ()
	}
	env := envsnap.NewMap(handed)
	_ = env.Unset(marker.AllowXdebug)
	return env.Environ()
}

// selfArgs relaunches this binary with the same arguments.
func selfArgs() ([]string, error) {
	self, err := relauncher.Executable()
	if err != nil {
		return nil, err
	}
	return append([]string{self}, os.Args[1:]...), nil
}

func newController(cfg *config.Config, metricsService *metrics.MetricsService) (*handler.Controller, error) {
	args, err := relaunchArgs()
	if err != nil {
		return nil, fmt.Errorf("cannot relaunch: %w", err)
	}
	php := detector.NewPHP(cfg.PHPBinary, cfg.DetectTimeout)

	return handler.New(handler.Options{
		Args:       args,
		Detector:   php,
		Relauncher: &relauncher.Exec{},
		IniFiles:   php.IniFiles,
		ScanDir:    cfg.ScanDir,
		ChildEnv:   cfg.ChildEnv,
		Metrics:    metricsService,
		Exit: func(code int) {
			writeMetrics(cfg, metricsService)
			_ = logger.Close()
			osExit(code)
		},
	}), nil
}

// runCommand runs the target with env and returns its status.
func runCommand(command []string, env []string) int {
	start := time.Now()
	code, err := (&relauncher.Exec{}).Spawn(context.Background(), command, env)
	if err != nil {
		logger.Errorf("Cannot run %s: %v", command[0], err)
		var spawnErr *relauncher.SpawnError
		if errors.As(err, &spawnErr) {
			return exitSpawnFailed
		}
		return 1
	}
	logger.Debugf("%s exited with status %d after %s", command[0], code, time.Since(start).Round(time.Millisecond))
	return code
}

func writeMetrics(cfg *config.Config, metricsService *metrics.MetricsService) {
	if cfg.MetricsFile == "" {
		return
	}
	if err := metricsService.WriteTextfile(cfg.MetricsFile); err != nil {
		logger.Errorf("%v", err)
	}
}
