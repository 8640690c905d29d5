package config

import (
	"os"
	"sort"
	"strings"
	"time"
)

// Version is set at build time via -ldflags
// Default "dev" is used for development builds
var Version = "dev"

// DefaultChildEnv turns Xdebug 3 off in the relaunched child even if an INI still loads it.
const DefaultChildEnv = "XDEBUG_MODE=off"

// Config holds all application configuration loaded from environment variables.
// All fields have sensible defaults if environment variables are not set.
type Config struct {
	// PHPBinary is the PHP runtime probed for the extension (default: "php")
	PHPBinary string

	// LogLevel controls logging verbosity: "debug", "info", "warn", "error" (default: "info")
	LogLevel string

	// LogDir enables a rotated log file in this directory (default: "", stderr only)
	LogDir string

	// ScanDir is the PHP_INI_SCAN_DIR value given to the relaunched child (default: "")
	// The empty string stops PHP from scanning the extension's conf.d entry.
	ScanDir string

	// ChildEnv holds extra variables set in the relaunched child only (default: XDEBUG_MODE=off)
	ChildEnv map[string]string

	// DetectTimeout bounds one probe of the PHP binary (default: 5s)
	DetectTimeout time.Duration

	// MetricsFile is where Prometheus textfile metrics are written (default: "", disabled)
	MetricsFile string

	// Disabled skips detection and relaunching entirely (default: false)
	Disabled bool
}

// Global singleton
var cfg *Config

// Load reads configuration from environment variables with sensible defaults.
// Should be called once at application startup.
func Load() *Config {
	cfg = &Config{
		PHPBinary:     getEnvOrDefault("XDEBUG_HANDLER_PHP_BINARY", "php"),
		LogLevel:      strings.ToLower(getEnvOrDefault("XDEBUG_HANDLER_LOG_LEVEL", "info")),
		LogDir:        getEnvOrDefault("XDEBUG_HANDLER_LOG_DIR", ""),
		ScanDir:       getEnvOrDefault("XDEBUG_HANDLER_SCAN_DIR", ""),
		ChildEnv:      ParseChildEnv(getEnvOrDefault("XDEBUG_HANDLER_CHILD_ENV", DefaultChildEnv)),
		DetectTimeout: getEnvDurationOrDefault("XDEBUG_HANDLER_DETECT_TIMEOUT", 5*time.Second),
		MetricsFile:   getEnvOrDefault("XDEBUG_HANDLER_METRICS_FILE", ""),
		Disabled:      getEnvBoolOrDefault("XDEBUG_HANDLER_DISABLED", false),
	}

	cfg.LogLevel = normalizeLogLevel(cfg.LogLevel)

	return cfg
}

// Get returns the current configuration. Panics if Load() hasn't been called.
func Get() *Config {
	if cfg == nil {
		panic("config.Load() must be called before config.Get()")
	}
	return cfg
}

// SetForTesting allows tests to set the global config without calling Load().
// This should ONLY be used in test code.
func SetForTesting(c *Config) {
	cfg = c
}

// NewTestConfig returns a minimal Config suitable for unit tests.
func NewTestConfig() *Config {
	return &Config{
		PHPBinary:     "php",
		LogLevel:      "debug",
		LogDir:        "",
		ScanDir:       "",
		ChildEnv:      map[string]string{"XDEBUG_MODE": "off"},
		DetectTimeout: time.Second,
		MetricsFile:   "",
		Disabled:      false,
	}
}

// ParseChildEnv parses comma separated KEY=VALUE pairs. Blank entries and
// entries without a name are skipped; "none" yields an empty map.
func ParseChildEnv(s string) map[string]string {
	env := make(map[string]string)
	if strings.EqualFold(strings.TrimSpace(s), "none") {
		return env
	}
	for _, pair := range strings.Split(s, ",") {
		name, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			continue
		}
		env[name] = value
	}
	return env
}

// FormatChildEnv renders env in ParseChildEnv syntax with sorted keys.
func FormatChildEnv(env map[string]string) string {
	if len(env) == 0 {
		return "none"
	}
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+env[k])
	}
	return strings.Join(pairs, ",")
}

func normalizeLogLevel(level string) string {
	switch level {
	case "debug", "info", "warn", "error":
		return level
	default:
		return "info" // Fall back to info for invalid values
	}
}

// getEnvOrDefault returns the environment variable value or the default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvDurationOrDefault returns the environment variable as a duration or the default if not set/invalid.
// Accepts Go duration strings like "500ms", "5s".
func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvBoolOrDefault returns the environment variable as a bool or the default if not set.
// Accepts "true", "1", "yes" as true values (case-insensitive).
func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "true" || lower == "1" || lower == "yes"
	}
	return defaultValue
}

// FlagOverrides holds command-line flag values that can override environment variables
type FlagOverrides struct {
	PHPBinary     *string
	LogLevel      *string
	LogDir        *string
	ScanDir       *string
	ChildEnv      *string
	DetectTimeout *time.Duration
	MetricsFile   *string
	Disabled      *bool
}

// ApplyFlags applies command-line flag overrides to the configuration.
// Should be called after Load() and after flag parsing.
// Only non-nil values with non-default flag values will override.
func ApplyFlags(flags FlagOverrides) {
	if cfg == nil {
		return
	}

	if flags.PHPBinary != nil && *flags.PHPBinary != "" {
		cfg.PHPBinary = *flags.PHPBinary
	}
	if flags.LogLevel != nil && *flags.LogLevel != "" {
		cfg.LogLevel = normalizeLogLevel(strings.ToLower(*flags.LogLevel))
	}
	if flags.LogDir != nil && *flags.LogDir != "" {
		cfg.LogDir = *flags.LogDir
	}
	// ScanDir is a pointer so an explicit empty value can still override.
	if flags.ScanDir != nil {
		cfg.ScanDir = *flags.ScanDir
	}
	if flags.ChildEnv != nil && *flags.ChildEnv != "" {
		cfg.ChildEnv = ParseChildEnv(*flags.ChildEnv)
	}
	if flags.DetectTimeout != nil && *flags.DetectTimeout != 0 {
		cfg.DetectTimeout = *flags.DetectTimeout
	}
	if flags.MetricsFile != nil && *flags.MetricsFile != "" {
		cfg.MetricsFile = *flags.MetricsFile
	}
	if flags.Disabled != nil && *flags.Disabled {
		cfg.Disabled = true
	}
}
