package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// captureOutput redirects log output into a buffer for the duration of the test.
func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stderr) })
	return &buf
}

// =============================================================================
// LogLevel constants tests
// =============================================================================

func TestLogLevelConstants(t *testing.T) {
	if Debug != "DEBUG" {
		t.Errorf("Debug = %s, want DEBUG", Debug)
	}
	if Info != "INFO" {
		t.Errorf("Info = %s, want INFO", Info)
	}
	if Warn != "WARN" {
		t.Errorf("Warn = %s, want WARN", Warn)
	}
	if Error != "ERROR" {
		t.Errorf("Error = %s, want ERROR", Error)
	}
}

// =============================================================================
// levelPriority tests
// =============================================================================

func TestLevelPriority(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected int
	}{
		{Debug, 0},
		{Info, 1},
		{Warn, 2},
		{Error, 3},
		{LogLevel("unknown"), 1}, // defaults to Info priority
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			got := levelPriority(tt.level)
			if got != tt.expected {
				t.Errorf("levelPriority(%s) = %d, want %d", tt.level, got, tt.expected)
			}
		})
	}
}

// =============================================================================
// SetLevel tests
// =============================================================================

func TestSetLevel(t *testing.T) {
	original := minLevel
	defer func() { minLevel = original }()

	tests := []struct {
		input    string
		expected LogLevel
	}{
		{"debug", Debug},
		{"info", Info},
		{"warn", Warn},
		{"error", Error},
		{"invalid", Info}, // defaults to Info
		{"DEBUG", Info},   // case sensitive, falls back to Info
		{"", Info},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			SetLevel(tt.input)
			if Level() != tt.expected {
				t.Errorf("SetLevel(%q): Level() = %s, want %s", tt.input, Level(), tt.expected)
			}
		})
	}
}

// =============================================================================
// Log tests
// =============================================================================

func TestLog_Filtering(t *testing.T) {
	originalLevel := minLevel
	defer func() { minLevel = originalLevel }()

	tests := []struct {
		name      string
		minLevel  LogLevel
		logLevel  LogLevel
		expectMsg bool
	}{
		{"debug at debug level", Debug, Debug, true},
		{"info at debug level", Debug, Info, true},
		{"debug at info level", Info, Debug, false},
		{"info at info level", Info, Info, true},
		{"warn at info level", Info, Warn, true},
		{"warn at error level", Error, Warn, false},
		{"error at error level", Error, Error, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureOutput(t)
			minLevel = tt.minLevel

			Log(tt.logLevel, "test message")

			got := strings.Contains(buf.String(), "test message")
			if got != tt.expectMsg {
				t.Errorf("message written = %v, want %v (output %q)", got, tt.expectMsg, buf.String())
			}
		})
	}
}

func TestLog_MessageFormatting(t *testing.T) {
	originalLevel := minLevel
	defer func() { minLevel = originalLevel }()

	buf := captureOutput(t)
	minLevel = Debug

	Log(Info, "hello %s, number %d", "world", 42)

	line := buf.String()
	if !strings.Contains(line, "[INFO]") {
		t.Errorf("line %q should carry the level tag", line)
	}
	if !strings.Contains(line, "pid=") {
		t.Errorf("line %q should carry the pid", line)
	}
	if !strings.HasSuffix(strings.TrimSpace(line), "hello world, number 42") {
		t.Errorf("line %q should end with the formatted message", line)
	}
}

// =============================================================================
// Convenience function tests
// =============================================================================

func TestConvenienceFunctions(t *testing.T) {
	originalLevel := minLevel
	defer func() { minLevel = originalLevel }()
	minLevel = Debug

	tests := []struct {
		name string
		fn   func(string, ...interface{})
		tag  string
	}{
		{"Debugf", Debugf, "[DEBUG]"},
		{"Infof", Infof, "[INFO]"},
		{"Warnf", Warnf, "[WARN]"},
		{"Errorf", Errorf, "[ERROR]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureOutput(t)
			tt.fn("%s message", tt.name)
			if !strings.Contains(buf.String(), tt.tag) {
				t.Errorf("%s output %q missing %s", tt.name, buf.String(), tt.tag)
			}
		})
	}
}

// =============================================================================
// Init tests
// =============================================================================

func TestInit_EmptyDirKeepsStderr(t *testing.T) {
	if err := Init(""); err != nil {
		t.Fatalf("Init(\"\") error = %v", err)
	}
	if dir := GetLogDir(); dir != "" {
		t.Errorf("GetLogDir() = %q, want empty string", dir)
	}
}

func TestInit_CreatesDirectory(t *testing.T) {
	logDir := filepath.Join(t.TempDir(), "subdir", "logs")

	if err := Init(logDir); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer Close()

	if _, err := os.Stat(logDir); os.IsNotExist(err) {
		t.Error("Init() should create log directory")
	}
	if dir := GetLogDir(); dir != logDir {
		t.Errorf("GetLogDir() = %q, want %q", dir, logDir)
	}
}

func TestClose_NotInitialized(t *testing.T) {
	if err := Close(); err != nil {
		t.Errorf("Close() without Init should be a no-op, got %v", err)
	}
}

// =============================================================================
// Integration tests
// =============================================================================

func TestLog_WritesToFile(t *testing.T) {
	tmpDir := t.TempDir()
	originalLevel := minLevel
	defer func() { minLevel = originalLevel }()

	minLevel = Debug
	if err := Init(tmpDir); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	uniqueMsg := "unique-test-message-12345"
	Infof("%s", uniqueMsg)

	if err := Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	content, err := os.ReadFile(filepath.Join(tmpDir, LogFileName))
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	if !strings.Contains(string(content), uniqueMsg) {
		t.Error("Log file should contain the logged message")
	}
}
