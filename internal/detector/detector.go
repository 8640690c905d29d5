// Package detector finds out whether the debugging extension is loaded in the
// PHP runtime the handler guards, and which INI files that runtime read.
package detector

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"
)

// Extension is the name of the extension the detector looks for.
const Extension = "xdebug"

// DefaultTimeout bounds a single probe of the PHP binary.
const DefaultTimeout = 5 * time.Second

// Detector reports the state of the debugging extension. Both queries are
// side-effect free from the caller's point of view.
type Detector interface {
	IsLoaded() (bool, error)
	Version() (string, error)
}

// DetectionError means the extension state could not be determined.
type DetectionError struct {
	Binary string
	Err    error
}

func (e *DetectionError) Error() string {
	return fmt.Sprintf("detect %s via %s: %v", Extension, e.Binary, e.Err)
}

func (e *DetectionError) Unwrap() error {
	return e.Err
}

// runFunc executes binary with args and returns its stdout.
type runFunc func(ctx context.Context, binary string, args ...string) ([]byte, error)

// PHP probes a PHP binary once and caches the answer.
type PHP struct {
	binary  string
	timeout time.Duration
	run     runFunc

	once    sync.Once
	loaded  bool
	version string
	err     error
}

// Compile-time assertion that PHP implements Detector
var _ Detector = (*PHP)(nil)

// NewPHP creates a detector for the given binary. The binary may be a bare
// name (PATH lookup) or an absolute path. A zero timeout uses DefaultTimeout.
func NewPHP(binary string, timeout time.Duration) *PHP {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &PHP{
		binary:  binary,
		timeout: timeout,
		run:     runCommand,
	}
}

// Binary returns the configured binary.
func (p *PHP) Binary() string {
	return p.binary
}

// IsLoaded implements Detector.
func (p *PHP) IsLoaded() (bool, error) {
	p.once.Do(p.probe)
	return p.loaded, p.err
}

// Version implements Detector. An empty version with a nil error means the
// extension is loaded but did not report a version.
func (p *PHP) Version() (string, error) {
	p.once.Do(p.probe)
	return p.version, p.err
}

const probeScript = `echo extension_loaded('xdebug') ? 'loaded ' . phpversion('xdebug') : 'absent';`

var probeOutput = regexp.MustCompile(`^(?:loaded\s*(\S*)|absent)$`)

func (p *PHP) probe() {
	out, err := p.exec("-r", probeScript)
	if err != nil {
		p.err = err
		return
	}

	line := strings.TrimSpace(lastLine(string(out)))
	matches := probeOutput.FindStringSubmatch(line)
	if matches == nil {
		p.err = &DetectionError{Binary: p.binary, Err: fmt.Errorf("unexpected probe output %q", line)}
		return
	}
	if strings.HasPrefix(line, "loaded") {
		p.loaded = true
		p.version = matches[1]
	}
}

const iniScript = `echo php_ini_loaded_file(), PHP_EOL, php_ini_scanned_files();`

// IniFiles returns the main INI file followed by every scanned INI file, in
// the order PHP loaded them. A runtime without any INI yields an empty list.
func (p *PHP) IniFiles() ([]string, error) {
	out, err := p.exec("-r", iniScript)
	if err != nil {
		return nil, err
	}
	return parseIniList(string(out)), nil
}

func (p *PHP) exec(args ...string) ([]byte, error) {
	path, err := resolveBinaryPath(p.binary)
	if err != nil {
		return nil, &DetectionError{Binary: p.binary, Err: err}
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	out, err := p.run(ctx, path, args...)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %s: %w", p.timeout, err)
		}
		return nil, &DetectionError{Binary: p.binary, Err: err}
	}
	return out, nil
}

// parseIniList splits the output of iniScript. The first line is the loaded
// php.ini (empty when none); the rest is PHP's comma separated scanned list.
func parseIniList(out string) []string {
	out = strings.ReplaceAll(out, "\r\n", "\n")
	first, rest, _ := strings.Cut(out, "\n")

	var files []string
	if first = strings.TrimSpace(first); first != "" {
		files = append(files, first)
	}
	for _, f := range strings.Split(rest, ",") {
		if f = strings.TrimSpace(f); f != "" {
			files = append(files, f)
		}
	}
	return files
}

func lastLine(s string) string {
	s = strings.TrimRight(s, "\r\n")
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// resolveBinaryPath resolves a binary path, handling both absolute paths and PATH lookup.
func resolveBinaryPath(binaryPath string) (string, error) {
	if filepath.IsAbs(binaryPath) {
		if _, err := os.Stat(binaryPath); err != nil {
			return "", err
		}
		return binaryPath, nil
	}
	return exec.LookPath(binaryPath)
}

func runCommand(ctx context.Context, binary string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return out.Bytes(), nil
}
