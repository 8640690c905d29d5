package testutil

import (
	"errors"

	"github.com/mescon/xdebug-handler/internal/envsnap"
	"github.com/mescon/xdebug-handler/internal/marker"
)

// TestVersion is the extension version reported by loaded test detectors.
const TestVersion = "2.9.0"

var errNotFound = errors.New(`exec: "php": executable file not found in $PATH`)

// TestArgv is a typical PHP command line.
func TestArgv() []string {
	return []string{"/usr/bin/php", "composer.phar", "install", "--no-interaction"}
}

// TestInis is a typical list of loaded INI files.
func TestInis() []string {
	return []string{"/etc/php/8.3/cli/php.ini", "/etc/php/8.3/cli/conf.d/20-xdebug.ini"}
}

// ControlEnv returns an in-memory environment built from pairs with every
// control variable removed, so each test starts from a clean slate.
func ControlEnv(pairs ...string) *envsnap.Map {
	env := envsnap.NewMap(append([]string{"PATH=/usr/local/bin:/usr/bin:/bin", "HOME=/home/test"}, pairs...))
	for _, name := range marker.Names {
		_ = env.Unset(name)
	}
	_ = env.Unset(marker.RunID)
	return env
}

// ExitRecorder stands in for os.Exit and remembers the requested codes.
type ExitRecorder struct {
	Codes []int
}

// Exit records code and returns, letting the caller inspect the parent afterwards.
func (e *ExitRecorder) Exit(code int) {
	e.Codes = append(e.Codes, code)
}

// Called reports whether Exit was invoked.
func (e *ExitRecorder) Called() bool {
	return len(e.Codes) > 0
}
