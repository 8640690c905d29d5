// Package marker holds the wire formats shared between a parent process and
// the child it relaunches: the control variable names, the ORIGINAL_INIS path
// list and the internal value the parent stores in ALLOW_XDEBUG.
package marker

import (
	"os"
	"strings"
)

// Control variable names. These must match exactly for interop.
const (
	AllowXdebug  = "ALLOW_XDEBUG"
	OriginalInis = "ORIGINAL_INIS"
	ScanDir      = "PHP_INI_SCAN_DIR"
)

// RunID is passed to the child only, to correlate parent and child log lines.
const RunID = "XDEBUG_HANDLER_RUN_ID"

// Names lists every control variable touched by a relaunch.
var Names = []string{AllowXdebug, OriginalInis, ScanDir}

// restartID tags ALLOW_XDEBUG values written by the handler itself.
const restartID = "internal"

// EncodeInis joins INI paths with the host path list separator.
// An empty list encodes to the empty string.
func EncodeInis(paths []string) string {
	return strings.Join(paths, string(os.PathListSeparator))
}

// DecodeInis splits an ORIGINAL_INIS value. The empty string decodes to nil.
func DecodeInis(value string) []string {
	if value == "" {
		return nil
	}
	return strings.Split(value, string(os.PathListSeparator))
}

// Marker is the state a parent hands to its relaunched child through ALLOW_XDEBUG.
type Marker struct {
	// SkippedVersion is the extension version disabled for the child.
	SkippedVersion string
	// ScanDirSet records whether PHP_INI_SCAN_DIR existed before the relaunch.
	ScanDirSet bool
	// ScanDir is the pre-relaunch PHP_INI_SCAN_DIR value.
	ScanDir string
}

// Encode renders m as internal|<version>|<0|1>|<scandir>. A '|' in the
// version is dropped so the value always parses; the scan dir is the last
// field and may contain anything.
func Encode(m Marker) string {
	flag := "0"
	if m.ScanDirSet {
		flag = "1"
	}
	version := strings.ReplaceAll(m.SkippedVersion, "|", "")
	return strings.Join([]string{restartID, version, flag, m.ScanDir}, "|")
}

// Parse reads a value produced by Encode. Any other ALLOW_XDEBUG value,
// including one set by the user, reports false.
func Parse(value string) (Marker, bool) {
	parts := strings.SplitN(value, "|", 4)
	if len(parts) != 4 || parts[0] != restartID {
		return Marker{}, false
	}
	switch parts[2] {
	case "0", "1":
	default:
		return Marker{}, false
	}
	return Marker{
		SkippedVersion: parts[1],
		ScanDirSet:     parts[2] == "1",
		ScanDir:        parts[3],
	}, true
}
