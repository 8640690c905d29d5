// Package handler runs the restart check for one process invocation.
//
// A Controller moves through Init, Deciding, then either NotRestarting or
// Relaunching, and ends in Done. When the debugging extension is loaded and
// the ALLOW_XDEBUG guard is absent, the process is relaunched with the
// extension disabled and the parent exits with the child's status. The child
// finds the handler's own marker in ALLOW_XDEBUG, consumes it and reports
// itself as restarted.
package handler

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/mescon/xdebug-handler/internal/clock"
	"github.com/mescon/xdebug-handler/internal/detector"
	"github.com/mescon/xdebug-handler/internal/envsnap"
	"github.com/mescon/xdebug-handler/internal/logger"
	"github.com/mescon/xdebug-handler/internal/marker"
	"github.com/mescon/xdebug-handler/internal/relauncher"
	"github.com/mescon/xdebug-handler/internal/restart"
)

// State is a step of the restart state machine.
type State int

const (
	Init State = iota
	Deciding
	NotRestarting
	Relaunching
	Done
)

func (s State) String() string {
	switch s {
	case Init:
		return "init"
	case Deciding:
		return "deciding"
	case NotRestarting:
		return "not_restarting"
	case Relaunching:
		return "relaunching"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// Recorder receives metrics about the check. metrics.MetricsService implements it.
type Recorder interface {
	RecordOutcome(o restart.Outcome)
	RecordDetectionError()
	RecordChild(d time.Duration, exitCode int)
}

type nopRecorder struct{}

func (nopRecorder) RecordOutcome(restart.Outcome)  {}
func (nopRecorder) RecordDetectionError()          {}
func (nopRecorder) RecordChild(time.Duration, int) {}

// Options wires a Controller to its collaborators.
type Options struct {
	// Env is read at Init and written back explicitly. Default: the process environment.
	Env envsnap.Environment
	// Args is the argv relaunched in the child, argv[0] included. Default: os.Args.
	Args []string

	Detector   detector.Detector
	Relauncher relauncher.Relauncher

	// IniFiles lists the INI files active before the relaunch, for ORIGINAL_INIS.
	IniFiles func() ([]string, error)
	// ScanDir is the PHP_INI_SCAN_DIR value given to the child.
	ScanDir string
	// ChildEnv holds extra variables set in the child only.
	ChildEnv map[string]string

	// Exit ends the parent after a relaunch. Default: os.Exit.
	Exit    func(code int)
	Metrics Recorder
	Clock   clock.Clock
}

// Status is the read-only result exposed once the controller reaches Done.
type Status struct {
	Outcome        restart.Outcome `json:"-"`
	Restarted      bool            `json:"restarted"`
	SkippedVersion string          `json:"skipped_version"`
	// ExitCode is the child's status; only meaningful in a parent whose Exit returned.
	ExitCode int    `json:"exit_code,omitempty"`
	RunID    string `json:"run_id,omitempty"`
}

// Controller orchestrates a single restart check.
type Controller struct {
	opts   Options
	state  State
	status Status

	// restoreArgs puts back the argv captured by New.
	restoreArgs func()
}

// New creates a Controller, filling unset options with process defaults.
func New(opts Options) *Controller {
	if opts.Env == nil {
		opts.Env = envsnap.OS()
	}
	if opts.Args == nil {
		opts.Args = os.Args
	}
	restoreArgs := envsnap.CaptureArgv(&opts.Args)
	if opts.Exit == nil {
		opts.Exit = os.Exit
	}
	if opts.Metrics == nil {
		opts.Metrics = nopRecorder{}
	}
	if opts.Clock == nil {
		opts.Clock = clock.NewRealClock()
	}
	return &Controller{opts: opts, restoreArgs: restoreArgs}
}

// State returns the current state.
func (c *Controller) State() State {
	return c.state
}

// Status returns the result of Check. Before Done it is the zero Status.
func (c *Controller) Status() Status {
	return c.status
}

// Restarted reports whether this process is (or started) a relaunched child.
func (c *Controller) Restarted() bool {
	return c.status.Restarted
}

// SkippedVersion returns the disabled extension version, or "".
func (c *Controller) SkippedVersion() string {
	return c.status.SkippedVersion
}

// Check runs the state machine once; later calls return the same Status.
//
// Detection and spawn failures are absorbed into the outcome and never
// returned. An *EnvironmentWriteError is returned as is.
func (c *Controller) Check(ctx context.Context) (Status, error) {
	if c.state == Done {
		return c.status, nil
	}
	c.state = Init

	guard, guardSet := c.opts.Env.Lookup(marker.AllowXdebug)
	if m, ok := marker.Parse(guard); guardSet && ok {
		return c.finishChild(m)
	}

	detected, version := c.detect()

	c.state = Deciding
	var (
		writeErr error
		exitCode int
		runID    string
	)
	outcome := restart.Decide(detected, version, guardSet, func() error {
		c.state = Relaunching
		runID = uuid.NewString()
		code, err := c.relaunch(ctx, version, runID)
		var envErr *EnvironmentWriteError
		if errors.As(err, &envErr) {
			writeErr = err
		}
		exitCode = code
		return err
	})

	switch {
	case guardSet:
		logger.Debugf("%s is set, not restarting", marker.AllowXdebug)
	case !detected:
		logger.Debugf("%s not loaded, not restarting", detector.Extension)
	}

	if c.state != Relaunching {
		c.state = NotRestarting
	}
	if writeErr != nil {
		c.state = Done
		c.status = Status{Outcome: restart.FailedOutcome(), RunID: runID}
		c.opts.Metrics.RecordOutcome(c.status.Outcome)
		return c.status, writeErr
	}

	c.opts.Metrics.RecordOutcome(outcome)
	c.status = Status{
		Outcome:        outcome,
		Restarted:      outcome.Restarted(),
		SkippedVersion: outcome.SkippedVersion(),
		RunID:          runID,
	}
	c.state = Done

	if outcome.Restarted() {
		c.status.ExitCode = exitCode
		logger.Debugf("run %s: parent exiting with child status %d", runID, exitCode)
		c.opts.Exit(exitCode)
	}
	return c.status, nil
}

// detect queries the detector. Errors fail open towards not restarting.
func (c *Controller) detect() (bool, string) {
	if c.opts.Detector == nil {
		return false, ""
	}
	loaded, err := c.opts.Detector.IsLoaded()
	if err != nil {
		logger.Warnf("Cannot determine %s state, continuing without restart: %v", detector.Extension, err)
		c.opts.Metrics.RecordDetectionError()
		return false, ""
	}
	if !loaded {
		return false, ""
	}
	version, err := c.opts.Detector.Version()
	if err != nil {
		logger.Debugf("%s version unavailable: %v", detector.Extension, err)
		version = ""
	}
	return true, version
}

// relaunch prepares the control variables, spawns the child and waits for it.
// The environment is restored before returning whatever happened.
func (c *Controller) relaunch(ctx context.Context, version, runID string) (int, error) {
	if c.opts.Relauncher == nil {
		return 0, &relauncher.SpawnError{Err: errors.New("no relauncher configured")}
	}

	inis := c.originalInis()
	env := c.opts.Env
	var code int

	err := envsnap.Guard(env, marker.Names, func() error {
		scanDir, scanDirSet := env.Lookup(marker.ScanDir)
		m := marker.Marker{SkippedVersion: version, ScanDirSet: scanDirSet, ScanDir: scanDir}

		if err := setVar(env, marker.OriginalInis, marker.EncodeInis(inis)); err != nil {
			return err
		}
		if err := setVar(env, marker.AllowXdebug, marker.Encode(m)); err != nil {
			return err
		}
		if err := setVar(env, marker.ScanDir, c.opts.ScanDir); err != nil {
			return err
		}

		child := envsnap.Clone(env)
		for name, value := range c.opts.ChildEnv {
			if err := setVar(child, name, value); err != nil {
				return err
			}
		}
		if err := setVar(child, marker.RunID, runID); err != nil {
			return err
		}

		logger.Infof("run %s: %s %s is loaded, restarting with it disabled", runID, detector.Extension, displayVersion(version))
		c.restoreArgs()
		started := c.opts.Clock.Now()
		exitCode, err := c.opts.Relauncher.Spawn(ctx, c.opts.Args, child.Environ())
		if err != nil {
			return err
		}
		code = exitCode
		c.opts.Metrics.RecordChild(clock.Since(c.opts.Clock, started), exitCode)
		logger.Debugf("run %s: child exited with status %d", runID, exitCode)
		return nil
	})
	if err != nil {
		var restoreErr *envsnap.RestoreError
		if errors.As(err, &restoreErr) {
			err = &EnvironmentWriteError{Op: "restore", Err: restoreErr.Err}
		}
		var envErr *EnvironmentWriteError
		if errors.As(err, &envErr) {
			logger.Errorf("run %s: %v", runID, err)
		} else {
			logger.Errorf("run %s: restart failed, continuing with %s loaded: %v", runID, detector.Extension, err)
		}
		return 0, err
	}
	return code, nil
}

func (c *Controller) originalInis() []string {
	if c.opts.IniFiles == nil {
		return nil
	}
	inis, err := c.opts.IniFiles()
	if err != nil {
		logger.Warnf("Cannot list loaded INI files, %s will be empty: %v", marker.OriginalInis, err)
		return nil
	}
	return inis
}

// finishChild consumes the marker a parent left in ALLOW_XDEBUG. The child is
// restarted either way; the skipped version is only reported when the
// extension is really gone, which is checked before the scan dir is restored.
func (c *Controller) finishChild(m marker.Marker) (Status, error) {
	env := c.opts.Env
	runID, _ := env.Lookup(marker.RunID)

	skipped := m.SkippedVersion
	if stillLoaded, _ := c.detect(); stillLoaded {
		logger.Warnf("run %s: %s is still loaded after the restart", runID, detector.Extension)
		skipped = ""
	}

	var err error
	if m.ScanDirSet {
		err = setVar(env, marker.ScanDir, m.ScanDir)
	} else {
		err = unsetVar(env, marker.ScanDir)
	}
	if err == nil {
		err = unsetVar(env, marker.AllowXdebug)
	}

	c.state = Done
	if err != nil {
		c.status = Status{Outcome: restart.FailedOutcome(), RunID: runID}
		return c.status, err
	}

	outcome := restart.RestartedOutcome(skipped)
	c.status = Status{
		Outcome:        outcome,
		Restarted:      true,
		SkippedVersion: skipped,
		RunID:          runID,
	}
	logger.Debugf("run %s: running as relaunched child, skipped %s %s", runID, detector.Extension, displayVersion(skipped))
	return c.status, nil
}

func setVar(env envsnap.Environment, name, value string) error {
	if err := env.Set(name, value); err != nil {
		return &EnvironmentWriteError{Op: "set", Name: name, Err: err}
	}
	return nil
}

func unsetVar(env envsnap.Environment, name string) error {
	if err := env.Unset(name); err != nil {
		return &EnvironmentWriteError{Op: "unset", Name: name, Err: err}
	}
	return nil
}

func displayVersion(version string) string {
	if version == "" {
		return "(unknown version)"
	}
	return version
}
