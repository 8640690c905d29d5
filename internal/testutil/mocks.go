// Package testutil provides test doubles and fixtures shared by package tests.
// Every fixture is built per test; nothing here holds state between tests.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/mescon/xdebug-handler/internal/clock"
	"github.com/mescon/xdebug-handler/internal/detector"
	"github.com/mescon/xdebug-handler/internal/relauncher"
	"github.com/mescon/xdebug-handler/internal/restart"
)

// MockCall records a method call for verification in tests.
type MockCall struct {
	Method string
	Args   []interface{}
}

// callLog is embedded by every mock to track calls.
type callLog struct {
	mu    sync.Mutex
	Calls []MockCall
}

func (l *callLog) recordCall(method string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Calls = append(l.Calls, MockCall{Method: method, Args: args})
}

// CallCount returns the number of times a method was called.
func (l *callLog) CallCount(method string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	count := 0
	for _, call := range l.Calls {
		if call.Method == method {
			count++
		}
	}
	return count
}

// ResetCalls clears the call history.
func (l *callLog) ResetCalls() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Calls = nil
}

// =============================================================================
// MockClock - Testable time abstraction
// =============================================================================

// MockClock implements clock.Clock with manually advanced time.
type MockClock struct {
	mu  sync.Mutex
	now time.Time
}

// Compile-time assertion that MockClock implements clock.Clock
var _ clock.Clock = (*MockClock)(nil)

// NewMockClockAt creates a new MockClock with a specific initial time.
func NewMockClockAt(t time.Time) *MockClock {
	return &MockClock{now: t}
}

// Now returns the mock's current time.
func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves time forward by d.
func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// =============================================================================
// MockDetector
// =============================================================================

// MockDetector implements detector.Detector with fixed answers.
type MockDetector struct {
	callLog

	Loaded     bool
	VersionStr string
	LoadedErr  error
	VersionErr error
}

// Compile-time assertion that MockDetector implements detector.Detector
var _ detector.Detector = (*MockDetector)(nil)

// LoadedDetector reports the extension as loaded with the given version.
func LoadedDetector(version string) *MockDetector {
	return &MockDetector{Loaded: true, VersionStr: version}
}

func (m *MockDetector) IsLoaded() (bool, error) {
	m.recordCall("IsLoaded")
	return m.Loaded, m.LoadedErr
}

func (m *MockDetector) Version() (string, error) {
	m.recordCall("Version")
	return m.VersionStr, m.VersionErr
}

// =============================================================================
// MockRelauncher
// =============================================================================

// MockRelauncher implements relauncher.Relauncher. Each Spawn is recorded with
// copies of argv and env; SpawnFunc, when set, plays the child.
type MockRelauncher struct {
	callLog

	SpawnFunc func(ctx context.Context, argv []string, env []string) (int, error)
	// ExitCode and Err are returned when SpawnFunc is nil.
	ExitCode int
	Err      error

	LastArgv []string
	LastEnv  []string
}

// Compile-time assertion that MockRelauncher implements relauncher.Relauncher
var _ relauncher.Relauncher = (*MockRelauncher)(nil)

// FailingRelauncher cannot create a child, like a missing executable.
func FailingRelauncher() *MockRelauncher {
	return &MockRelauncher{Err: &relauncher.SpawnError{Path: "php", Err: errNotFound}}
}

func (m *MockRelauncher) Spawn(ctx context.Context, argv []string, env []string) (int, error) {
	m.recordCall("Spawn", argv, env)
	m.mu.Lock()
	m.LastArgv = append([]string(nil), argv...)
	m.LastEnv = append([]string(nil), env...)
	m.mu.Unlock()
	if m.SpawnFunc != nil {
		return m.SpawnFunc(ctx, argv, env)
	}
	return m.ExitCode, m.Err
}

// =============================================================================
// MockRecorder - Mock for metrics.MetricsService
// =============================================================================

// MockRecorder records metric calls instead of updating collectors.
type MockRecorder struct {
	callLog

	Outcomes       []restart.Outcome
	ChildDurations []time.Duration
	ExitCodes      []int
}

func (m *MockRecorder) RecordOutcome(o restart.Outcome) {
	m.recordCall("RecordOutcome", o)
	m.mu.Lock()
	m.Outcomes = append(m.Outcomes, o)
	m.mu.Unlock()
}

func (m *MockRecorder) RecordDetectionError() {
	m.recordCall("RecordDetectionError")
}

func (m *MockRecorder) RecordChild(d time.Duration, exitCode int) {
	m.recordCall("RecordChild", d, exitCode)
	m.mu.Lock()
	m.ChildDurations = append(m.ChildDurations, d)
	m.ExitCodes = append(m.ExitCodes, exitCode)
	m.mu.Unlock()
}
