package restart

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecide(t *testing.T) {
	errSpawn := errors.New("exec: \"php\": executable file not found in $PATH")

	tests := []struct {
		name         string
		detected     bool
		version      string
		allow        bool
		relaunchErr  error
		wantKind     Kind
		wantSkipped  string
		wantRelaunch bool
	}{
		{
			name:         "scenario A: detected and relaunched",
			detected:     true,
			version:      "2.9.0",
			wantKind:     Restarted,
			wantSkipped:  "2.9.0",
			wantRelaunch: true,
		},
		{
			name:         "scenario B: spawn fails",
			detected:     true,
			version:      "2.9.0",
			relaunchErr:  errSpawn,
			wantKind:     Failed,
			wantSkipped:  "",
			wantRelaunch: true,
		},
		{
			name:     "scenario C: guard set, detected",
			detected: true,
			version:  "2.9.0",
			allow:    true,
			wantKind: NotNeeded,
		},
		{
			name:     "scenario D: not detected",
			detected: false,
			wantKind: NotNeeded,
		},
		{
			name:     "guard set, not detected",
			allow:    true,
			wantKind: NotNeeded,
		},
		{
			name:         "empty version still counts as detected",
			detected:     true,
			version:      "",
			wantKind:     Restarted,
			wantSkipped:  "",
			wantRelaunch: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			got := Decide(tt.detected, tt.version, tt.allow, func() error {
				calls++
				return tt.relaunchErr
			})

			assert.Equal(t, tt.wantKind, got.Kind())
			assert.Equal(t, tt.wantSkipped, got.SkippedVersion())
			if tt.wantRelaunch {
				assert.Equal(t, 1, calls, "relaunch should run exactly once")
			} else {
				assert.Zero(t, calls, "relaunch must not run")
			}
		})
	}
}

func TestOutcome_ZeroValueIsNotNeeded(t *testing.T) {
	var o Outcome
	assert.Equal(t, NotNeeded, o.Kind())
	assert.False(t, o.Restarted())
	assert.Equal(t, "", o.SkippedVersion())
}

func TestOutcome_Skipped(t *testing.T) {
	v, ok := RestartedOutcome("3.3.1").Skipped()
	assert.True(t, ok)
	assert.Equal(t, "3.3.1", v)

	v, ok = RestartedOutcome("").Skipped()
	assert.True(t, ok, "unknown version is still a skipped extension")
	assert.Equal(t, "", v)

	_, ok = FailedOutcome().Skipped()
	assert.False(t, ok)

	_, ok = NotNeededOutcome().Skipped()
	assert.False(t, ok)
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "not_needed", NotNeededOutcome().String())
	assert.Equal(t, "restarted(2.9.0)", RestartedOutcome("2.9.0").String())
	assert.Equal(t, "failed", FailedOutcome().String())
	assert.Equal(t, "unknown", Kind(42).String())
}
