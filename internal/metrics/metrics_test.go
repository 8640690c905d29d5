package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mescon/xdebug-handler/internal/restart"
)

// =============================================================================
// Constructor tests
// =============================================================================

func TestNewMetricsService(t *testing.T) {
	m := NewMetricsService()
	require.NotNil(t, m)
	require.NotNil(t, m.Registry())

	// Two services must not collide: each owns its registry.
	other := NewMetricsService()
	assert.NotSame(t, m.Registry(), other.Registry())
}

// =============================================================================
// Recording tests
// =============================================================================

func TestRecordOutcome(t *testing.T) {
	m := NewMetricsService()

	m.RecordOutcome(restart.NotNeededOutcome())
	m.RecordOutcome(restart.RestartedOutcome("2.9.0"))
	m.RecordOutcome(restart.RestartedOutcome("3.3.1"))
	m.RecordOutcome(restart.FailedOutcome())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.checksTotal.WithLabelValues("not_needed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.checksTotal.WithLabelValues("restarted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.checksTotal.WithLabelValues("failed")))
}

func TestRecordDetectionError(t *testing.T) {
	m := NewMetricsService()

	m.RecordDetectionError()
	m.RecordDetectionError()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.detectionErrors))
}

func TestRecordChild(t *testing.T) {
	m := NewMetricsService()

	m.RecordChild(1500*time.Millisecond, 3)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.childExitCode))
	assert.Equal(t, 1, testutil.CollectAndCount(m.childDuration))

	expected := `
# HELP xdebug_handler_child_exit_code Exit code of the last relaunched child process
# TYPE xdebug_handler_child_exit_code gauge
xdebug_handler_child_exit_code 3
`
	assert.NoError(t, testutil.CollectAndCompare(m.childExitCode, strings.NewReader(expected)))
}

func TestMetrics_Concurrent(t *testing.T) {
	m := NewMetricsService()

	const goroutines = 50
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			m.RecordOutcome(restart.NotNeededOutcome())
		}()
	}
	wg.Wait()

	assert.Equal(t, float64(goroutines), testutil.ToFloat64(m.checksTotal.WithLabelValues("not_needed")))
}

// =============================================================================
// Textfile tests
// =============================================================================

func TestWriteTextfile(t *testing.T) {
	m := NewMetricsService()
	m.RecordOutcome(restart.RestartedOutcome("2.9.0"))
	m.RecordChild(time.Second, 0)

	path := filepath.Join(t.TempDir(), "xdebug_handler.prom")
	require.NoError(t, m.WriteTextfile(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	body := string(content)
	assert.Contains(t, body, `xdebug_handler_checks_total{outcome="restarted"} 1`)
	assert.Contains(t, body, "xdebug_handler_child_duration_seconds_count 1")
}

func TestWriteTextfile_BadDirectory(t *testing.T) {
	m := NewMetricsService()

	err := m.WriteTextfile(filepath.Join(t.TempDir(), "missing", "dir", "x.prom"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "metrics textfile")
}
