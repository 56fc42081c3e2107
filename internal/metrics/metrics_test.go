package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parani/internal/pool"
)

var _ pool.Observer = (*TaskObserver)(nil)

func TestTaskObserver(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	obs := m.TaskObserver("imap")

	obs.TaskStarted()
	obs.TaskStarted()
	assert.Equal(t, 2.0, testutil.ToFloat64(m.InFlight))

	obs.TaskFinished(time.Millisecond, nil)
	obs.TaskFinished(time.Millisecond, errors.New("x"))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.InFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TasksTotal.WithLabelValues("imap", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TasksTotal.WithLabelValues("imap", "error")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.TaskDuration))
}

func TestObserveRunAndWriteFile(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ObserveRun("map", 4, 250*time.Millisecond)
	assert.Equal(t, 4.0, testutil.ToFloat64(m.Workers.WithLabelValues("map")))

	fn := filepath.Join(t.TempDir(), "metrics.prom")
	require.NoError(t, WriteFile(fn, reg))
	data, err := os.ReadFile(fn)
	require.NoError(t, err)
	assert.Contains(t, string(data), `parani_pool_workers{policy="map"} 4`)
	assert.Contains(t, string(data), "parani_run_duration_seconds_count")
}
