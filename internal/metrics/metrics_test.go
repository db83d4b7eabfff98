package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bimmerbailey/logsplit/internal/partition"
)

func sampleStats() partition.Stats {
	return partition.Stats{
		Unit:            partition.UnitSessions,
		Total:           10,
		TrainCount:      5,
		TrainAnomalies:  1,
		TrainAnomalyPct: 20,
		TestCount:       5,
		TestAnomalies:   2,
		TestAnomalyPct:  40,
	}
}

func TestObserve(t *testing.T) {
	r := NewRecorder()
	r.Observe("HDFS", sampleStats())

	assert.Equal(t, 5.0, testutil.ToFloat64(r.items.WithLabelValues("HDFS", "train", "sessions")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.anomalies.WithLabelValues("HDFS", "test", "sessions")))
	assert.Equal(t, 40.0, testutil.ToFloat64(r.anomalyPct.WithLabelValues("HDFS", "test", "sessions")))
	assert.Equal(t, 10.0, testutil.ToFloat64(r.total.WithLabelValues("HDFS", "sessions")))
	assert.Greater(t, testutil.ToFloat64(r.lastSuccess), 0.0)
}

func TestRecordersAreIndependent(t *testing.T) {
	a := NewRecorder()
	b := NewRecorder()
	a.Observe("BGL", sampleStats())

	assert.Equal(t, 0, testutil.CollectAndCount(b.items))
	assert.Equal(t, 2, testutil.CollectAndCount(a.items))
}

func TestWriteTextfile(t *testing.T) {
	r := NewRecorder()
	r.Observe("OpenStack", sampleStats())

	path := filepath.Join(t.TempDir(), "logsplit.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)

	assert.Contains(t, text, "# TYPE logsplit_partition_items gauge")
	assert.True(t, strings.Contains(text, `logsplit_partition_items{dataset="OpenStack",partition="train",unit="sessions"} 5`))
	assert.Contains(t, text, "logsplit_input_items")
}

func TestWriteTextfileBadDir(t *testing.T) {
	r := NewRecorder()
	err := r.WriteTextfile(filepath.Join(t.TempDir(), "missing", "out.prom"))
	assert.Error(t, err)
}
