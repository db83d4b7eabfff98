// Package metrics exposes partition statistics as Prometheus gauges.
//
// Each split run gets its own registry, so the gauges describe exactly one
// split and can be written to a node_exporter textfile.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bimmerbailey/logsplit/internal/partition"
)

const namespace = "logsplit"

// Labels: dataset, partition (train, test), unit (sessions, lines)
var partitionLabels = []string{"dataset", "partition", "unit"}

// Recorder holds the gauges for one split run.
type Recorder struct {
	reg *prometheus.Registry

	items       *prometheus.GaugeVec
	anomalies   *prometheus.GaugeVec
	anomalyPct  *prometheus.GaugeVec
	total       *prometheus.GaugeVec
	lastSuccess prometheus.Gauge
}

// NewRecorder registers the split gauges on a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		reg: reg,
		items: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "partition",
			Name:      "items",
			Help:      "Number of sessions or lines in a partition",
		}, partitionLabels),
		anomalies: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "partition",
			Name:      "anomalies",
			Help:      "Number of anomalous sessions or lines in a partition",
		}, partitionLabels),
		anomalyPct: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "partition",
			Name:      "anomaly_percent",
			Help:      "Percentage of anomalous items in a partition",
		}, partitionLabels),
		total: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "input",
			Name:      "items",
			Help:      "Number of sessions or lines before partitioning",
		}, []string{"dataset", "unit"}),
		lastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful split",
		}),
	}
}

// Registry returns the registry holding the gauges.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.reg
}

// Observe records the statistics of one split.
func (r *Recorder) Observe(dataset string, s partition.Stats) {
	unit := string(s.Unit)

	r.total.WithLabelValues(dataset, unit).Set(float64(s.Total))

	r.items.WithLabelValues(dataset, "train", unit).Set(float64(s.TrainCount))
	r.anomalies.WithLabelValues(dataset, "train", unit).Set(float64(s.TrainAnomalies))
	r.anomalyPct.WithLabelValues(dataset, "train", unit).Set(s.TrainAnomalyPct)

	r.items.WithLabelValues(dataset, "test", unit).Set(float64(s.TestCount))
	r.anomalies.WithLabelValues(dataset, "test", unit).Set(float64(s.TestAnomalies))
	r.anomalyPct.WithLabelValues(dataset, "test", unit).Set(s.TestAnomalyPct)

	r.lastSuccess.SetToCurrentTime()
}

// WriteTextfile writes the gauges in the text exposition format to path.
// The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
