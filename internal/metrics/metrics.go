// Package metrics provides Prometheus metrics for dfc runs.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/KyungWonPark/DynamicConnectivity/internal/dfc"
)

// Recorder collects the metrics of one process on its own registry. It
// implements dfc.Observer.
type Recorder struct {
	registry *prometheus.Registry

	// WindowsTotal counts computed windows.
	WindowsTotal prometheus.Counter

	// WindowDuration measures the time spent on one window.
	WindowDuration prometheus.Histogram

	// DegenerateTotal counts zero variance regions, one per window and region.
	DegenerateTotal prometheus.Counter

	// FramesTotal counts reconstructed volume frames.
	FramesTotal prometheus.Counter

	// SeriesTotal counts processed series by status.
	SeriesTotal *prometheus.CounterVec

	// LastRunTimestamp is the unix time the last series finished.
	LastRunTimestamp prometheus.Gauge
}

// NewRecorder registers every collector on a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		WindowsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "dfc",
			Name:      "windows_total",
			Help:      "Total number of computed windows",
		}),
		WindowDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "dfc",
			Name:      "window_duration_seconds",
			Help:      "Duration of one window correlation in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		DegenerateTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "dfc",
			Name:      "degenerate_regions_total",
			Help:      "Total number of zero variance regions over all windows",
		}),
		FramesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "dfc",
			Name:      "reconstructed_frames_total",
			Help:      "Total number of reconstructed volume frames",
		}),
		SeriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dfc",
			Name:      "series_total",
			Help:      "Total number of processed series",
		}, []string{"status"}),
		LastRunTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "dfc",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last series finished",
		}),
	}
}

var _ dfc.Observer = (*Recorder)(nil)

// WindowDone records a computed window.
func (r *Recorder) WindowDone(index int, elapsed time.Duration) {
	r.WindowsTotal.Inc()
	r.WindowDuration.Observe(elapsed.Seconds())
}

// Degenerate records a zero variance region.
func (r *Recorder) Degenerate(w dfc.Warning) {
	r.DegenerateTotal.Inc()
}

// RecordFrames records reconstructed frames.
func (r *Recorder) RecordFrames(n int) {
	r.FramesTotal.Add(float64(n))
}

// RecordSeries records a finished series, status is "ok" or "error".
func (r *Recorder) RecordSeries(status string) {
	r.SeriesTotal.WithLabelValues(status).Inc()
	r.LastRunTimestamp.SetToCurrentTime()
}

// Registry returns the registry the collectors are registered on.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes every metric in the text exposition format, for the
// node exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("[WriteTextfile] %w", err)
	}
	return nil
}
