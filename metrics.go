package csvstream

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records format activity in Prometheus. A nil *Metrics records
// nothing.
type Metrics struct {
	formats  *prometheus.CounterVec
	rows     prometheus.Counter
	bytes    prometheus.Counter
	spills   prometheus.Counter
	duration prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// uses a fresh registry, which is mostly useful in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		formats: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "csvstream",
			Name:      "formats_total",
			Help:      "Format operations by result.",
		}, []string{"result"}),
		rows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "csvstream",
			Name:      "rows_total",
			Help:      "Data rows written.",
		}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "csvstream",
			Name:      "bytes_total",
			Help:      "Bytes of CSV output produced by successful operations.",
		}),
		spills: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "csvstream",
			Name:      "spills_total",
			Help:      "Output streams moved from memory to a temporary file.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "csvstream",
			Name:      "format_duration_seconds",
			Help:      "Duration of format operations.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}),
	}
	reg.MustRegister(m.formats, m.rows, m.bytes, m.spills, m.duration)
	return m
}

func (m *Metrics) observe(rows int, size int64, spilled bool, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.formats.WithLabelValues(resultLabel(err)).Inc()
	m.duration.Observe(elapsed.Seconds())
	m.rows.Add(float64(rows))
	if spilled {
		m.spills.Inc()
	}
	if err == nil {
		m.bytes.Add(float64(size))
	}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrSchemaConflict):
		return "schema_conflict"
	case errors.Is(err, ErrWriteFailure):
		return "write_failure"
	default:
		return "error"
	}
}
