package audit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Nuosis/invoice-line-cost-detection-sub000/internal/domain/invoice"
)

const metricsNamespace = "invoice_audit"

// Metrics are the pipeline's Prometheus collectors.
type Metrics struct {
	linesParsed   prometheus.Counter
	headerLines   prometheus.Counter
	diagnostics   *prometheus.CounterVec
	results       *prometheus.CounterVec
	files         *prometheus.CounterVec
	fileDuration  prometheus.Histogram
	discoveries   prometheus.Counter
	activeWorkers prometheus.Gauge
}

// NewMetrics registers the collectors with reg. Pass prometheus.NewRegistry()
// in tests to keep the default registry clean.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		linesParsed: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "line_items_parsed_total",
			Help:      "Line items reconstructed from invoice text.",
		}),
		headerLines: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "header_lines_skipped_total",
			Help:      "Lines dropped as header, summary or page text.",
		}),
		diagnostics: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "diagnostics_total",
			Help:      "Recoverable per-line problems by kind.",
		}, []string{"kind"}),
		results: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "validation_results_total",
			Help:      "Validation results by status and severity.",
		}, []string{"status", "severity"}),
		files: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "files_total",
			Help:      "Processed invoice files by final status.",
		}, []string{"status"}),
		fileDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "file_duration_seconds",
			Help:      "Time spent parsing and validating one invoice file.",
			Buckets:   prometheus.DefBuckets,
		}),
		discoveries: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "parts_discovered_total",
			Help:      "Unknown parts recorded in the discovery log.",
		}),
		activeWorkers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "active_workers",
			Help:      "Files currently being processed.",
		}),
	}
}

// observe records one finished file. A nil receiver is a no-op.
func (m *Metrics) observe(fr FileResult) {
	if m == nil {
		return
	}

	m.files.WithLabelValues(string(fr.Status)).Inc()
	m.fileDuration.Observe(fr.Duration.Seconds())
	if fr.Status == StatusCancelled {
		return
	}

	m.linesParsed.Add(float64(len(fr.Results)))
	m.headerLines.Add(float64(fr.HeaderLines))
	m.discoveries.Add(float64(fr.Discoveries))
	for _, d := range fr.Diagnostics {
		m.diagnostics.WithLabelValues(string(d.Kind)).Inc()
	}
	for _, r := range fr.Results {
		m.results.WithLabelValues(string(r.Status), string(r.Severity)).Inc()
	}
}

func (m *Metrics) workerStarted() {
	if m != nil {
		m.activeWorkers.Inc()
	}
}

func (m *Metrics) workerDone() {
	if m != nil {
		m.activeWorkers.Dec()
	}
}

// failure records a fatal file error by kind.
func (m *Metrics) failure(kind invoice.ErrorKind) {
	if m == nil || kind == "" {
		return
	}
	m.diagnostics.WithLabelValues(string(kind)).Inc()
}
