package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Merge results recorded by Metrics.MergeFinished.
const (
	MergeSucceeded = "success"
	MergeFailed    = "failure"
)

// Metrics holds the service counters on a dedicated registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	submissionsCreated    *prometheus.CounterVec
	extractionFallbacks   prometheus.Counter
	decisions             *prometheus.CounterVec
	merges                *prometheus.CounterVec
	reconciliationResumes *prometheus.CounterVec
}

// NewMetrics creates the counters and registers them together with the Go and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		submissionsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "corpus_submissions_created_total",
			Help: "Total number of submissions created, by text type.",
		}, []string{"text_type"}),
		extractionFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "corpus_extraction_fallbacks_total",
			Help: "Total number of uploads whose text was replaced by the placeholder.",
		}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "corpus_decisions_total",
			Help: "Total number of reviewer decisions, by resulting status.",
		}, []string{"status"}),
		merges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "corpus_merges_total",
			Help: "Total number of corpus merges, by result.",
		}, []string{"result"}),
		reconciliationResumes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "corpus_reconciliation_resumes_total",
			Help: "Total number of reconciliation resume attempts, by result.",
		}, []string{"result"}),
	}
	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.submissionsCreated,
		m.extractionFallbacks,
		m.decisions,
		m.merges,
		m.reconciliationResumes,
	)
	return m
}

func (m *Metrics) SubmissionCreated(textType string) {
	if m == nil {
		return
	}
	m.submissionsCreated.WithLabelValues(textType).Inc()
}

func (m *Metrics) ExtractionFallback() {
	if m == nil {
		return
	}
	m.extractionFallbacks.Inc()
}

func (m *Metrics) Decision(status string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(status).Inc()
}

func (m *Metrics) MergeFinished(result string) {
	if m == nil {
		return
	}
	m.merges.WithLabelValues(result).Inc()
}

func (m *Metrics) ReconciliationResumed(result string) {
	if m == nil {
		return
	}
	m.reconciliationResumes.WithLabelValues(result).Inc()
}
