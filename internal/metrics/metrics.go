package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all the application metrics
type Metrics struct {
	// HTTP request metrics
	HTTPRequestTotal    *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Patch commits (manual, ai, template, undo)
	PatchCommitTotal    *prometheus.CounterVec
	PatchCommitDuration *prometheus.HistogramVec

	// AI edit pipeline
	AIEditTotal    *prometheus.CounterVec
	AIEditDuration *prometheus.HistogramVec
	ModelTokens    *prometheus.CounterVec

	// Template selection
	TemplateSelectionTotal *prometheus.CounterVec

	// Style resolution
	StyleFallbackTotal *prometheus.CounterVec
	StyleCacheTotal    *prometheus.CounterVec

	// Event publishing
	EventPublishTotal *prometheus.CounterVec
}

// New creates the metric set and registers it with reg. A nil reg leaves the
// collectors unregistered, which is what tests want.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vowcraft_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vowcraft_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),

		PatchCommitTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vowcraft_patch_commits_total",
			Help: "Patch sets submitted for commit, by source and outcome",
		}, []string{"target", "source", "outcome"}),

		PatchCommitDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vowcraft_patch_commit_duration_seconds",
			Help:    "Time to validate, apply and persist a patch set",
			Buckets: prometheus.DefBuckets,
		}, []string{"target", "source"}),

		AIEditTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vowcraft_ai_edits_total",
			Help: "AI edit requests by outcome",
		}, []string{"outcome"}),

		AIEditDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vowcraft_ai_edit_duration_seconds",
			Help:    "End-to-end AI edit duration including the model call",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		}, []string{"outcome"}),

		ModelTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vowcraft_model_tokens_total",
			Help: "Tokens exchanged with the generative model",
		}, []string{"model", "direction"}),

		TemplateSelectionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vowcraft_template_selections_total",
			Help: "Template selections by template and selection method",
		}, []string{"template", "method"}),

		StyleFallbackTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vowcraft_style_fallbacks_total",
			Help: "Style properties that fell back to the system default",
		}, []string{"property"}),

		StyleCacheTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vowcraft_style_cache_total",
			Help: "Resolved style cache lookups",
		}, []string{"result"}),

		EventPublishTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vowcraft_event_publish_total",
			Help: "Total number of event publish operations",
		}, []string{"event_type", "status"}),
	}

	if reg != nil {
		for _, c := range m.collectors() {
			registerOrGet(reg, c)
		}
	}
	return m
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.HTTPRequestTotal,
		m.HTTPRequestDuration,
		m.PatchCommitTotal,
		m.PatchCommitDuration,
		m.AIEditTotal,
		m.AIEditDuration,
		m.ModelTokens,
		m.TemplateSelectionTotal,
		m.StyleFallbackTotal,
		m.StyleCacheTotal,
		m.EventPublishTotal,
	}
}

// registerOrGet tries to register a metric, returns the existing one if already registered
func registerOrGet(reg prometheus.Registerer, c prometheus.Collector) prometheus.Collector {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector
		}
	}
	return c
}
