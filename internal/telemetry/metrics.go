package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SerpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webevidence_serp_requests_total",
			Help: "Total number of SERP proxy requests by outcome",
		},
		[]string{"status"},
	)

	SerpCostUSD = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "webevidence_serp_cost_usd_total",
			Help: "Estimated SERP proxy spend in USD",
		},
	)

	PageFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webevidence_page_fetches_total",
			Help: "Total number of page fetch attempts by card status",
		},
		[]string{"status"},
	)

	PlannerTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webevidence_planner_tokens_total",
			Help: "Planner model tokens by direction",
		},
		[]string{"direction"},
	)

	PlannerCostUSD = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "webevidence_planner_cost_usd_total",
			Help: "Estimated planner model spend in USD",
		},
	)

	PipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webevidence_pipeline_runs_total",
			Help: "Pipeline runs by outcome",
		},
		[]string{"outcome"},
	)

	PipelineDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "webevidence_pipeline_duration_seconds",
			Help:    "Pipeline wall-clock duration in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		},
	)
)

// MetricsEmitter folds pipeline events into the Prometheus collectors above.
type MetricsEmitter struct{}

func (MetricsEmitter) Emit(ev Event) {
	switch ev.Name {
	case EventSerpRequest:
		SerpRequests.WithLabelValues(statusOr(stringField(ev.Fields, "status"), "ok")).Inc()
	case EventPageFetched:
		PageFetches.WithLabelValues(statusOr(stringField(ev.Fields, "status"), "unknown")).Inc()
	case EventPlannerUsage:
		PlannerTokens.WithLabelValues("input").Add(floatField(ev.Fields, "input_tokens"))
		PlannerTokens.WithLabelValues("output").Add(floatField(ev.Fields, "output_tokens"))
		PlannerCostUSD.Add(floatField(ev.Fields, "cost_usd"))
	case EventPipelineDone:
		PipelineRuns.WithLabelValues(statusOr(stringField(ev.Fields, "outcome"), "done")).Inc()
		PipelineDuration.Observe(floatField(ev.Fields, "duration_seconds"))
		SerpCostUSD.Add(floatField(ev.Fields, "serp_cost_usd"))
	}
}

// WriteTextfile writes g, or the default registry when g is nil, in the text
// exposition format so a node exporter textfile collector can pick it up.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return prometheus.WriteToTextfile(path, g)
}

func statusOr(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
