// Package observability holds the logger constructor and the Prometheus
// metrics shared by the services.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lai/breadcrumbs/pipeline"
)

var (
	BatchesValidated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "breadcrumbs_batches_validated_total",
		Help: "Batches run through the validation pipeline",
	})
	RowsIn = promauto.NewCounter(prometheus.CounterOpts{
		Name: "breadcrumbs_rows_in_total",
		Help: "Raw rows handed to the pipeline",
	})
	RowsOut = promauto.NewCounter(prometheus.CounterOpts{
		Name: "breadcrumbs_rows_out_total",
		Help: "Clean rows produced by the pipeline",
	})
	RowsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "breadcrumbs_rows_dropped_total",
		Help: "Rows dropped, by stage",
	}, []string{"stage"})
	Anomalies = promauto.NewCounter(prometheus.CounterOpts{
		Name: "breadcrumbs_anomalies_total",
		Help: "Batches whose audit reported an anomaly",
	})
	SchemaErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "breadcrumbs_schema_errors_total",
		Help: "Batches rejected for a broken column contract",
	})
	DecodeErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "breadcrumbs_decode_errors_total",
		Help: "Messages or fields that could not be decoded",
	})
	LoadErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "breadcrumbs_load_errors_total",
		Help: "Failed database loads",
	})
	Published = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "breadcrumbs_published_total",
		Help: "Messages published, by topic",
	}, []string{"topic"})
	FetchErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "breadcrumbs_fetch_errors_total",
		Help: "Failed upstream vehicle fetches",
	})
	InvalidStopEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "breadcrumbs_stop_events_invalid_total",
		Help: "Stop events dropped by validation",
	})
	RunLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "breadcrumbs_run_latency_seconds",
		Help:    "Pipeline run duration",
		Buckets: prometheus.DefBuckets,
	})
)

// ObserveRun records the outcome of one pipeline run.
func ObserveRun(res pipeline.Result, err error) {
	BatchesValidated.Inc()
	RowsIn.Add(float64(res.Run.RowsIn))
	RowsOut.Add(float64(res.Run.RowsOut))
	RunLatency.Observe(res.Run.Duration.Seconds())
	for stage, n := range res.Run.Dropped {
		RowsDropped.WithLabelValues(stage).Add(float64(n))
	}
	if res.Report != nil && res.Report.HasKind(pipeline.KindAnomaly) {
		Anomalies.Inc()
	}
	if err != nil {
		SchemaErrors.Inc()
	}
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
