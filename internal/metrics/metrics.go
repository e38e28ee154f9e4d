package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ahmethakanbesel/fx-etl/internal/run"
)

// Recorder holds the ETL run metrics on a private registry so a one-shot
// process can export them as a node_exporter textfile.
type Recorder struct {
	registry *prometheus.Registry

	runsTotal        *prometheus.CounterVec
	lastRowsWritten  prometheus.Gauge
	lastSuccess      prometheus.Gauge
	lastRunTimestamp prometheus.Gauge
	lastRunDuration  prometheus.Gauge
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fx_etl_runs_total",
			Help: "ETL runs by terminal status.",
		}, []string{"status"}),
		lastRowsWritten: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fx_etl_last_run_rows_written",
			Help: "Rows upserted by the last run.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fx_etl_last_run_success",
			Help: "1 if the last run succeeded, 0 otherwise.",
		}),
		lastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fx_etl_last_run_timestamp_seconds",
			Help: "Unix time the last run finished.",
		}),
		lastRunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fx_etl_last_run_duration_seconds",
			Help: "Wall time of the last run.",
		}),
	}
	r.registry.MustRegister(r.runsTotal, r.lastRowsWritten, r.lastSuccess, r.lastRunTimestamp, r.lastRunDuration)
	return r
}

// ObserveRun records a finished run. Non-terminal runs are ignored.
func (r *Recorder) ObserveRun(rn *run.Run) {
	if rn == nil || !rn.Status.Terminal() {
		return
	}
	r.runsTotal.WithLabelValues(string(rn.Status)).Inc()
	r.lastRowsWritten.Set(float64(rn.RowsWritten))
	if rn.Status == run.StatusSucceeded {
		r.lastSuccess.Set(1)
	} else {
		r.lastSuccess.Set(0)
	}
	if rn.FinishedAt != nil {
		r.lastRunTimestamp.Set(float64(rn.FinishedAt.Unix()))
		r.lastRunDuration.Set(rn.FinishedAt.Sub(rn.StartedAt).Seconds())
	}
}

// WriteTextfile writes the current values in the Prometheus text format.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) Registry() *prometheus.Registry { return r.registry }
