package report

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"recipes/internal/domain"
)

// Registry builds a private registry holding the report's gauges.
func Registry(r domain.EvalReport) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	metric := factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "recipes_eval_metric",
			Help: "Retrieval metric of the last evaluation run",
		},
		[]string{"metric", "k", "bundle"},
	)
	k := strconv.Itoa(r.K)
	for name, v := range r.Map() {
		metric.WithLabelValues(name, k, r.BundleID).Set(v)
	}

	factory.NewGauge(prometheus.GaugeOpts{
		Name: "recipes_eval_sampled_queries",
		Help: "Number of held-out recipes queried",
	}).Set(float64(r.Sampled))

	factory.NewGauge(prometheus.GaugeOpts{
		Name: "recipes_eval_missing_records",
		Help: "Sampled ids absent from the record store",
	}).Set(float64(r.Missing))

	factory.NewGauge(prometheus.GaugeOpts{
		Name: "recipes_eval_duration_seconds",
		Help: "Wall time of the evaluation run",
	}).Set(r.Duration.Seconds())

	return reg
}

// WriteTextfile writes the report in the text exposition format for the
// node_exporter textfile collector. The file is replaced atomically.
func WriteTextfile(path string, r domain.EvalReport) error {
	if err := prometheus.WriteToTextfile(path, Registry(r)); err != nil {
		return fmt.Errorf("write prometheus textfile: %w", err)
	}
	return nil
}
