// Package metrics records test outcomes as Prometheus metrics and writes
// them in the node_exporter textfile format.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"go.alt-gnome.ru/lesst"
)

const namespace = "lesst"

// Recorder owns a private registry so runs never leak into the global one.
type Recorder struct {
	registry *prometheus.Registry

	cases    *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		cases: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cases_total",
				Help:      "Total number of finished test cases",
			},
			[]string{"section", "outcome"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "assertion_failures_total",
				Help:      "Total number of failed assertions",
			},
			[]string{"section"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "case_duration_seconds",
				Help:      "Duration of test cases",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"section"},
		),
	}
	r.registry.MustRegister(r.cases, r.failures, r.duration)
	return r
}

// Section returns an observer that labels outcomes with the section title.
func (r *Recorder) Section(title string) lesst.Observer {
	return sectionObserver{r: r, section: title}
}

// Gatherer exposes the registry for inspection.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile atomically writes every metric to path.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}

type sectionObserver struct {
	r       *Recorder
	section string
}

func (o sectionObserver) CaseFinished(c lesst.CaseOutcome) {
	outcome := "passed"
	if c.Failed {
		outcome = "failed"
	}
	o.r.cases.WithLabelValues(o.section, outcome).Inc()
	if c.Notes > 0 {
		o.r.failures.WithLabelValues(o.section).Add(float64(c.Notes))
	}
	o.r.duration.WithLabelValues(o.section).Observe(c.Duration.Seconds())
}
