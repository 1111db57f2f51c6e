package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Export outcomes recorded in vcard_exports_total.
const (
	OutcomeOK           = "ok"
	OutcomePhotoOmitted = "photo_omitted"
	OutcomeFailed       = "failed"
)

// Metrics records exporter activity. A nil *Metrics records nothing.
type Metrics struct {
	exports    *prometheus.CounterVec
	photoFetch *prometheus.HistogramVec
}

// NewMetrics registers the exporter metrics on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		exports: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vcard_exports_total",
				Help: "Contact card exports by outcome.",
			},
			[]string{"outcome"},
		),
		photoFetch: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vcard_photo_fetch_duration_seconds",
				Help:    "Time spent loading and re-encoding contact photos.",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"result"},
		),
	}
	for _, c := range []prometheus.Collector{m.exports, m.photoFetch} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) export(outcome string) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(outcome).Inc()
}

func (m *Metrics) photo(start time.Time, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.photoFetch.WithLabelValues(result).Observe(time.Since(start).Seconds())
}
