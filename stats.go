package geoblur

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Stats collects metrics about a blurring run in its own registry. A nil
// *Stats records nothing.
type Stats struct {
	registry *prometheus.Registry

	records    *prometheus.CounterVec
	phases     *prometheus.GaugeVec
	cities     prometheus.Gauge
	candidates prometheus.Gauge
	groups     prometheus.Gauge
	suppressed prometheus.Gauge
	adminCodes prometheus.Gauge
	lastRun    prometheus.Gauge
}

// NewStats returns Stats with all metrics registered.
func NewStats() *Stats {
	s := &Stats{
		registry: prometheus.NewRegistry(),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "geoblur_records_total",
			Help: "Records processed by outcome",
		}, []string{"outcome"}),
		phases: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "geoblur_phase_duration_seconds",
			Help: "Duration of each processing phase",
		}, []string{"phase"}),
		cities: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "geoblur_corpus_cities",
			Help: "Cities read from the corpus",
		}),
		candidates: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "geoblur_candidate_cities",
			Help: "Cities eligible as replacements",
		}),
		groups: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "geoblur_candidate_groups",
			Help: "Country and subdivision groups of replacement cities",
		}),
		suppressed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "geoblur_suppressed_cities",
			Help: "Cities whose population is below the threshold",
		}),
		adminCodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "geoblur_admin_codes",
			Help: "Admin codes loaded",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "geoblur_lastrun_timestamp",
			Help: "Epoch timestamp of process start",
		}),
	}
	s.registry.MustRegister(s.records, s.phases, s.cities, s.candidates,
		s.groups, s.suppressed, s.adminCodes, s.lastRun)

	for _, o := range []Outcome{Unchanged, Replaced, Suppressed} {
		s.records.WithLabelValues(o.String())
	}
	s.lastRun.SetToCurrentTime()
	return s
}

// Registry returns the registry holding the run metrics.
func (s *Stats) Registry() *prometheus.Registry {
	return s.registry
}

// ObservePhase records how long a processing phase took.
func (s *Stats) ObservePhase(phase string, d time.Duration) {
	if s == nil {
		return
	}
	s.phases.WithLabelValues(phase).Set(d.Seconds())
}

func (s *Stats) observe(o Outcome) {
	if s == nil {
		return
	}
	s.records.WithLabelValues(o.String()).Inc()
}

func (s *Stats) setCorpus(cities, candidates, groups, suppressed, adminCodes int) {
	if s == nil {
		return
	}
	s.cities.Set(float64(cities))
	s.candidates.Set(float64(candidates))
	s.groups.Set(float64(groups))
	s.suppressed.Set(float64(suppressed))
	s.adminCodes.Set(float64(adminCodes))
}

// WriteTextfile writes the metrics to path in the Prometheus text format,
// for pickup by the node exporter's textfile collector.
func (s *Stats) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, s.registry); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}
	return nil
}
