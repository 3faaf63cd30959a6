package metrics

import (
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Label values for CacheLookupsTotal
const (
	CacheHit    = "hit"
	CacheMiss   = "miss"
	CacheShared = "shared" // Joined an in-flight computation
)

// Label values for outcomes
const (
	StatusOK       = "ok"
	StatusNotFound = "not_found"
	StatusError    = "error"
	StatusDeclined = "declined"
)

// Metrics holds the pipeline's prometheus collectors.
// Each pipeline owns its own set, registered on the registry it was given.
type Metrics struct {
	CacheLookupsTotal     *prometheus.CounterVec
	RemoteRequestsTotal   *prometheus.CounterVec
	ImageStrategyTotal    *prometheus.CounterVec
	CurationStrategyTotal *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them on reg.
// A nil reg gets a fresh private registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		CacheLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cardset",
				Name:      "cache_lookups_total",
				Help:      "Request cache lookups by outcome",
			},
			[]string{"cache", "result"}, // "hit" / "miss" / "shared"
		),
		RemoteRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cardset",
				Name:      "remote_requests_total",
				Help:      "Requests sent to the wiki APIs",
			},
			[]string{"service", "operation", "status"},
		),
		ImageStrategyTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cardset",
				Name:      "image_strategy_total",
				Help:      "Image strategy attempts by outcome",
			},
			[]string{"strategy", "outcome"},
		),
		CurationStrategyTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cardset",
				Name:      "curation_strategy_total",
				Help:      "Homogeneity filter chosen per curated set",
			},
			[]string{"strategy"},
		),
		gatherer: reg,
	}

	reg.MustRegister(m.CacheLookupsTotal, m.RemoteRequestsTotal, m.ImageStrategyTotal, m.CurationStrategyTotal)
	return m
}

// Sample is one counter value with its labels
type Sample struct {
	Name   string
	Labels map[string]string
	Value  float64
}

// Snapshot gathers every counter with a non-zero value, sorted by name
func (m *Metrics) Snapshot() ([]Sample, error) {
	families, err := m.gatherer.Gather()
	if err != nil {
		return nil, err
	}

	var out []Sample
	for _, mf := range families {
		if mf.GetType() != dto.MetricType_COUNTER {
			continue
		}
		for _, metric := range mf.GetMetric() {
			v := metric.GetCounter().GetValue()
			if v == 0 {
				continue
			}
			labels := make(map[string]string, len(metric.GetLabel()))
			for _, lp := range metric.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			out = append(out, Sample{Name: mf.GetName(), Labels: labels, Value: v})
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
