package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Flarenzy/trials-authorizer/internal/auth"
)

const metricsNamespace = "trials_authorizer"

// Collector is a prometheus.Collector for authorization decisions and
// signing key fetches.
type Collector struct {
	decisions        *prometheus.CounterVec
	decisionDuration prometheus.Histogram
	keyFetches       *prometheus.CounterVec
	keyFetchDuration prometheus.Histogram
}

// NewCollector returns a new Collector.
func NewCollector() *Collector {
	return &Collector{
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "decisions_total",
				Help:      "The number of authorization decisions by effect and reason.",
			}, []string{"effect", "reason"},
		),
		decisionDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "decision_duration_seconds",
				Help:      "The time taken to reach an authorization decision.",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
		),
		keyFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "key_fetches_total",
				Help:      "The number of signing key set fetches by result.",
			}, []string{"result"},
		),
		keyFetchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "key_fetch_duration_seconds",
				Help:      "The time taken to fetch the signing key set.",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
		),
	}
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.decisions.Describe(ch)
	c.decisionDuration.Describe(ch)
	c.keyFetches.Describe(ch)
	c.keyFetchDuration.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.decisions.Collect(ch)
	c.decisionDuration.Collect(ch)
	c.keyFetches.Collect(ch)
	c.keyFetchDuration.Collect(ch)
}

// NewRegistry returns a registry holding c alongside the Go runtime and
// process collectors.
func NewRegistry(c *Collector) (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()
	for _, collector := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

type instrumentedAuthorizer struct {
	collector *Collector
	next      auth.Authorizer
}

// InstrumentAuthorizer counts and times every decision made by next.
func InstrumentAuthorizer(c *Collector, next auth.Authorizer) auth.Authorizer {
	if c == nil || next == nil {
		return next
	}
	return &instrumentedAuthorizer{collector: c, next: next}
}

func (a *instrumentedAuthorizer) Authorize(ctx context.Context, credential, resource string) (auth.Decision, error) {
	start := time.Now()
	decision, err := a.next.Authorize(ctx, credential, resource)
	a.collector.decisionDuration.Observe(time.Since(start).Seconds())

	effect := decision.Effect
	if effect == "" {
		effect = auth.EffectDeny
	}
	a.collector.decisions.WithLabelValues(string(effect), string(decision.Reason)).Inc()

	return decision, err
}

type instrumentedKeySource struct {
	collector *Collector
	next      auth.KeySource
}

// InstrumentKeySource counts and times every key set fetch made through next.
func InstrumentKeySource(c *Collector, next auth.KeySource) auth.KeySource {
	if c == nil || next == nil {
		return next
	}
	return &instrumentedKeySource{collector: c, next: next}
}

func (s *instrumentedKeySource) FetchKeySet(ctx context.Context) (jwkset.JWKSMarshal, error) {
	start := time.Now()
	set, err := s.next.FetchKeySet(ctx)
	s.collector.keyFetchDuration.Observe(time.Since(start).Seconds())

	result := "ok"
	if err != nil {
		result = "error"
	}
	s.collector.keyFetches.WithLabelValues(result).Inc()

	return set, err
}
