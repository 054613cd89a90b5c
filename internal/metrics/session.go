package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Session holds the session manager's Prometheus collectors. A nil *Session
// records nothing.
type Session struct {
	Operations    *prometheus.CounterVec
	Latency       *prometheus.HistogramVec
	Authenticated prometheus.Gauge
}

// NewSession registers the session metrics on reg (or the default registerer
// if nil). Registering twice on the same registry reuses the existing collectors.
func NewSession(reg prometheus.Registerer) (*Session, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	ops := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authsession_operations_total",
		Help: "Session operations by operation and outcome",
	}, []string{"op", "outcome"})

	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "authsession_operation_latency_ms",
		Help:    "Session operation latency in milliseconds",
		Buckets: prometheus.ExponentialBuckets(1, 2, 14),
	}, []string{"op"})

	authenticated := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "authsession_authenticated",
		Help: "1 while the session is authenticated",
	})

	s := &Session{}
	var err error
	if s.Operations, err = register(reg, ops); err != nil {
		return nil, err
	}
	if s.Latency, err = register(reg, latency); err != nil {
		return nil, err
	}
	if s.Authenticated, err = register[prometheus.Gauge](reg, authenticated); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return c, err
		}
		existing, ok := are.ExistingCollector.(C)
		if !ok {
			return c, err
		}
		return existing, nil
	}
	return c, nil
}

// Observe records one completed operation.
func (s *Session) Observe(op, outcome string, elapsed time.Duration) {
	if s == nil {
		return
	}
	s.Operations.WithLabelValues(op, outcome).Inc()
	s.Latency.WithLabelValues(op).Observe(float64(elapsed.Microseconds()) / 1000)
}

func (s *Session) SetAuthenticated(authenticated bool) {
	if s == nil {
		return
	}
	if authenticated {
		s.Authenticated.Set(1)
		return
	}
	s.Authenticated.Set(0)
}
