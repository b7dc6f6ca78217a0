package store

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	registry *prometheus.Registry
	ops      *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

func newMetrics(reg *prometheus.Registry) (*metrics, error) {
	ops := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jacquard",
		Subsystem: "store",
		Name:      "operations_total",
		Help:      "Store operations by collection, operation and outcome.",
	}, []string{"collection", "op", "outcome"})

	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "jacquard",
		Subsystem: "store",
		Name:      "operation_duration_seconds",
		Help:      "Store operation latency.",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
	}, []string{"collection", "op"})

	var err error
	if ops, err = register(reg, ops); err != nil {
		return nil, err
	}
	if latency, err = register(reg, latency); err != nil {
		return nil, err
	}
	return &metrics{registry: reg, ops: ops, latency: latency}, nil
}

// register adopts an identical collector already on reg, so several stores
// can share one registry.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// observe records one finished operation. Call it deferred with a pointer
// to the operation's named error result.
func (m *metrics) observe(collection, op string, start time.Time, errp *error) {
	outcome := "ok"
	if errp != nil && *errp != nil {
		outcome = "error"
		if IsNotFound(*errp) {
			outcome = "not_found"
		}
	}
	m.ops.WithLabelValues(collection, op, outcome).Inc()
	m.latency.WithLabelValues(collection, op).Observe(time.Since(start).Seconds())
}
