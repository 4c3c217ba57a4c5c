package services

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "tasktracker"

// AuditMetrics counts activity log writes per action.
type AuditMetrics struct {
	writes   *prometheus.CounterVec
	failures *prometheus.CounterVec
}

// NewAuditMetrics registers the activity log counters on reg, reusing
// collectors that are already registered.
func NewAuditMetrics(reg prometheus.Registerer) (*AuditMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	writes, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "activity_log",
		Name:      "writes_total",
		Help:      "Activity log entries written.",
	}, []string{"action"}))
	if err != nil {
		return nil, err
	}

	failures, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "activity_log",
		Name:      "write_failures_total",
		Help:      "Activity log entries that could not be written.",
	}, []string{"action"}))
	if err != nil {
		return nil, err
	}

	return &AuditMetrics{
		writes:   writes,
		failures: failures,
	}, nil
}

func registerCounterVec(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}

	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
			return existing, nil
		}
	}
	return nil, fmt.Errorf("failed to register counter: %w", err)
}

func (m *AuditMetrics) recordWrite(action string) {
	if m == nil {
		return
	}
	m.writes.WithLabelValues(action).Inc()
}

func (m *AuditMetrics) recordFailure(action string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(action).Inc()
}
