package app

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// registerCollector registers c on reg, returning the collector that is
// already registered under the same descriptor if there is one.
func registerCollector[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}

	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(T); ok {
			return existing, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("failed to register collector: %w", err)
}
