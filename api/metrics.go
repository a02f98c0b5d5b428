package api

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const outcomeSuccess = "success"

// requestMetrics counts calls and their latency per method and outcome. The
// outcome is "success" or the Kind of the returned error. A nil
// *requestMetrics records nothing.
type requestMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newRequestMetrics(reg prometheus.Registerer) (*requestMetrics, error) {
	if reg == nil {
		return nil, nil
	}

	m := &requestMetrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "vaultclient_requests_total", Help: "Total number of requests sent to the secrets service by outcome."},
			[]string{"method", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Name: "vaultclient_request_duration_seconds", Help: "Duration of requests to the secrets service in seconds.", Buckets: prometheus.DefBuckets},
			[]string{"method", "outcome"},
		),
	}

	var err error
	if m.requests, err = registerOrReuse(reg, m.requests); err != nil {
		return nil, err
	}
	if m.duration, err = registerOrReuse(reg, m.duration); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse registers c, or returns the collector already registered
// under the same descriptor so that several clients can share a registry.
func registerOrReuse[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
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

func (m *requestMetrics) observe(method string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := outcomeSuccess
	if err != nil {
		var ce *ClientError
		if errors.As(err, &ce) {
			outcome = ce.Kind.String()
		} else {
			outcome = "unknown"
		}
	}
	m.requests.WithLabelValues(method, outcome).Inc()
	m.duration.WithLabelValues(method, outcome).Observe(elapsed.Seconds())
}
