package ftpio

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics stores the Prometheus collectors updated by throttled streams.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	transferredBytes *prometheus.CounterVec
	throttleWait     *prometheus.HistogramVec
	timeouts         *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		transferredBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ftpio",
				Name:      "transferred_bytes_total",
				Help:      "Bytes moved through throttled streams by direction.",
			},
			[]string{"direction"},
		),
		throttleWait: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "ftpio",
				Name:      "throttle_wait_seconds",
				Help:      "Time spent waiting on bandwidth throttles before an I/O operation.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
			},
			[]string{"direction"},
		),
		timeouts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ftpio",
				Name:      "timeouts_total",
				Help:      "Stream operations that exceeded their timeout, by timeout name.",
			},
			[]string{"name"},
		),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{m.transferredBytes, m.throttleWait, m.timeouts} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) addBytes(dir Direction, n int) {
	if m == nil {
		return
	}
	m.transferredBytes.WithLabelValues(dir.String()).Add(float64(n))
}

func (m *Metrics) observeWait(dir Direction, d time.Duration) {
	if m == nil {
		return
	}
	m.throttleWait.WithLabelValues(dir.String()).Observe(d.Seconds())
}

func (m *Metrics) timeout(err error) {
	if m == nil {
		return
	}
	var te *TimeoutError
	if errors.As(err, &te) {
		m.timeouts.WithLabelValues(te.Name).Inc()
	}
}
