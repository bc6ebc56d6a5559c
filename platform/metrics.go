package platform

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/danpasecinic/nest"
)

const namespace = "nest"

// Metrics exports the hierarchy's life through Prometheus collectors. Wire it
// with Options and Bind.
type Metrics struct {
	status         prometheus.Gauge
	state          prometheus.Gauge
	components     *prometheus.CounterVec
	contributions  *prometheus.HistogramVec
	contributeErrs *prometheus.CounterVec
	disposeErrs    *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		status: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "status",
			Help:      "Operational status: 0 unknown, 1 starting, 2 up, 3 down.",
		}),
		state: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "hierarchy_state",
			Help:      "Hierarchy state: 0 not started, 1 starting, 2 started, 3 stopping, 4 stopped.",
		}),
		components: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "components_registered_total",
			Help:      "Components registered, by scope.",
		}, []string{"scope"}),
		contributions: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "extension",
			Name:      "contribution_duration_seconds",
			Help:      "Time an extension spent contributing to one scope.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"extension", "scope"}),
		contributeErrs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extension",
			Name:      "contribution_failures_total",
			Help:      "Failed extension contributions.",
		}, []string{"extension", "scope"}),
		disposeErrs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "disposal_failures_total",
			Help:      "Components that failed to release their resources.",
		}, []string{"scope"}),
	}

	for _, c := range []prometheus.Collector{
		m.status, m.state, m.components, m.contributions, m.contributeErrs, m.disposeErrs,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Options returns the observer options feeding m.
func (m *Metrics) Options() []nest.Option {
	return []nest.Option{
		nest.WithRegisterObserver(func(s nest.Scope, _ string) {
			m.components.WithLabelValues(s.String()).Inc()
		}),
		nest.WithContributeObserver(func(ext string, s nest.Scope, d time.Duration, err error) {
			m.contributions.WithLabelValues(ext, s.String()).Observe(d.Seconds())
			if err != nil {
				m.contributeErrs.WithLabelValues(ext, s.String()).Inc()
			}
		}),
		nest.WithDisposeObserver(func(s nest.Scope, _ string, err error) {
			if err != nil {
				m.disposeErrs.WithLabelValues(s.String()).Inc()
			}
		}),
		nest.WithStateObserver(func(_, to nest.State) {
			m.state.Set(float64(to))
		}),
	}
}

// Bind mirrors flag into the status gauge until the returned func is called.
func (m *Metrics) Bind(flag *nest.StatusFlag) (cancel func()) {
	m.status.Set(float64(flag.Status()))
	return flag.Subscribe(func(_, s nest.Status) {
		m.status.Set(float64(s))
	})
}
