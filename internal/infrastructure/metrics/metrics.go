// Package metrics exporta contadores Prometheus das operações de avatar.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "avatars"

// Metrics implementa ports.AvatarMetrics
type Metrics struct {
	fetches  *prometheus.CounterVec
	resolves *prometheus.CounterVec
	sweeps   *prometheus.CounterVec
}

// New registra os contadores em reg. Coletores já registrados são reutilizados.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_total",
			Help:      "Remote avatar fetches by operation and outcome.",
		}, []string{"operation", "outcome"}),
		resolves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolve_total",
			Help:      "Avatar image resolutions by reference kind.",
		}, []string{"kind"}),
		sweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_items_total",
			Help:      "Rows repaired or removed by the consistency sweeper.",
		}, []string{"category"}),
	}

	var err error
	if m.fetches, err = register(reg, m.fetches); err != nil {
		return nil, err
	}
	if m.resolves, err = register(reg, m.resolves); err != nil {
		return nil, err
	}
	if m.sweeps, err = register(reg, m.sweeps); err != nil {
		return nil, err
	}
	return m, nil
}

// MustNew é New que entra em pânico em caso de erro
func MustNew(reg prometheus.Registerer) *Metrics {
	m, err := New(reg)
	if err != nil {
		panic(err)
	}
	return m
}

func register(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return c, nil
}

func (m *Metrics) ObserveFetch(operation, outcome string) {
	m.fetches.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) ObserveResolve(kind string) {
	m.resolves.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveSweep(category string, count int) {
	if count <= 0 {
		return
	}
	m.sweeps.WithLabelValues(category).Add(float64(count))
}

// Nop descarta as observações
type Nop struct{}

func (Nop) ObserveFetch(string, string) {}
func (Nop) ObserveResolve(string)       {}
func (Nop) ObserveSweep(string, int)    {}
