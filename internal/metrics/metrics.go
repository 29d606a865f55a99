package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/celikgo/autoz-dashboard/internal/events"
)

var statuses = []events.Status{events.StatusSuccess, events.StatusWarning, events.StatusError}

// ClusterMetrics exports the derived cluster status as Prometheus gauges
type ClusterMetrics struct {
	mu           sync.Mutex
	registry     *prometheus.Registry
	statusMetric *prometheus.GaugeVec
	eventMetric  *prometheus.GaugeVec
}

type ClusterMetricsOption func(*ClusterMetrics)

func WithRegistry(registry *prometheus.Registry) ClusterMetricsOption {
	return func(m *ClusterMetrics) {
		m.registry = registry
	}
}

func NewClusterMetrics(opts ...ClusterMetricsOption) (*ClusterMetrics, error) {
	statusMetric := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mcd_cluster_status",
			Help: "Derived cluster status, one series per status set to 1 for the current one",
		},
		[]string{
			"cluster",
			"status",
		},
	)

	eventMetric := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mcd_cluster_events",
			Help: "Number of events in the last observation of a cluster",
		},
		[]string{
			"cluster",
		},
	)

	m := ClusterMetrics{
		statusMetric: statusMetric,
		eventMetric:  eventMetric,
	}

	for _, opt := range opts {
		opt(&m)
	}

	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}

	if err := m.registry.Register(statusMetric); err != nil {
		return nil, err
	}
	if err := m.registry.Register(eventMetric); err != nil {
		return nil, err
	}

	return &m, nil
}

func (m *ClusterMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Update replaces all series with the state of the given clusters. Calls are
// serialized so a scrape never sees a half refreshed set.
func (m *ClusterMetrics) Update(clusterNames []string, snapshot events.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.statusMetric.Reset()
	m.eventMetric.Reset()

	for _, name := range clusterNames {
		current := snapshot.Status(name).Status
		for _, status := range statuses {
			value := 0.0
			if status == current {
				value = 1
			}
			m.statusMetric.WithLabelValues(name, string(status)).Set(value)
		}
		m.eventMetric.WithLabelValues(name).Set(float64(len(snapshot.Events[name])))
	}
}
