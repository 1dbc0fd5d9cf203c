// Package metrics exports parcelhub counters to Prometheus.
//
//	m, err := metrics.NewPrometheus(prometheus.DefaultRegisterer)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	hub, err := parcelhub.NewHub(..., parcelhub.WithMetrics(m))
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/coregx/parcelhub"
	"github.com/coregx/parcelhub/model"
)

const namespace = "parcelhub"

// Prometheus implements parcelhub.Metrics with Prometheus collectors.
type Prometheus struct {
	connections       *prometheus.GaugeVec
	connectionsTotal  *prometheus.CounterVec
	evictions         prometheus.Counter
	authFailures      *prometheus.CounterVec
	events            *prometheus.CounterVec
	deliveries        *prometheus.CounterVec
	dropped           *prometheus.CounterVec
	notifications     *prometheus.CounterVec
	notificationFails prometheus.Counter
}

var _ parcelhub.Metrics = (*Prometheus)(nil)

// NewPrometheus creates the collectors and registers them with reg.
// Every registration error is reported, not only the first.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	m := &Prometheus{
		connections: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Live connections by role.",
		}, []string{"role"}),
		connectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_opened_total",
			Help:      "Authenticated connections by role.",
		}, []string{"role"}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_evicted_total",
			Help:      "Connections closed because the same browser opened a new session.",
		}),
		authFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "authentication_failures_total",
			Help:      "Rejected connection attempts by error code.",
		}, []string{"code"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_emitted_total",
			Help:      "Emitted events by name.",
		}, []string{"event"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_deliveries_total",
			Help:      "Events enqueued on connections by name.",
		}, []string{"event"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Events a connection refused by name.",
		}, []string{"event"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_persisted_total",
			Help:      "Stored notification records by severity.",
		}, []string{"severity"}),
		notificationFails: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_failures_total",
			Help:      "Notification records the store refused.",
		}),
	}

	var errs error
	for _, c := range m.collectors() {
		errs = multierr.Append(errs, reg.Register(c))
	}
	if errs != nil {
		return nil, parcelhub.NewErrorWithCause(parcelhub.ErrCodeConfiguration, "failed to register metrics", errs)
	}
	return m, nil
}

func (m *Prometheus) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.connections,
		m.connectionsTotal,
		m.evictions,
		m.authFailures,
		m.events,
		m.deliveries,
		m.dropped,
		m.notifications,
		m.notificationFails,
	}
}

func (m *Prometheus) ConnectionOpened(role model.Role) {
	m.connections.WithLabelValues(string(role)).Inc()
	m.connectionsTotal.WithLabelValues(string(role)).Inc()
}

func (m *Prometheus) ConnectionClosed(role model.Role) {
	m.connections.WithLabelValues(string(role)).Dec()
}

func (m *Prometheus) SessionEvicted() {
	m.evictions.Inc()
}

func (m *Prometheus) AuthenticationFailed(code string) {
	m.authFailures.WithLabelValues(code).Inc()
}

func (m *Prometheus) EventEmitted(name parcelhub.EventName, deliveries int) {
	m.events.WithLabelValues(string(name)).Inc()
	m.deliveries.WithLabelValues(string(name)).Add(float64(deliveries))
}

func (m *Prometheus) EventDropped(name parcelhub.EventName) {
	m.dropped.WithLabelValues(string(name)).Inc()
}

func (m *Prometheus) NotificationPersisted(severity model.Severity) {
	m.notifications.WithLabelValues(string(severity)).Inc()
}

func (m *Prometheus) NotificationFailed() {
	m.notificationFails.Inc()
}
