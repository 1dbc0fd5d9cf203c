package parcelhub

import "github.com/coregx/parcelhub/model"

// Metrics receives counters from the hub. See the metrics package for a
// Prometheus implementation.
type Metrics interface {
	// ConnectionOpened is called once a connection is bound to an identity.
	ConnectionOpened(role model.Role)

	// ConnectionClosed is called once per torn down connection, evictions included.
	ConnectionClosed(role model.Role)

	// SessionEvicted is called for every connection replaced by a newer login.
	SessionEvicted()

	// AuthenticationFailed is called when a connection is rejected.
	AuthenticationFailed(code string)

	// EventEmitted is called for every emit call with the number of connections reached.
	EventEmitted(name EventName, deliveries int)

	// EventDropped is called when a connection refused an event.
	EventDropped(name EventName)

	// NotificationPersisted is called after a notification record was stored.
	NotificationPersisted(severity model.Severity)

	// NotificationFailed is called when a notification record could not be stored.
	NotificationFailed()
}

// NoopMetrics discards every observation.
type NoopMetrics struct{}

func (NoopMetrics) ConnectionOpened(model.Role)          {}
func (NoopMetrics) ConnectionClosed(model.Role)          {}
func (NoopMetrics) SessionEvicted()                      {}
func (NoopMetrics) AuthenticationFailed(string)          {}
func (NoopMetrics) EventEmitted(EventName, int)          {}
func (NoopMetrics) EventDropped(EventName)               {}
func (NoopMetrics) NotificationPersisted(model.Severity) {}
func (NoopMetrics) NotificationFailed()                  {}
