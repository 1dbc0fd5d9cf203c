package parcelhub

import (
	"time"

	"github.com/coregx/parcelhub/model"
)

// EventName identifies an event on the wire.
type EventName string

// Outbound events.
const (
	EventConnectionSuccess     EventName = "connection:success"
	EventSessionReplaced       EventName = "session-replaced"
	EventNotificationsPending  EventName = "notifications:pending"
	EventNotificationNew       EventName = "notification:new"
	EventParcelNewBooking      EventName = "parcel:new-booking"
	EventParcelStatusUpdated   EventName = "parcel:status-updated"
	EventParcelPickedUp        EventName = "parcel:picked-up"
	EventParcelDelivered       EventName = "parcel:delivered"
	EventParcelFailed          EventName = "parcel:failed"
	EventParcelAssigned        EventName = "parcel:assigned"
	EventParcelLocationUpdated EventName = "parcel:location-updated"
	EventPaymentReceived       EventName = "payment:received"
	EventParcelUrgent          EventName = "parcel:urgent"
	EventRouteUpdated          EventName = "route:updated"
	EventSystemAlert           EventName = "system:alert"
	EventAgentOnlineStatus     EventName = "agent:online-status"
	EventCustomerInquiry       EventName = "customer:inquiry"
)

// Inbound events accepted from clients.
const (
	EventParcelUpdateStatus   EventName = "parcel:update-status"
	EventParcelUpdateLocation EventName = "parcel:update-location"
	EventAgentStatus          EventName = "agent:status"
)

// sessionReplacedMessage is sent to a connection evicted by a newer login from the same browser.
const sessionReplacedMessage = "New session started from this browser"

// Payload is the closed set of event bodies. Only types in this package implement it.
type Payload interface {
	isPayload()
}

// ConnectionSuccess confirms a bound connection.
type ConnectionSuccess struct {
	IdentityID string     `json:"identityId"`
	Name       string     `json:"name"`
	Role       model.Role `json:"role"`
}

// SessionReplaced tells an evicted connection why it is being closed.
type SessionReplaced struct {
	Message string `json:"message"`
}

// NotificationsPending carries the unread backlog delivered on connect.
type NotificationsPending struct {
	Notifications []model.Notification `json:"notifications"`
	Count         int                  `json:"count"`
}

// NotificationNew is a live notification. ID and IdentityID are set only for
// persisted notifications; role and broadcast notifications are transient.
type NotificationNew struct {
	ID              int64          `json:"id,omitempty"`
	IdentityID      string         `json:"identityId,omitempty"`
	Message         string         `json:"message"`
	Severity        model.Severity `json:"severity"`
	RelatedEntityID string         `json:"relatedEntityId,omitempty"`
	Timestamp       time.Time      `json:"timestamp"`
}

// ParcelSnapshot carries the parcel as it was when the event fired.
type ParcelSnapshot struct {
	Parcel model.Parcel `json:"parcel"`
}

// ParcelFailure reports a failed delivery attempt.
type ParcelFailure struct {
	Parcel model.Parcel `json:"parcel"`
	Reason string       `json:"reason"`
}

// ParcelAssignment reports an agent assignment.
type ParcelAssignment struct {
	Parcel  model.Parcel `json:"parcel"`
	AgentID string       `json:"agentId"`
}

// PaymentReceipt reports a collected payment.
type PaymentReceipt struct {
	Parcel model.Parcel `json:"parcel"`
	Amount float64      `json:"amount"`
}

// UrgentParcel flags a parcel for priority handling.
type UrgentParcel struct {
	Parcel   model.Parcel `json:"parcel"`
	Priority string       `json:"priority"`
}

// RouteUpdate tells an agent its route changed.
type RouteUpdate struct {
	RouteID      string `json:"routeId"`
	ParcelsCount int    `json:"parcelsCount"`
}

// SystemAlert is an operational alert for administrators.
type SystemAlert struct {
	Message string         `json:"message"`
	Level   model.Severity `json:"level"`
}

// AgentPresence reports an agent going online or offline.
type AgentPresence struct {
	AgentID   string `json:"agentId"`
	AgentName string `json:"agentName"`
	IsOnline  bool   `json:"isOnline"`
}

// CustomerInquiry relays a customer's free-text message to administrators.
type CustomerInquiry struct {
	CustomerID   string `json:"customerId"`
	CustomerName string `json:"customerName"`
	ParcelID     string `json:"parcelId,omitempty"`
	Message      string `json:"message"`
}

func (ConnectionSuccess) isPayload()    {}
func (SessionReplaced) isPayload()      {}
func (NotificationsPending) isPayload() {}
func (NotificationNew) isPayload()      {}
func (ParcelSnapshot) isPayload()       {}
func (ParcelFailure) isPayload()        {}
func (ParcelAssignment) isPayload()     {}
func (PaymentReceipt) isPayload()       {}
func (UrgentParcel) isPayload()         {}
func (RouteUpdate) isPayload()          {}
func (SystemAlert) isPayload()          {}
func (AgentPresence) isPayload()        {}
func (CustomerInquiry) isPayload()      {}
