package parcelhub

import (
	"context"
	"fmt"
	"time"

	"github.com/coregx/parcelhub/model"
)

// failedDeliveryReason is attached to parcel:failed events.
const failedDeliveryReason = "Delivery attempt failed"

// urgentPriority is the priority carried by parcel:urgent.
const urgentPriority = "high"

// parcelTopics returns the identity topics of the parcel's sender and agent,
// skipping empty ids, followed by extra.
func parcelTopics(p model.Parcel, extra ...Topic) []Topic {
	topics := make([]Topic, 0, 2+len(extra))
	if p.SenderID != "" {
		topics = append(topics, IdentityTopic(p.SenderID))
	}
	if p.HasAgent() {
		topics = append(topics, IdentityTopic(p.AgentID))
	}
	return append(topics, extra...)
}

// ParcelCreated announces a new booking to admins.
func (h *Hub) ParcelCreated(p model.Parcel) {
	h.broadcaster.EmitToTopic(AdminTopic, EventParcelNewBooking, ParcelSnapshot{Parcel: p})
	h.logger.Infof("New parcel booking: %s", p.TrackingNumber)
}

// ParcelStatusUpdated sends parcel:status-updated to the sender, the agent and
// admins, followed by the status-specific event:
//
//	picked_up → parcel:picked-up to the sender
//	delivered → parcel:delivered to the sender and the agent
//	failed    → parcel:failed (with reason) to the sender and the agent
func (h *Hub) ParcelStatusUpdated(p model.Parcel) {
	h.broadcaster.EmitToTopics(EventParcelStatusUpdated, ParcelSnapshot{Parcel: p}, parcelTopics(p, AdminTopic)...)

	switch p.Status {
	case model.ParcelStatusPickedUp:
		if p.SenderID != "" {
			h.broadcaster.EmitToTopic(IdentityTopic(p.SenderID), EventParcelPickedUp, ParcelSnapshot{Parcel: p})
		}
	case model.ParcelStatusDelivered:
		h.broadcaster.EmitToTopics(EventParcelDelivered, ParcelSnapshot{Parcel: p}, parcelTopics(p)...)
	case model.ParcelStatusFailed:
		h.broadcaster.EmitToTopics(EventParcelFailed, ParcelFailure{Parcel: p, Reason: failedDeliveryReason}, parcelTopics(p)...)
	}

	h.logger.Infof("Parcel status updated: %s -> %s", p.TrackingNumber, p.Status)
}

// ParcelAssigned tells the agent and admins about an assignment.
func (h *Hub) ParcelAssigned(p model.Parcel, agentID string) {
	h.broadcaster.EmitToTopics(EventParcelAssigned, ParcelAssignment{Parcel: p, AgentID: agentID},
		IdentityTopic(agentID), AdminTopic)
	h.logger.Infof("Parcel %s assigned to agent %s", p.TrackingNumber, agentID)
}

// ParcelDelivered sends parcel:delivered to the sender, the agent and admins.
func (h *Hub) ParcelDelivered(p model.Parcel) {
	h.broadcaster.EmitToTopics(EventParcelDelivered, ParcelSnapshot{Parcel: p}, parcelTopics(p, AdminTopic)...)
	h.logger.Infof("Parcel delivered: %s", p.TrackingNumber)
}

// ParcelLocationUpdated sends the new position to the sender, the agent and admins.
func (h *Hub) ParcelLocationUpdated(p model.Parcel) {
	h.broadcaster.EmitToTopics(EventParcelLocationUpdated, ParcelSnapshot{Parcel: p}, parcelTopics(p, AdminTopic)...)
	h.logger.Debugf("Location updated for parcel: %s", p.TrackingNumber)
}

// PaymentReceived tells admins and the agent that a payment was collected.
func (h *Hub) PaymentReceived(p model.Parcel, amount float64) {
	topics := []Topic{AdminTopic}
	if p.HasAgent() {
		topics = append(topics, IdentityTopic(p.AgentID))
	}
	h.broadcaster.EmitToTopics(EventPaymentReceived, PaymentReceipt{Parcel: p, Amount: amount}, topics...)
	h.logger.Infof("Payment received: %s - %.2f", p.TrackingNumber, amount)
}

// MarkUrgent sends parcel:urgent to admins and the assigned agent and stores
// a warning notification for that agent referencing the parcel.
// The returned error is the notification's persistence error, if any; the
// live parcel:urgent event has been sent regardless.
func (h *Hub) MarkUrgent(ctx context.Context, p model.Parcel) error {
	topics := []Topic{AdminTopic}
	if p.HasAgent() {
		topics = append(topics, IdentityTopic(p.AgentID))
	}
	h.broadcaster.EmitToTopics(EventParcelUrgent, UrgentParcel{Parcel: p, Priority: urgentPriority}, topics...)
	h.logger.Infof("Urgent parcel marked: %s", p.TrackingNumber)

	if !p.HasAgent() {
		return nil
	}
	_, err := h.ledger.Notify(ctx, p.AgentID,
		fmt.Sprintf("Parcel %s has been marked urgent", p.TrackingNumber),
		model.SeverityWarning, p.ID)
	return err
}

// RouteUpdated tells an agent its route changed.
func (h *Hub) RouteUpdated(agentID, routeID string, parcelsCount int) {
	h.broadcaster.EmitToTopic(IdentityTopic(agentID), EventRouteUpdated, RouteUpdate{
		RouteID:      routeID,
		ParcelsCount: parcelsCount,
	})
	h.logger.Infof("Route updated for agent %s: %d parcels", agentID, parcelsCount)
}

// SystemAlert sends an operational alert to admins. Levels other than info,
// warning and error are sent as info.
func (h *Hub) SystemAlert(message string, level model.Severity) {
	if !level.IsAlertLevel() {
		level = model.SeverityInfo
	}
	h.broadcaster.EmitToTopic(AdminTopic, EventSystemAlert, SystemAlert{Message: message, Level: level})
	h.logger.Infof("System alert (%s): %s", level, message)
}

// NotifyRole sends a transient notification:new to a role topic. Nothing is
// persisted. Only privileged roles have a role topic, so other roles reach no one.
func (h *Hub) NotifyRole(role model.Role, message string, severity model.Severity) int {
	return h.broadcaster.EmitToTopic(RoleTopic(role), EventNotificationNew, transientNotification(message, severity))
}

// NotifyAll sends a transient notification:new to every connection. Nothing is persisted.
func (h *Hub) NotifyAll(message string, severity model.Severity) int {
	return h.broadcaster.EmitToAll(EventNotificationNew, transientNotification(message, severity))
}

func transientNotification(message string, severity model.Severity) NotificationNew {
	if severity == "" {
		severity = model.SeverityInfo
	}
	return NotificationNew{
		Message:   message,
		Severity:  severity,
		Timestamp: time.Now(),
	}
}
