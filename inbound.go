package parcelhub

import (
	"context"
	"encoding/json"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/coregx/parcelhub/model"
)

// InboundMessage is a frame sent by a client: {"event": "<name>", "data": {...}}.
type InboundMessage struct {
	Event EventName       `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ParcelCommands applies parcel changes requested over a live connection.
// The parcel service owns transition rules; the hub only forwards requests.
type ParcelCommands interface {
	UpdateStatus(ctx context.Context, actor model.Identity, req StatusUpdateRequest) error
	UpdateLocation(ctx context.Context, actor model.Identity, req LocationUpdateRequest) error
}

// StatusUpdateRequest is the body of parcel:update-status.
type StatusUpdateRequest struct {
	ParcelID string             `json:"parcelId"`
	Status   model.ParcelStatus `json:"status"`
}

// Validate validates the StatusUpdateRequest fields.
func (r StatusUpdateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ParcelID, validation.Required),
		validation.Field(&r.Status, validation.Required, validation.By(func(value interface{}) error {
			if s, _ := value.(model.ParcelStatus); !s.IsValid() {
				return validation.NewError("validation_status_invalid", "unknown parcel status")
			}
			return nil
		})),
	)
}

// LocationUpdateRequest is the body of parcel:update-location.
type LocationUpdateRequest struct {
	ParcelID string         `json:"parcelId"`
	Location model.Location `json:"location"`
}

// Validate validates the LocationUpdateRequest fields.
func (r LocationUpdateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ParcelID, validation.Required),
		validation.Field(&r.Location),
	)
}

// AgentStatusRequest is the body of agent:status.
type AgentStatusRequest struct {
	IsOnline bool `json:"isOnline"`
}

// InquiryRequest is the body of customer:inquiry.
type InquiryRequest struct {
	ParcelID string `json:"parcelId"`
	Message  string `json:"message"`
}

// Validate validates the InquiryRequest fields.
func (r InquiryRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Message, validation.Required, validation.Length(1, 2000)),
	)
}

// HandleInbound dispatches a client message received on connID.
//
// Messages from connections that are no longer registered are dropped
// silently. Unknown events and invalid bodies return a VALIDATION_ERROR.
func (h *Hub) HandleInbound(ctx context.Context, connID string, msg InboundMessage) error {
	sender, ok := h.registry.Lookup(connID)
	if !ok {
		h.logger.Debugf("Dropping %s from unknown connection %s", msg.Event, connID)
		return nil
	}

	switch msg.Event {
	case EventParcelUpdateStatus:
		var req StatusUpdateRequest
		if err := decodeInbound(msg, &req); err != nil {
			return err
		}
		h.logger.Infof("Status update request from %s: %s -> %s", sender.Name, req.ParcelID, req.Status)
		if h.parcels == nil {
			return nil
		}
		return h.parcels.UpdateStatus(ctx, sender, req)

	case EventParcelUpdateLocation:
		var req LocationUpdateRequest
		if err := decodeInbound(msg, &req); err != nil {
			return err
		}
		h.logger.Infof("Location update from %s: %s", sender.Name, req.ParcelID)
		if h.parcels == nil {
			return nil
		}
		return h.parcels.UpdateLocation(ctx, sender, req)

	case EventAgentStatus:
		var req AgentStatusRequest
		if err := decodeInbound(msg, &req); err != nil {
			return err
		}
		if sender.Role != model.RoleAgent {
			h.logger.Debugf("Ignoring agent:status from %s (%s)", sender.ID, sender.Role)
			return nil
		}
		h.broadcaster.EmitToTopic(AdminTopic, EventAgentOnlineStatus, AgentPresence{
			AgentID:   sender.ID,
			AgentName: sender.Name,
			IsOnline:  req.IsOnline,
		})
		return nil

	case EventCustomerInquiry:
		var req InquiryRequest
		if err := decodeInbound(msg, &req); err != nil {
			return err
		}
		h.broadcaster.EmitToTopic(AdminTopic, EventCustomerInquiry, CustomerInquiry{
			CustomerID:   sender.ID,
			CustomerName: sender.Name,
			ParcelID:     req.ParcelID,
			Message:      req.Message,
		})
		h.logger.Infof("Customer inquiry from %s about parcel %s", sender.Name, req.ParcelID)
		return nil
	}

	return NewError(ErrCodeValidation, fmt.Sprintf("unknown event: %s", msg.Event))
}

// decodeInbound unmarshals the message body into v and validates it when v
// implements validation.Validatable.
func decodeInbound(msg InboundMessage, v interface{}) error {
	if len(msg.Data) == 0 {
		return NewError(ErrCodeValidation, fmt.Sprintf("%s: data is required", msg.Event))
	}
	if err := json.Unmarshal(msg.Data, v); err != nil {
		return NewErrorWithCause(ErrCodeValidation, fmt.Sprintf("%s: malformed data", msg.Event), err)
	}
	if validatable, ok := v.(validation.Validatable); ok {
		if err := validatable.Validate(); err != nil {
			return NewErrorWithCause(ErrCodeValidation, fmt.Sprintf("%s: invalid data", msg.Event), err)
		}
	}
	return nil
}
