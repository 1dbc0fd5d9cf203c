package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ParcelStatus is the lifecycle state of a parcel as reported by the parcel service.
// The core only reads it to pick status-specific events.
type ParcelStatus string

const (
	ParcelStatusPending        ParcelStatus = "pending"
	ParcelStatusPickedUp       ParcelStatus = "picked_up"
	ParcelStatusInTransit      ParcelStatus = "in_transit"
	ParcelStatusOutForDelivery ParcelStatus = "out_for_delivery"
	ParcelStatusDelivered      ParcelStatus = "delivered"
	ParcelStatusFailed         ParcelStatus = "failed"
	ParcelStatusReturned       ParcelStatus = "returned"
)

// ParcelStatuses lists every known status in lifecycle order.
var ParcelStatuses = []ParcelStatus{
	ParcelStatusPending,
	ParcelStatusPickedUp,
	ParcelStatusInTransit,
	ParcelStatusOutForDelivery,
	ParcelStatusDelivered,
	ParcelStatusFailed,
	ParcelStatusReturned,
}

// IsValid reports whether s is a known status.
func (s ParcelStatus) IsValid() bool {
	for _, known := range ParcelStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// PaymentType is how the parcel is paid for.
type PaymentType string

const (
	PaymentTypeCOD     PaymentType = "cod"
	PaymentTypePrepaid PaymentType = "prepaid"
)

// PaymentStatus tracks whether the parcel cost has been collected.
type PaymentStatus string

const (
	PaymentStatusDue  PaymentStatus = "due"
	PaymentStatusPaid PaymentStatus = "paid"
)

// Location is a geographic point.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate checks that the point lies within WGS84 bounds.
func (l Location) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Lat, validation.Min(-90.0), validation.Max(90.0)),
		validation.Field(&l.Lng, validation.Min(-180.0), validation.Max(180.0)),
	)
}

// Parcel is the snapshot of a parcel carried by parcel events.
// It is produced by the parcel service and is never persisted by the core.
type Parcel struct {
	ID               string        `json:"id"`
	TrackingNumber   string        `json:"trackingNumber"`
	SenderID         string        `json:"senderId"`
	SenderName       string        `json:"senderName,omitempty"`
	AgentID          string        `json:"agentId,omitempty"`
	RecipientName    string        `json:"recipientName,omitempty"`
	RecipientPhone   string        `json:"recipientPhone,omitempty"`
	RecipientAddress string        `json:"recipientAddress,omitempty"`
	PickupAddress    string        `json:"pickupAddress,omitempty"`
	Weight           float64       `json:"weight,omitempty"`
	Status           ParcelStatus  `json:"status"`
	PaymentType      PaymentType   `json:"paymentType,omitempty"`
	PaymentStatus    PaymentStatus `json:"paymentStatus,omitempty"`
	Cost             float64       `json:"cost,omitempty"`
	CurrentLocation  *Location     `json:"currentLocation,omitempty"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}

// HasAgent reports whether an agent is assigned.
func (p Parcel) HasAgent() bool {
	return p.AgentID != ""
}
