package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Severity classifies a notification record.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// IsValid reports whether s is one of the known severities.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityInfo, SeveritySuccess, SeverityWarning, SeverityError:
		return true
	}
	return false
}

// IsAlertLevel reports whether s may label a system alert: info, warning or error.
func (s Severity) IsAlertLevel() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityError:
		return true
	}
	return false
}

// Notification is a durable message addressed to one identity, independent of
// whether that identity is currently connected.
//
// Records are created by the ledger and owned by the external notification store.
// Only the read flag changes after creation, and only through the CRUD layer.
type Notification struct {
	ID              int64     `json:"id" db:"id" bson:"_id"`
	IdentityID      string    `json:"identityId" db:"identity_id" bson:"identityId"`
	Message         string    `json:"message" db:"message" bson:"message"`
	Severity        Severity  `json:"severity" db:"severity" bson:"severity"`
	RelatedEntityID string    `json:"relatedEntityId,omitempty" db:"related_entity_id" bson:"relatedEntityId,omitempty"`
	IsRead          bool      `json:"read" db:"is_read" bson:"read"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at" bson:"createdAt"`
}

// TableName returns the database table name for Notification.
func (n Notification) TableName() string {
	return tablePrefix + "notification"
}

// NewNotification creates an unread notification record.
// An empty severity defaults to SeverityInfo.
//
// Parameters:
//   - identityID: Target identity
//   - message: Human-readable text
//   - severity: info, success, warning or error
//   - relatedEntityID: Optional related entity (usually a parcel id), empty for none
func NewNotification(identityID, message string, severity Severity, relatedEntityID string) Notification {
	if severity == "" {
		severity = SeverityInfo
	}
	return Notification{
		ID:              0,
		IdentityID:      identityID,
		Message:         message,
		Severity:        severity,
		RelatedEntityID: relatedEntityID,
		IsRead:          false,
		CreatedAt:       time.Now(),
	}
}

// MarkRead flips the read flag.
func (n *Notification) MarkRead() {
	n.IsRead = true
}

// Validate checks the record before it is persisted.
func (n Notification) Validate() error {
	return validation.ValidateStruct(&n,
		validation.Field(&n.IdentityID, validation.Required),
		validation.Field(&n.Message, validation.Required, validation.Length(1, 1000)),
		validation.Field(&n.Severity, validation.Required, validation.In(
			SeverityInfo, SeveritySuccess, SeverityWarning, SeverityError,
		)),
	)
}
