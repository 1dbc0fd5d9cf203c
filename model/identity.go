// Package model contains the domain records the real-time core reads and writes:
// identities, notification records and the parcel snapshots carried by events.
package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// tablePrefix is prepended to every table name owned by parcelhub.
const tablePrefix = "parcelhub_"

// Role is the account role an identity carries for the lifetime of a connection.
type Role string

const (
	// RoleAdmin is the privileged role. Admin connections join the shared role topic.
	RoleAdmin Role = "admin"

	// RoleAgent is a delivery agent. Agent presence is reported to admins.
	RoleAgent Role = "agent"

	// RoleCustomer is a parcel sender.
	RoleCustomer Role = "customer"
)

// IsValid reports whether r is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleAgent, RoleCustomer:
		return true
	}
	return false
}

// IsPrivileged reports whether connections of this role join the privileged topic.
func (r Role) IsPrivileged() bool {
	return r == RoleAdmin
}

// Identity is the authenticated account bound to a connection.
// It is resolved once at connection time and never mutated afterwards.
type Identity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// User is the minimal identity record read from the external user store.
// Everything else about users (credentials, profile) belongs to the CRUD layer.
type User struct {
	ID        string    `json:"id" db:"id" bson:"_id"`
	Name      string    `json:"name" db:"name" bson:"name"`
	Email     string    `json:"email" db:"email" bson:"email"`
	Role      Role      `json:"role" db:"role" bson:"role"`
	IsActive  bool      `json:"isActive" db:"is_active" bson:"isActive"`
	CreatedAt time.Time `json:"createdAt" db:"created_at" bson:"createdAt"`
}

// TableName returns the database table name for User.
func (u User) TableName() string {
	return tablePrefix + "user"
}

// NewUser creates an active user record.
func NewUser(id, name, email string, role Role) User {
	return User{
		ID:        id,
		Name:      name,
		Email:     email,
		Role:      role,
		IsActive:  true,
		CreatedAt: time.Now(),
	}
}

// Identity projects the user onto the identity bound to connections.
func (u User) Identity() Identity {
	return Identity{ID: u.ID, Name: u.Name, Role: u.Role}
}

// Validate checks the identity fields the core relies on.
func (i Identity) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.ID, validation.Required),
		validation.Field(&i.Role, validation.Required, validation.By(func(value interface{}) error {
			if r, _ := value.(Role); !r.IsValid() {
				return validation.NewError("validation_role_invalid", "must be admin, agent or customer")
			}
			return nil
		})),
	)
}
