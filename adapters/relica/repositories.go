package relica

import (
	"database/sql"

	"github.com/coregx/parcelhub"
)

// DefaultTablePrefix is prepended to every parcelhub table name.
const DefaultTablePrefix = "parcelhub_"

var (
	_ parcelhub.NotificationRepository = (*NotificationRepository)(nil)
	_ parcelhub.IdentityRepository     = (*IdentityRepository)(nil)
)

// Repositories holds all repository implementations.
type Repositories struct {
	Notification parcelhub.NotificationRepository
	Identity     parcelhub.IdentityRepository
}

// NewRepositories creates all repository implementations using Relica.
//
// The db parameter should be an *sql.DB connected to MySQL, PostgreSQL, or SQLite.
// The driverName should be "mysql", "postgres", or "sqlite3".
// The table prefix defaults to "parcelhub_" but can be customized.
func NewRepositories(db *sql.DB, driverName string) *Repositories {
	return NewRepositoriesWithPrefix(db, driverName, DefaultTablePrefix)
}

// NewRepositoriesWithPrefix creates all repository implementations with a custom table prefix.
func NewRepositoriesWithPrefix(db *sql.DB, driverName, prefix string) *Repositories {
	return &Repositories{
		Notification: NewNotificationRepositoryWithPrefix(db, driverName, prefix),
		Identity:     NewIdentityRepositoryWithPrefix(db, driverName, prefix),
	}
}
