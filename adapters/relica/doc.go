// Package relica provides repository implementations using Relica query builder.
//
// Relica (github.com/coregx/relica) is a lightweight, type-safe database query builder
// for Go with zero production dependencies.
//
// This package provides implementations of the parcelhub repository interfaces:
//   - NotificationRepository (parcelhub_notification)
//   - IdentityRepository (parcelhub_user, read only)
//
// Example usage:
//
//	import (
//	    "database/sql"
//	    "github.com/coregx/parcelhub"
//	    "github.com/coregx/parcelhub/adapters/relica"
//	    _ "github.com/go-sql-driver/mysql"
//	)
//
//	// Open database connection
//	db, err := sql.Open("mysql", "user:pass@tcp(localhost:3306)/parcelhub?parseTime=true")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Create repositories (driverName should be "mysql", "postgres", or "sqlite3")
//	repos := relica.NewRepositories(db, "mysql")
//
//	verifier, err := parcelhub.NewJWTVerifier(secret, repos.Identity)
//	hub, err := parcelhub.NewHub(
//	    parcelhub.WithVerifier(verifier),
//	    parcelhub.WithNotificationRepository(repos.Notification),
//	)
package relica
