package parcelhub

import (
	"fmt"
)

// HubOption is a function that configures a Hub.
//
// Example:
//
//	hub, err := parcelhub.NewHub(
//	    parcelhub.WithVerifier(verifier),
//	    parcelhub.WithNotificationRepository(repos.Notification),
//	    parcelhub.WithLogger(logger),
//	    parcelhub.WithBacklogLimit(50), // optional
//	)
type HubOption func(*Hub) error

// WithVerifier sets the identity verifier used on connect.
//
// This is a required option for NewHub.
func WithVerifier(verifier IdentityVerifier) HubOption {
	return func(h *Hub) error {
		if verifier == nil {
			return fmt.Errorf("verifier cannot be nil")
		}
		h.verifier = verifier
		return nil
	}
}

// WithNotificationRepository sets the durable notification store.
//
// This is a required option for NewHub.
func WithNotificationRepository(repo NotificationRepository) HubOption {
	return func(h *Hub) error {
		if repo == nil {
			return fmt.Errorf("notification repository cannot be nil")
		}
		h.notifications = repo
		return nil
	}
}

// WithLogger sets the logger instance for the hub.
// Optional: NoopLogger is used when not provided.
//
// Use NoopLogger for silent operation or implement Logger interface
// to integrate with your logging system (zap, logrus, etc.).
func WithLogger(logger Logger) HubOption {
	return func(h *Hub) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		h.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics sink. Optional: NoopMetrics by default.
func WithMetrics(metrics Metrics) HubOption {
	return func(h *Hub) error {
		if metrics == nil {
			return fmt.Errorf("metrics cannot be nil")
		}
		h.metrics = metrics
		return nil
	}
}

// WithParcelCommands sets the collaborator that applies status and location
// updates sent by clients. Optional: without it those messages are only logged.
func WithParcelCommands(commands ParcelCommands) HubOption {
	return func(h *Hub) error {
		if commands == nil {
			return fmt.Errorf("parcel commands cannot be nil")
		}
		h.parcels = commands
		return nil
	}
}

// WithBacklogLimit caps the unread notifications delivered on connect.
// Optional: 0 (default) delivers the whole backlog in one batch.
func WithBacklogLimit(limit int) HubOption {
	return func(h *Hub) error {
		if limit < 0 {
			return fmt.Errorf("backlog limit must be >= 0, got %d", limit)
		}
		h.backlogLimit = limit
		return nil
	}
}
