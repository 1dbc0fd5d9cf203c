package parcelhub

import (
	"context"
	"fmt"

	"github.com/coregx/parcelhub/model"
)

// Ledger persists notification records and pushes them to connected identities.
//
// A record is always written before its live event is emitted, so an identity
// that is offline (or whose event was dropped) still finds the record in its
// unread backlog on the next connect.
type Ledger struct {
	repo         NotificationRepository
	broadcaster  *Broadcaster
	logger       Logger
	metrics      Metrics
	backlogLimit int
}

// LedgerOption configures a Ledger.
type LedgerOption func(*Ledger) error

// NewLedger creates a Ledger with the provided options.
//
// Required options:
//   - WithLedgerRepository: notification store
//   - WithLedgerBroadcaster: broadcaster used for live events
//
// Example:
//
//	ledger, err := parcelhub.NewLedger(
//	    parcelhub.WithLedgerRepository(repos.Notification),
//	    parcelhub.WithLedgerBroadcaster(broadcaster),
//	    parcelhub.WithLedgerLogger(logger),
//	)
func NewLedger(opts ...LedgerOption) (*Ledger, error) {
	l := &Ledger{
		logger:  &NoopLogger{},
		metrics: NoopMetrics{},
	}

	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to apply ledger option", err)
		}
	}

	if l.repo == nil {
		return nil, NewError(ErrCodeConfiguration, "NotificationRepository is required (use WithLedgerRepository)")
	}
	if l.broadcaster == nil {
		return nil, NewError(ErrCodeConfiguration, "Broadcaster is required (use WithLedgerBroadcaster)")
	}

	return l, nil
}

// WithLedgerRepository sets the notification store.
func WithLedgerRepository(repo NotificationRepository) LedgerOption {
	return func(l *Ledger) error {
		if repo == nil {
			return fmt.Errorf("notification repository cannot be nil")
		}
		l.repo = repo
		return nil
	}
}

// WithLedgerBroadcaster sets the broadcaster used for live events.
func WithLedgerBroadcaster(b *Broadcaster) LedgerOption {
	return func(l *Ledger) error {
		if b == nil {
			return fmt.Errorf("broadcaster cannot be nil")
		}
		l.broadcaster = b
		return nil
	}
}

// WithLedgerLogger sets the logger instance.
func WithLedgerLogger(logger Logger) LedgerOption {
	return func(l *Ledger) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		l.logger = logger
		return nil
	}
}

// WithLedgerMetrics sets the metrics sink.
func WithLedgerMetrics(metrics Metrics) LedgerOption {
	return func(l *Ledger) error {
		if metrics == nil {
			return fmt.Errorf("metrics cannot be nil")
		}
		l.metrics = metrics
		return nil
	}
}

// WithLedgerBacklogLimit caps the number of unread records delivered on connect.
// Zero (the default) delivers the whole backlog.
func WithLedgerBacklogLimit(limit int) LedgerOption {
	return func(l *Ledger) error {
		if limit < 0 {
			return fmt.Errorf("backlog limit must be >= 0, got %d", limit)
		}
		l.backlogLimit = limit
		return nil
	}
}

// Notify persists a notification for target and, once stored, emits
// notification:new to the target's identity topic.
//
// If the store write fails nothing is emitted and a PERSISTENCE_FAILURE error
// is returned; retrying is up to the caller. An offline target is not an error.
func (l *Ledger) Notify(ctx context.Context, target, message string, severity model.Severity, relatedEntityID string) (model.Notification, error) {
	n := model.NewNotification(target, message, severity, relatedEntityID)
	if err := n.Validate(); err != nil {
		return model.Notification{}, NewErrorWithCause(ErrCodeValidation, "invalid notification", err)
	}

	saved, err := l.repo.Save(ctx, n)
	if err != nil {
		l.metrics.NotificationFailed()
		l.logger.Errorf("Failed to persist notification for %s: %v", target, err)
		return model.Notification{}, NewErrorWithCause(ErrCodePersistence, "failed to persist notification", err)
	}
	l.metrics.NotificationPersisted(saved.Severity)

	delivered := l.broadcaster.EmitToTopic(IdentityTopic(target), EventNotificationNew, NotificationNew{
		ID:              saved.ID,
		IdentityID:      saved.IdentityID,
		Message:         saved.Message,
		Severity:        saved.Severity,
		RelatedEntityID: saved.RelatedEntityID,
		Timestamp:       saved.CreatedAt,
	})
	l.logger.Infof("Notification %d stored for %s (live deliveries: %d)", saved.ID, target, delivered)

	return saved, nil
}

// FlushBacklog sends the unread records of identityID to one connection as a
// single notifications:pending event, newest first. Nothing is sent when the
// backlog is empty. Returns the number of records delivered.
func (l *Ledger) FlushBacklog(ctx context.Context, connID, identityID string) (int, error) {
	pending, err := l.repo.FindByIdentity(ctx, identityID, true, l.backlogLimit)
	if err != nil {
		if IsNoData(err) {
			return 0, nil
		}
		return 0, NewErrorWithCause(ErrCodeDatabase, "failed to load unread notifications", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	if l.broadcaster.EmitToConnection(connID, EventNotificationsPending, NotificationsPending{
		Notifications: pending,
		Count:         len(pending),
	}) == 0 {
		return 0, nil
	}

	l.logger.Debugf("Delivered %d pending notifications to %s", len(pending), connID)
	return len(pending), nil
}
