package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/rs/zerolog/log"

	"github.com/mrlokans/librarian/internal/config"
)

// AuditEventCleaner deletes audit events older than a retention period.
type AuditEventCleaner interface {
	DeleteOldEvents(ctx context.Context, retention time.Duration) (int64, error)
}

// TokenPurger deletes bearer tokens past their expiry.
type TokenPurger interface {
	PurgeExpiredTokens(ctx context.Context) (int64, error)
}

// CleanupAuditEventsTask enforces audit retention and drops expired access
// tokens. It is enqueued at startup so retention missed while the server was
// down is caught up.
type CleanupAuditEventsTask struct {
	RetentionDays int `json:"retention_days"`
}

// Config retries a few times; the cleanup is idempotent.
func (t CleanupAuditEventsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "cleanup_audit_events",
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration: 24 * time.Hour,
			Data:     &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// CleanupAuditEventsProcessor runs both cleanups. tokens may be nil.
func CleanupAuditEventsProcessor(cleaner AuditEventCleaner, tokens TokenPurger) backlite.QueueProcessor[CleanupAuditEventsTask] {
	return func(ctx context.Context, task CleanupAuditEventsTask) error {
		if cleaner == nil {
			return errors.New("audit event cleaner not configured")
		}

		retention := config.AuditRetention(task.RetentionDays)
		events, err := cleaner.DeleteOldEvents(ctx, retention)
		if err != nil {
			return fmt.Errorf("cleanup audit events: %w", err)
		}

		var purged int64
		if tokens != nil {
			if purged, err = tokens.PurgeExpiredTokens(ctx); err != nil {
				return fmt.Errorf("purge expired tokens: %w", err)
			}
		}

		log.Info().
			Int64("audit_events", events).
			Int64("access_tokens", purged).
			Dur("retention", retention).
			Msg("cleanup finished")
		return nil
	}
}

// NewCleanupAuditEventsQueue creates a backlite queue for cleanup tasks.
func NewCleanupAuditEventsQueue(cleaner AuditEventCleaner, tokens TokenPurger) backlite.Queue {
	return backlite.NewQueue(CleanupAuditEventsProcessor(cleaner, tokens))
}
