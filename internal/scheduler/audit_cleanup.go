package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mrlokans/librarian/internal/config"
)

// AuditEventCleaner deletes audit events older than a retention period.
type AuditEventCleaner interface {
	DeleteOldEvents(ctx context.Context, retention time.Duration) (int64, error)
}

// AuditCleanupScheduler enforces the audit retention period.
type AuditCleanupScheduler struct {
	*job
	cleaner   AuditEventCleaner
	retention time.Duration
}

func NewAuditCleanupScheduler(schedule string, retentionDays int, cleaner AuditEventCleaner) *AuditCleanupScheduler {
	s := &AuditCleanupScheduler{
		cleaner:   cleaner,
		retention: config.AuditRetention(retentionDays),
	}
	s.job = newJob("audit_cleanup", schedule, func(ctx context.Context) {
		_, _ = s.RunNow(ctx)
	})
	return s
}

// RunNow deletes expired audit events immediately.
func (s *AuditCleanupScheduler) RunNow(ctx context.Context) (int64, error) {
	deleted, err := s.cleaner.DeleteOldEvents(ctx, s.retention)
	if err != nil {
		log.Error().Err(err).Msg("audit cleanup failed")
		return 0, err
	}
	log.Info().Int64("deleted", deleted).Dur("retention", s.retention).Msg("audit cleanup finished")
	return deleted, nil
}
