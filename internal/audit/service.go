// Package audit records who did what to the library. Writes happen in the
// background so request handlers never wait on the audit table.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/mrlokans/librarian/internal/database/audit"
	"github.com/mrlokans/librarian/internal/entities"
)

const maxTextLen = 500

type Service struct {
	repo    *audit.Repository
	pending sync.WaitGroup
}

func NewService(repo *audit.Repository) *Service {
	return &Service{repo: repo}
}

// Log writes an event synchronously.
func (s *Service) Log(ctx context.Context, event *entities.AuditEvent) error {
	return s.repo.LogEvent(ctx, event)
}

// LogAsync writes an event on its own goroutine. Failures are logged and
// otherwise dropped.
func (s *Service) LogAsync(event *entities.AuditEvent) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.repo.LogEvent(context.Background(), event); err != nil {
			log.Error().Err(err).
				Str("eventType", string(event.EventType)).
				Str("action", event.Action).
				Msg("failed to write audit event")
		}
	}()
}

// Wait blocks until every background write has finished.
func (s *Service) Wait() {
	s.pending.Wait()
}

func newEvent(userID uint, kind entities.AuditEventType, action, description string) *entities.AuditEvent {
	return &entities.AuditEvent{
		UserID:      userID,
		EventType:   kind,
		Action:      action,
		Description: clip(description),
		Status:      entities.AuditStatusSuccess,
	}
}

func (s *Service) LogBorrow(userID, bookID, borrowID uint, err error) {
	e := newEvent(userID, entities.AuditEventBorrow, "book_borrow", fmt.Sprintf("Borrowed book %d", bookID))
	e.EntityType, e.EntityID = "book", &bookID
	e.Metadata = encodeMetadata(map[string]any{"borrowId": borrowID})
	s.LogAsync(outcome(e, err))
}

// LogReturn also stores the fine charged, zero for on-time returns.
func (s *Service) LogReturn(userID, borrowID uint, fine int, err error) {
	e := newEvent(userID, entities.AuditEventReturn, "book_return", fmt.Sprintf("Returned loan %d", borrowID))
	e.EntityType, e.EntityID = "borrow", &borrowID
	e.Metadata = encodeMetadata(map[string]any{"fine": fine})
	s.LogAsync(outcome(e, err))
}

// LogExport records a CSV export. userID is zero for CLI exports.
func (s *Service) LogExport(userID uint, rows int, err error) {
	e := newEvent(userID, entities.AuditEventExport, "borrow_history_csv", fmt.Sprintf("Exported %d borrow records", rows))
	s.LogAsync(outcome(e, err))
}

func (s *Service) LogReview(userID, bookID uint, rating int) {
	e := newEvent(userID, entities.AuditEventReview, "review_create", fmt.Sprintf("Rated book %d with %d", bookID, rating))
	e.EntityType, e.EntityID = "book", &bookID
	s.LogAsync(e)
}

// LogCatalog records an admin change to a book or category.
func (s *Service) LogCatalog(userID uint, action, entityType string, entityID uint, description string) {
	e := newEvent(userID, entities.AuditEventCatalog, action, description)
	e.EntityType, e.EntityID = entityType, &entityID
	s.LogAsync(e)
}

func (s *Service) LogAuth(userID uint, action string, ipAddr, userAgent string, success bool) {
	e := newEvent(userID, entities.AuditEventAuth, action, "")
	e.IPAddress = ipAddr
	e.UserAgent = clip(userAgent)
	if !success {
		e.Status = entities.AuditStatusFailed
	}
	s.LogAsync(e)
}

// LogReminder records a sweep run. Sweeps have no acting user.
func (s *Service) LogReminder(action, description string, err error) {
	s.LogAsync(outcome(newEvent(0, entities.AuditEventReminder, action, description), err))
}

func (s *Service) GetEvents(ctx context.Context, filter audit.Filter) ([]entities.AuditEvent, int64, error) {
	return s.repo.GetEvents(ctx, filter)
}

// DeleteOldEvents drops events created more than retention ago.
func (s *Service) DeleteOldEvents(ctx context.Context, retention time.Duration) (int64, error) {
	return s.repo.DeleteOldEvents(ctx, time.Now().UTC().Add(-retention))
}

func outcome(e *entities.AuditEvent, err error) *entities.AuditEvent {
	if err == nil {
		return e
	}
	e.Status = entities.AuditStatusFailed
	e.ErrorMsg = clip(err.Error())
	return e
}

func encodeMetadata(values map[string]any) string {
	data, err := json.Marshal(values)
	if err != nil {
		return ""
	}
	return string(data)
}

func clip(s string) string {
	if len(s) <= maxTextLen {
		return s
	}
	cut := maxTextLen - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
