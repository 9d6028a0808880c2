package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mrlokans/librarian/internal/entities"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.AuditEvent{}))
	return NewRepository(db)
}

func event(userID uint, kind entities.AuditEventType, action string, at time.Time) *entities.AuditEvent {
	return &entities.AuditEvent{
		UserID:    userID,
		EventType: kind,
		Action:    action,
		Status:    entities.AuditStatusSuccess,
		CreatedAt: at,
	}
}

func TestRepository_LogEventStampsCreatedAt(t *testing.T) {
	repo := newTestRepository(t)
	e := event(1, entities.AuditEventBorrow, "book_borrow", time.Time{})

	require.NoError(t, repo.LogEvent(context.Background(), e))
	assert.NotZero(t, e.ID)
	assert.WithinDuration(t, time.Now().UTC(), e.CreatedAt, time.Minute)

	stored, err := repo.GetEventByID(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Equal(t, "book_borrow", stored.Action)

	_, err = repo.GetEventByID(context.Background(), e.ID+1)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepository_GetEvents(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	// Reader 1 borrows hourly, newest first. Reader 2 returns twice.
	for i := 0; i < 12; i++ {
		require.NoError(t, repo.LogEvent(ctx, event(1, entities.AuditEventBorrow, "book_borrow", base.Add(-time.Duration(i)*time.Hour))))
	}
	require.NoError(t, repo.LogEvent(ctx, event(2, entities.AuditEventReturn, "book_return", base.Add(time.Hour))))
	require.NoError(t, repo.LogEvent(ctx, event(2, entities.AuditEventReturn, "book_return", base.Add(2*time.Hour))))

	tests := []struct {
		name      string
		filter    Filter
		wantTotal int64
		wantPage  int
	}{
		{"everything", Filter{}, 14, 14},
		{"one reader", Filter{UserID: 1}, 12, 12},
		{"one type", Filter{EventType: entities.AuditEventReturn}, 2, 2},
		{"reader and type", Filter{UserID: 1, EventType: entities.AuditEventReturn}, 0, 0},
		{"first page", Filter{UserID: 1, Limit: 5}, 12, 5},
		{"last page", Filter{UserID: 1, Limit: 5, Offset: 10}, 12, 2},
		{"negative offset", Filter{UserID: 1, Limit: 5, Offset: -3}, 12, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, total, err := repo.GetEvents(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, total)
			assert.Len(t, events, tt.wantPage)
			for i := 1; i < len(events); i++ {
				assert.False(t, events[i].CreatedAt.After(events[i-1].CreatedAt), "newest first")
			}
		})
	}

	events, _, err := repo.GetEvents(ctx, Filter{})
	require.NoError(t, err)
	assert.Equal(t, base.Add(2*time.Hour), events[0].CreatedAt.UTC())
}

func TestRepository_DeleteOldEvents(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	cutoff := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.LogEvent(ctx, event(1, entities.AuditEventCatalog, "category_delete", cutoff.Add(-time.Minute))))
	require.NoError(t, repo.LogEvent(ctx, event(1, entities.AuditEventCatalog, "book_create", cutoff.Add(time.Minute))))

	deleted, err := repo.DeleteOldEvents(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	events, total, err := repo.GetEvents(ctx, Filter{})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	assert.Equal(t, "book_create", events[0].Action)

	deleted, err = repo.DeleteOldEvents(ctx, cutoff)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}
