package tasks

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mikestefanello/backlite"
	"github.com/rs/zerolog/log"
)

// Client owns the notification, sweep and cleanup queues. Tasks live in their
// own SQLite file next to the library database, whichever driver the library
// itself uses.
type Client struct {
	queue   *backlite.Client
	db      *sql.DB
	workers int
	running atomic.Bool
}

func NewClient(libraryDBPath string, cfg Config) (*Client, error) {
	db, err := openQueueDB(TasksDBPath(libraryDBPath), cfg.Workers)
	if err != nil {
		return nil, err
	}

	queue, err := backlite.NewClient(backlite.ClientConfig{
		DB:              db,
		NumWorkers:      cfg.Workers,
		ReleaseAfter:    cfg.ReleaseAfter,
		CleanupInterval: cfg.CleanupInterval,
		Logger:          queueLogger{},
	})
	if err == nil {
		err = queue.Install()
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set up task queue: %w", err)
	}

	return &Client{queue: queue, db: db, workers: cfg.Workers}, nil
}

func openQueueDB(path string, workers int) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal=WAL&_timeout=5000&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open tasks database %s: %w", path, err)
	}
	db.SetMaxOpenConns(workers + 5)
	db.SetMaxIdleConns(workers + 2)
	db.SetConnMaxLifetime(time.Hour)
	return db, nil
}

// Register adds queues. Call it before Start.
func (c *Client) Register(queues ...backlite.Queue) {
	for _, q := range queues {
		c.queue.Register(q)
	}
}

// Start runs the workers until Stop. Calling it twice has no effect.
func (c *Client) Start(ctx context.Context) {
	if !c.running.CompareAndSwap(false, true) {
		return
	}
	log.Info().Int("workers", c.workers).Msg("task queue started")
	c.queue.Start(ctx)
}

// Stop waits for in-flight tasks and reports whether they all finished before
// ctx expired.
func (c *Client) Stop(ctx context.Context) bool {
	if !c.running.Load() {
		return true
	}
	if c.queue.Stop(ctx) {
		log.Info().Msg("task queue drained")
		return true
	}
	log.Warn().Msg("task queue stopped before in-flight tasks finished")
	return false
}

// Close releases the tasks database. Call it after Stop.
func (c *Client) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

func (c *Client) Add(tasks ...backlite.Task) *backlite.TaskAddOp {
	return c.queue.Add(tasks...)
}

func (c *Client) Status(ctx context.Context, taskID string) (backlite.TaskStatus, error) {
	return c.queue.Status(ctx, taskID)
}

// TasksDBPath maps data/librarian.db to data/librarian-tasks.db.
func TasksDBPath(libraryDBPath string) string {
	ext := filepath.Ext(libraryDBPath)
	return strings.TrimSuffix(libraryDBPath, ext) + "-tasks" + ext
}

// queueLogger routes backlite's key/value logging through zerolog.
type queueLogger struct{}

func (queueLogger) Info(message string, params ...any) {
	log.Debug().Str("component", "tasks").Fields(params).Msg(message)
}

func (queueLogger) Error(message string, params ...any) {
	log.Error().Str("component", "tasks").Fields(params).Msg(message)
}
