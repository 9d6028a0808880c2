package tasks

import (
	"time"

	"github.com/mrlokans/librarian/internal/config"
)

const (
	defaultWorkers         = 2
	defaultReleaseAfter    = 15 * time.Minute
	defaultCleanupInterval = time.Hour
)

// Config sizes the worker pool behind the queue.
type Config struct {
	Workers         int
	ReleaseAfter    time.Duration // claimed tasks older than this go back to the queue
	CleanupInterval time.Duration // how often finished tasks past retention are removed
}

func DefaultConfig() Config {
	return Config{
		Workers:         defaultWorkers,
		ReleaseAfter:    defaultReleaseAfter,
		CleanupInterval: defaultCleanupInterval,
	}
}

// ConfigFrom maps the TASKS_* settings, keeping defaults for unset values.
func ConfigFrom(cfg config.Tasks) Config {
	out := DefaultConfig()
	if cfg.Workers > 0 {
		out.Workers = cfg.Workers
	}
	if cfg.ReleaseAfter > 0 {
		out.ReleaseAfter = cfg.ReleaseAfter
	}
	if cfg.CleanupInterval > 0 {
		out.CleanupInterval = cfg.CleanupInterval
	}
	return out
}
