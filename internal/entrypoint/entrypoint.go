package entrypoint

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/mrlokans/librarian/internal/audit"
	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/config"
	"github.com/mrlokans/librarian/internal/database"
	auditstore "github.com/mrlokans/librarian/internal/database/audit"
	"github.com/mrlokans/librarian/internal/database/borrows"
	"github.com/mrlokans/librarian/internal/database/catalog"
	reminderstore "github.com/mrlokans/librarian/internal/database/reminders"
	"github.com/mrlokans/librarian/internal/database/reviews"
	"github.com/mrlokans/librarian/internal/database/users"
	http_controllers "github.com/mrlokans/librarian/internal/http"
	"github.com/mrlokans/librarian/internal/library"
	"github.com/mrlokans/librarian/internal/notify"
	"github.com/mrlokans/librarian/internal/oauth2"
	"github.com/mrlokans/librarian/internal/reminders"
	"github.com/mrlokans/librarian/internal/scheduler"
	"github.com/mrlokans/librarian/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// App holds the wired services shared by the server and the maintenance commands.
type App struct {
	Config    *config.Config
	DB        *database.Database
	Auth      *auth.Service
	Audit     *audit.Service
	Ledger    *library.Ledger
	Catalog   *library.Catalog
	Reviews   *library.Reviews
	Sweeper   *reminders.Sweeper
	Transport notify.Transport
	Tasks     *tasks.Client // nil unless the task queue is enabled

	direct *notify.Direct
}

// GoogleProvider returns the Google sign-in provider, or nil when the client
// credentials are not configured.
func GoogleProvider(cfg *config.Config) oauth2.Provider {
	if !cfg.OAuth.GoogleEnabled() {
		return nil
	}
	return oauth2.NewGoogleProvider(cfg.OAuth)
}

// Policy converts the loan configuration into ledger rules. Unset values
// fall back to library.DefaultPolicy.
func Policy(cfg *config.Config) library.Policy {
	policy := library.DefaultPolicy()
	if cfg.Loans.Period > 0 {
		policy.LoanPeriod = cfg.Loans.Period
	}
	if cfg.Loans.FinePerDay > 0 {
		policy.FinePerDay = cfg.Loans.FinePerDay
	}
	if cfg.Reminders.Lead > 0 {
		policy.ReminderLead = cfg.Reminders.Lead
	}
	return policy
}

// NewApp opens the database and notification transport and builds the
// services on top. With withTasks the backlite queue is opened as well and
// loan notices are delivered through it.
func NewApp(cfg *config.Config, withTasks bool) (*App, error) {
	db, err := database.NewDatabase(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	transport, err := notify.NewTransport(cfg)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize %s notifications: %w", cfg.Notify.Transport, err)
	}

	app := &App{
		Config:    cfg,
		DB:        db,
		Transport: transport,
		Audit:     audit.NewService(auditstore.NewRepository(db.DB)),
		Auth:      auth.NewService(users.NewRepository(db.DB), cfg.Auth),
	}

	var notifier library.Notifier
	if withTasks && cfg.Tasks.Enabled {
		app.Tasks, err = tasks.NewClient(cfg.Database.Path, tasks.ConfigFrom(cfg.Tasks))
		if err != nil {
			_ = app.Close()
			return nil, fmt.Errorf("failed to initialize task queue: %w", err)
		}
		notifier = tasks.NewQueuedNotifier(app.Tasks)
	} else {
		app.direct = notify.NewDirect(transport)
		notifier = app.direct
	}

	policy := Policy(cfg)
	borrowRepo := borrows.NewRepository(db.DB)
	app.Ledger = library.NewLedger(borrowRepo, notifier, policy)
	app.Catalog = library.NewCatalog(catalog.NewRepository(db.DB))
	app.Reviews = library.NewReviews(reviews.NewRepository(db.DB), borrowRepo)
	app.Sweeper = reminders.NewSweeper(borrowRepo, reminderstore.NewRepository(db.DB), transport, policy)

	if app.Tasks != nil {
		app.Tasks.Register(
			tasks.NewSendNotificationQueue(transport),
			tasks.NewSweepRemindersQueue(app.Sweeper, app.Audit),
			tasks.NewCleanupAuditEventsQueue(app.Audit, app.Auth),
		)
	}
	return app, nil
}

// Close flushes pending audit writes and releases every connection.
func (a *App) Close() error {
	var errs []error
	if a.Audit != nil {
		a.Audit.Wait()
	}
	if a.direct != nil {
		a.direct.Wait()
	}
	if a.Tasks != nil {
		errs = append(errs, a.Tasks.Close())
	}
	if a.Transport != nil {
		errs = append(errs, a.Transport.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) error {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("starting server")
		// service connections
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// kill (no param) default send syscall.SIGTERM
	// kill -2 is syscall.SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serveErr:
		return fmt.Errorf("listen: %w", err)
	case <-quit:
	}
	log.Info().Dur("timeout", timeout).Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Call shutdown callback first (e.g., to stop task queue)
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	log.Info().Msg("server exiting")
	return nil
}

func Run(cfg *config.Config, version string) error {
	log.Info().Str("version", version).Str("driver", string(cfg.Database.Driver)).Msg("starting librarian")

	app, err := NewApp(cfg, true)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Error().Err(err).Msg("error closing resources")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if hasUsers, err := app.Auth.HasUsers(ctx); err == nil && !hasUsers {
		log.Warn().Msg("no users found; run 'librarian create-admin' or 'librarian seed' to create an administrator")
	}
	// Start task workers in background
	var taskQueue http_controllers.TaskQueue
	if app.Tasks != nil {
		taskQueue = app.Tasks
		go app.Tasks.Start(ctx)

		// Catch up on retention and token expiry missed while the server was down
		task := tasks.CleanupAuditEventsTask{RetentionDays: cfg.Audit.RetentionDays}
		if _, err := app.Tasks.Add(task).Ctx(ctx).Save(); err != nil {
			log.Warn().Err(err).Msg("failed to enqueue cleanup")
		}
	} else {
		log.Info().Msg("task queue disabled; notices are delivered inline")
		if purged, err := app.Auth.PurgeExpiredTokens(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to purge expired tokens")
		} else if purged > 0 {
			log.Info().Int64("purged", purged).Msg("purged expired access tokens")
		}
	}

	var sweepScheduler *scheduler.ReminderSweepScheduler
	if cfg.Reminders.SweepEnabled {
		sweepScheduler = scheduler.NewReminderSweepScheduler(cfg.Reminders.SweepSchedule, app.Sweeper, app.Audit)
		if err := sweepScheduler.Start(ctx); err != nil {
			return fmt.Errorf("failed to start reminder sweep: %w", err)
		}
	}

	auditCleanup := scheduler.NewAuditCleanupScheduler(cfg.Audit.CleanupSchedule, cfg.Audit.RetentionDays, app.Audit)
	if err := auditCleanup.Start(ctx); err != nil {
		return fmt.Errorf("failed to start audit cleanup: %w", err)
	}

	limiter := auth.NewRateLimiter(auth.RateLimitConfig{
		MaxAttempts:     cfg.Auth.MaxLoginAttempts,
		WindowDuration:  cfg.Auth.RateLimitWindow,
		LockoutDuration: cfg.Auth.LockoutDuration,
	})
	defer limiter.Stop()

	router := http_controllers.NewRouter(http_controllers.RouterConfig{
		Database:       app.DB,
		Ledger:         app.Ledger,
		Catalog:        app.Catalog,
		Reviews:        app.Reviews,
		Audit:          app.Audit,
		AuthService:    app.Auth,
		RateLimiter:    limiter,
		TaskQueue:      taskQueue,
		Sweeper:        app.Sweeper,
		Google:         GoogleProvider(cfg),
		FrontendURL:    cfg.OAuth.FrontendURL,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		Version:        version,
	})

	// Shutdown order: schedulers, then the task queue, then the HTTP server.
	onShutdown := func(ctx context.Context) {
		if sweepScheduler != nil {
			sweepScheduler.Stop()
		}
		auditCleanup.Stop()
		if app.Tasks != nil {
			app.Tasks.Stop(ctx)
		}
	}

	return Serve(router, cfg, onShutdown)
}
