package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/tasknotify/internal/api"
	"github.com/phrazzld/tasknotify/internal/api/middleware"
	"github.com/phrazzld/tasknotify/internal/config"
	"github.com/phrazzld/tasknotify/internal/notify"
	"github.com/phrazzld/tasknotify/internal/platform/email"
	"github.com/phrazzld/tasknotify/internal/platform/postgres"
	"github.com/phrazzld/tasknotify/internal/platform/webpush"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	scanner *notify.Scanner
	router  http.Handler
}

// newApplication wires stores, channels, the orchestrator, the scanner and
// the operator router.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	tasks := postgres.NewPostgresTaskStore(db, logger)
	subs := postgres.NewPostgresSubscriptionStore(db, logger)
	users := postgres.NewPostgresUserStore(db, logger)
	attempts := postgres.NewPostgresAttemptStore(db, logger)

	deps := notify.OrchestratorDeps{
		Tasks:         tasks,
		Subscriptions: subs,
		Identity:      users,
		Auditor:       notify.NewAuditor(attempts, logger),
	}
	adminDeps := api.AdminDeps{
		Attempts:    attempts,
		Rescheduler: postgres.NewTaskRescheduler(db, logger),
	}

	if cfg.Push.Enabled {
		push, err := webpush.NewSender(webpush.Config{
			VAPIDPublicKey:  cfg.Push.VAPIDPublicKey,
			VAPIDPrivateKey: cfg.Push.VAPIDPrivateKey,
			Subject:         cfg.Push.Subject,
			TTLSeconds:      cfg.Push.TTLSeconds,
			Urgency:         cfg.Push.Urgency,
			MaxPayloadBytes: cfg.Push.MaxPayloadBytes,
		}, subs, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize push sender: %w", err)
		}
		deps.Push = push
		logger.Info("push channel enabled", slog.Int("ttl_seconds", cfg.Push.TTLSeconds))
	}

	if cfg.Email.Enabled {
		mailer, err := setupEmailSender(cfg.Email, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize email sender: %w", err)
		}
		deps.Email = mailer
		adminDeps.Mailer = mailer
		logger.Info("email channel enabled",
			slog.String("smtp_host", cfg.Email.SMTPHost),
			slog.String("tls_mode", cfg.Email.TLSMode))
	}

	orchestrator, err := notify.NewOrchestrator(notify.OrchestratorConfig{
		SendConcurrency: cfg.Scheduler.SendConcurrency,
		SendTimeout:     cfg.Scheduler.SendTimeout,
		ClaimBeforeSend: cfg.Scheduler.ClaimBeforeSend,
	}, deps, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create orchestrator: %w", err)
	}

	app.scanner, err = notify.NewScanner(notify.ScannerConfig{
		Window: notify.Window{
			LookBack:  cfg.Scheduler.LookBack,
			LookAhead: cfg.Scheduler.LookAhead,
		},
		TickInterval:    cfg.Scheduler.TickInterval,
		TaskConcurrency: cfg.Scheduler.TaskConcurrency,
		RunOnStart:      cfg.Scheduler.RunOnStart,
	}, tasks, orchestrator, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create scanner: %w", err)
	}
	adminDeps.Scanner = app.scanner

	auth, err := middleware.NewAuthMiddleware(cfg.Auth.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth middleware: %w", err)
	}

	app.router = api.NewRouter(api.NewAdminHandler(adminDeps, logger), auth, logger)

	logger.Info("application initialized successfully")
	return app, nil
}

func setupEmailSender(cfg config.EmailConfig, logger *slog.Logger) (*email.Sender, error) {
	location, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid email time zone %q: %w", cfg.TimeZone, err)
	}

	renderer, err := email.NewRenderer(cfg.FrontendURL, location)
	if err != nil {
		return nil, err
	}

	transport, err := email.NewSMTPTransport(email.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.Username,
		Password: cfg.Password,
		TLSMode:  cfg.TLSMode,
	})
	if err != nil {
		return nil, err
	}

	return email.NewSender(cfg.From, renderer, transport, logger)
}
