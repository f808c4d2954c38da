// Package main runs the due-task notification service: the periodic
// scanner, the push and email channels, and the operator HTTP surface.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/phrazzld/tasknotify/internal/api/middleware"
	"github.com/phrazzld/tasknotify/internal/config"
	"github.com/phrazzld/tasknotify/internal/platform/logger"
)

type flags struct {
	migrate       string
	operatorToken string
	tokenLifetime time.Duration
}

func parseFlags(args []string, output io.Writer) (flags, error) {
	var f flags
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&f.migrate, "migrate", "", "run a migration command (up, down, status, version) and exit")
	fs.StringVar(&f.operatorToken, "operator-token", "", "print an operator token for the given subject and exit")
	fs.DurationVar(&f.tokenLifetime, "token-lifetime", 24*time.Hour, "lifetime of the token printed by -operator-token")
	if err := fs.Parse(args); err != nil {
		return flags{}, err
	}
	return f, nil
}

func main() {
	os.Exit(run(os.Args[1:]))
}

// run returns the process exit code.
func run(args []string) int {
	f, err := parseFlags(args, os.Stderr)
	if err != nil {
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		log.Printf("Failed to load configuration: %v", err)
		return 1
	}

	appLogger, err := logger.Setup(logger.LoggerConfig{Level: cfg.Server.LogLevel})
	if err != nil {
		log.Printf("Failed to set up logger: %v", err)
		return 1
	}

	if f.operatorToken != "" {
		token, err := middleware.IssueOperatorToken(cfg.Auth.JWTSecret, f.operatorToken, f.tokenLifetime, time.Now())
		if err != nil {
			appLogger.Error("failed to issue operator token", slog.String("error", err.Error()))
			return 1
		}
		fmt.Println(token)
		return 0
	}

	appLogger.Info("server configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel),
		slog.Bool("scheduler_enabled", cfg.Scheduler.Enabled),
		slog.Bool("push_enabled", cfg.Push.Enabled),
		slog.Bool("email_enabled", cfg.Email.Enabled))

	ctx := context.Background()

	db, err := setupAppDatabase(ctx, cfg.Database, appLogger)
	if err != nil {
		appLogger.Error("failed to connect to database", slog.String("error", err.Error()))
		return 1
	}

	if f.migrate != "" {
		defer func() { _ = db.Close() }()
		if err := runMigrations(ctx, db, f.migrate, appLogger); err != nil {
			appLogger.Error("migration failed",
				slog.String("command", f.migrate),
				slog.String("error", err.Error()))
			return 1
		}
		return 0
	}

	if cfg.Database.AutoMigrate {
		if err := runMigrations(ctx, db, "up", appLogger); err != nil {
			_ = db.Close()
			appLogger.Error("automatic migration failed", slog.String("error", err.Error()))
			return 1
		}
	}

	app, err := newApplication(cfg, appLogger, db)
	if err != nil {
		_ = db.Close()
		appLogger.Error("failed to initialize application", slog.String("error", err.Error()))
		return 1
	}

	return app.Run(ctx)
}
