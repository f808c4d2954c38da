package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
)

const readHeaderTimeout = 10 * time.Second

// Run starts the scanner and the HTTP server and blocks until a shutdown
// signal has been handled. It returns the process exit code.
func (app *application) Run(ctx context.Context) int {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", app.config.Server.Port))
	if err != nil {
		app.logger.Error("failed to listen", slog.String("error", err.Error()))
		app.closeDB()
		return 1
	}
	return app.serve(ctx, listener)
}

func (app *application) serve(ctx context.Context, listener net.Listener) int {
	server := &http.Server{
		Handler:           app.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	if app.config.Scheduler.Enabled {
		if err := app.scanner.Start(ctx); err != nil {
			app.logger.Error("failed to start scanner", slog.String("error", err.Error()))
			_ = listener.Close()
			app.closeDB()
			return 1
		}
	}

	serveErr := make(chan error, 1)
	go func() {
		app.logger.Info("starting server", slog.String("addr", listener.Addr().String()))
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	timeout := app.config.Server.ShutdownTimeout
	wait := gfshutdown.GracefulShutdown(context.Background(), timeout, map[string]gfshutdown.Operation{
		"application": func(ctx context.Context) error {
			return app.shutdown(ctx, server)
		},
	})

	select {
	case code := <-wait:
		return code
	case err := <-serveErr:
		app.logger.Error("server failed", slog.String("error", err.Error()))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		_ = app.shutdown(shutdownCtx, server)
		return 1
	}
}

// shutdown stops accepting requests, waits for the scanner to finish its
// current run and closes the database.
func (app *application) shutdown(ctx context.Context, server *http.Server) error {
	app.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, app.config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown failed: %w", err))
	}

	app.scanner.Stop()
	app.closeDB()

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	app.logger.Info("shutdown completed")
	return nil
}

func (app *application) closeDB() {
	if app.db == nil {
		return
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database connection", slog.String("error", err.Error()))
	}
}
