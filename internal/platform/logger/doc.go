// Package logger provides structured logging functionality for the application.
//
// It utilizes Go's standard library log/slog package to implement structured JSON logging
// with configurable log levels, and carries request- or scan-scoped loggers through
// context.Context so stores and senders log with the caller's correlation fields.
package logger
