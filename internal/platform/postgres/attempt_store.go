package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/tasknotify/internal/domain"
	"github.com/phrazzld/tasknotify/internal/platform/logger"
	"github.com/phrazzld/tasknotify/internal/store"
)

// PostgresAttemptStore is the append-only audit sink backed by notification_attempts.
type PostgresAttemptStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresAttemptStore creates a new PostgresAttemptStore.
// If logger is nil, a default logger will be used.
func NewPostgresAttemptStore(db store.DBTX, logger *slog.Logger) *PostgresAttemptStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresAttemptStore{
		db:     db,
		logger: logger.With(slog.String("component", "attempt_store")),
	}
}

// Ensure PostgresAttemptStore implements store.AttemptStore interface
var _ store.AttemptStore = (*PostgresAttemptStore)(nil)

// Append implements store.AttemptStore.Append.
func (s *PostgresAttemptStore) Append(ctx context.Context, attempt *domain.NotificationAttempt) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := attempt.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO notification_attempts
			(id, task_id, owner_id, channel, outcome, error, target, device, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.db.ExecContext(ctx, query,
		attempt.ID,
		attempt.TaskID,
		attempt.OwnerID,
		string(attempt.Channel),
		string(attempt.Outcome),
		attempt.Error,
		attempt.Target,
		attempt.Device,
		attempt.CreatedAt,
	)
	if err != nil {
		log.Error("failed to append notification attempt",
			slog.String("error", err.Error()),
			slog.Int64("task_id", attempt.TaskID),
			slog.String("channel", string(attempt.Channel)))
		return store.NewStoreError("notification_attempt", "append", "insert failed", MapError(err))
	}

	return nil
}

// ListByTask returns the attempts recorded for a task, oldest first.
func (s *PostgresAttemptStore) ListByTask(ctx context.Context, taskID int64) ([]domain.NotificationAttempt, error) {
	query := `
		SELECT id, task_id, owner_id, channel, outcome, error, target, device, created_at
		FROM notification_attempts
		WHERE task_id = $1
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, store.NewStoreError("notification_attempt", "list", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	attempts := make([]domain.NotificationAttempt, 0)
	for rows.Next() {
		var a domain.NotificationAttempt
		var channel, outcome string
		var errDetail, target, device sql.NullString
		if err := rows.Scan(&a.ID, &a.TaskID, &a.OwnerID, &channel, &outcome,
			&errDetail, &target, &device, &a.CreatedAt); err != nil {
			return nil, store.NewStoreError("notification_attempt", "list", "scan failed", err)
		}
		a.Channel = domain.Channel(channel)
		a.Outcome = domain.Outcome(outcome)
		a.Error = nullString(errDetail)
		a.Target = nullString(target)
		a.Device = nullString(device)
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("notification_attempt", "list", "row iteration failed", MapError(err))
	}

	return attempts, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
