package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/phrazzld/tasknotify/internal/domain"
	"github.com/phrazzld/tasknotify/internal/platform/logger"
	"github.com/phrazzld/tasknotify/internal/store"
)

// TaskRescheduler moves a task's due time and reads the re-armed row back
// in a single transaction.
type TaskRescheduler struct {
	db     *sql.DB
	tasks  *PostgresTaskStore
	logger *slog.Logger
}

// NewTaskRescheduler creates a TaskRescheduler over db.
func NewTaskRescheduler(db *sql.DB, logger *slog.Logger) *TaskRescheduler {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "task_rescheduler"))

	return &TaskRescheduler{
		db:     db,
		tasks:  NewPostgresTaskStore(db, logger),
		logger: logger,
	}
}

// Reschedule sets the due time of taskID and returns the updated task.
// A nil dueAt clears the due time without re-arming the reminder.
func (r *TaskRescheduler) Reschedule(ctx context.Context, taskID int64, dueAt *time.Time) (*domain.Task, error) {
	ctx = logger.WithLogger(ctx, logger.FromContextOrDefault(ctx, r.logger))

	var updated *domain.Task
	err := store.RunInTransaction(ctx, r.db, func(ctx context.Context, tx *sql.Tx) error {
		tasks := r.tasks.WithTx(tx)
		if err := tasks.Reschedule(ctx, taskID, dueAt); err != nil {
			return err
		}

		task, err := tasks.GetByID(ctx, taskID)
		if err != nil {
			return err
		}
		updated = task
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}
