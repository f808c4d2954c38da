package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/tasknotify/internal/domain"
	"github.com/phrazzld/tasknotify/internal/platform/logger"
	"github.com/phrazzld/tasknotify/internal/store"
)

const taskColumns = `id, owner_id, title, priority, due_at, completed, notifications_enabled,
	COALESCE(reminder_sent, FALSE), COALESCE(created_from_device, ''), created_at, updated_at`

// PostgresTaskStore implements store.TaskStore using PostgreSQL.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgresTaskStore.
// If logger is nil, a default logger will be used.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// WithTx returns a PostgresTaskStore that runs its queries inside tx.
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) *PostgresTaskStore {
	return &PostgresTaskStore{db: tx, logger: s.logger}
}

// FindDue implements store.TaskStore.FindDue.
// A NULL reminder_sent column counts as not sent.
func (s *PostgresTaskStore) FindDue(ctx context.Context, start, end time.Time) ([]domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + taskColumns + `
		FROM tasks
		WHERE notifications_enabled = TRUE
		  AND completed = FALSE
		  AND reminder_sent IS NOT TRUE
		  AND due_at BETWEEN $1 AND $2
		ORDER BY due_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, start.UTC(), end.UTC())
	if err != nil {
		log.Error("failed to query due tasks",
			slog.String("error", err.Error()),
			slog.Time("window_start", start),
			slog.Time("window_end", end))
		return nil, store.NewStoreError("task", "find_due", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	tasks := make([]domain.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			log.Error("failed to scan task row", slog.String("error", err.Error()))
			return nil, store.NewStoreError("task", "find_due", "scan failed", err)
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		log.Error("error iterating due task rows", slog.String("error", err.Error()))
		return nil, store.NewStoreError("task", "find_due", "row iteration failed", MapError(err))
	}

	log.Debug("found due tasks",
		slog.Int("count", len(tasks)),
		slog.Time("window_start", start),
		slog.Time("window_end", end))
	return tasks, nil
}

// TrySetReminderSent implements store.TaskStore.TrySetReminderSent.
// The conditional update is the only writer of reminder_sent=true, so two
// concurrent callers can never both observe true.
func (s *PostgresTaskStore) TrySetReminderSent(ctx context.Context, taskID int64) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE tasks
		SET reminder_sent = TRUE, updated_at = NOW()
		WHERE id = $1 AND reminder_sent IS NOT TRUE
	`

	result, err := s.db.ExecContext(ctx, query, taskID)
	if err != nil {
		log.Error("failed to set reminder flag",
			slog.String("error", err.Error()),
			slog.Int64("task_id", taskID))
		return false, store.NewStoreError("task", "set_reminder_sent", "update failed", MapError(err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return affected == 1, nil
}

// Reschedule changes a task's due time. A non-nil due time re-arms the reminder.
// Returns store.ErrTaskNotFound if the task does not exist.
func (s *PostgresTaskStore) Reschedule(ctx context.Context, taskID int64, dueAt *time.Time) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var due any
	if dueAt != nil {
		due = dueAt.UTC()
	}

	query := `
		UPDATE tasks
		SET due_at = $2::timestamptz,
		    reminder_sent = CASE WHEN $2::timestamptz IS NULL THEN reminder_sent ELSE FALSE END,
		    updated_at = NOW()
		WHERE id = $1
	`

	result, err := s.db.ExecContext(ctx, query, taskID, due)
	if err != nil {
		log.Error("failed to reschedule task",
			slog.String("error", err.Error()),
			slog.Int64("task_id", taskID))
		return store.NewStoreError("task", "reschedule", "update failed", MapError(err))
	}

	if err := CheckRowsAffected(result, store.ErrTaskNotFound); err != nil {
		return err
	}

	log.Debug("task rescheduled", slog.Int64("task_id", taskID), slog.Bool("armed", dueAt != nil))
	return nil
}

// Create inserts a task and fills in its generated ID and timestamps.
// Returns validation errors from the domain Task if data is invalid.
//
// Create is not part of store.TaskStore and the notification pipeline never
// calls it. Tasks are owned by the task CRUD service; here it seeds rows for
// the integration tests.
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if task.Priority == "" {
		task.Priority = domain.PriorityMedium
	}
	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	var due any
	if task.DueAt != nil {
		due = task.DueAt.UTC()
	}

	query := `
		INSERT INTO tasks (owner_id, title, priority, due_at, completed,
			notifications_enabled, reminder_sent, created_from_device)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''))
		RETURNING id, created_at, updated_at
	`

	err := s.db.QueryRowContext(ctx, query,
		task.OwnerID,
		task.Title,
		string(task.Priority),
		due,
		task.Completed,
		task.NotificationsEnabled,
		task.ReminderSent,
		task.CreatedFromDevice,
	).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: owner %s not found", store.ErrInvalidEntity, task.OwnerID)
		}
		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("owner_id", task.OwnerID))
		return MapError(err)
	}

	return nil
}

// GetByID retrieves a task by ID.
// Returns store.ErrTaskNotFound if the task does not exist.
func (s *PostgresTaskStore) GetByID(ctx context.Context, taskID int64) (*domain.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, taskID)

	task, err := scanTask(row)
	if err != nil {
		if IsNotFoundError(err) {
			return nil, store.ErrTaskNotFound
		}
		return nil, MapError(err)
	}
	return task, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task     domain.Task
		priority string
		dueAt    sql.NullTime
	)

	err := row.Scan(
		&task.ID,
		&task.OwnerID,
		&task.Title,
		&priority,
		&dueAt,
		&task.Completed,
		&task.NotificationsEnabled,
		&task.ReminderSent,
		&task.CreatedFromDevice,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	task.Priority = domain.Priority(priority)
	if dueAt.Valid {
		due := dueAt.Time
		task.DueAt = &due
	}
	return &task, nil
}
