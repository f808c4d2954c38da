package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/phrazzld/tasknotify/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRescheduler(t *testing.T) (*TaskRescheduler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewTaskRescheduler(db, nil), mock
}

func TestTaskRescheduler_Reschedule(t *testing.T) {
	r, mock := newMockRescheduler(t)
	due := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	created := due.Add(-48 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE tasks").
		WithArgs(int64(7), due).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM tasks WHERE id = $1")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(taskRowColumns).
			AddRow(int64(7), "user-1", "Pay rent", "HIGH", due, false, true, false, "web", created, created))
	mock.ExpectCommit()

	task, err := r.Reschedule(context.Background(), 7, &due)
	require.NoError(t, err)
	require.NotNil(t, task.DueAt)
	assert.True(t, due.Equal(*task.DueAt))
	assert.False(t, task.ReminderSent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRescheduler_RollsBack(t *testing.T) {
	t.Run("missing task", func(t *testing.T) {
		r, mock := newMockRescheduler(t)

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE tasks").
			WithArgs(int64(99), nil).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		_, err := r.Reschedule(context.Background(), 99, nil)
		assert.ErrorIs(t, err, store.ErrTaskNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("read back fails", func(t *testing.T) {
		r, mock := newMockRescheduler(t)
		due := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE tasks").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("FROM tasks WHERE id").WillReturnError(errors.New("connection reset"))
		mock.ExpectRollback()

		_, err := r.Reschedule(context.Background(), 7, &due)
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin fails", func(t *testing.T) {
		r, mock := newMockRescheduler(t)
		mock.ExpectBegin().WillReturnError(errors.New("pool exhausted"))

		_, err := r.Reschedule(context.Background(), 7, nil)
		assert.Error(t, err)
	})
}
