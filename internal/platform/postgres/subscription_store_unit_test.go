package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/tasknotify/internal/domain"
	"github.com/phrazzld/tasknotify/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*PostgresSubscriptionStore, *PostgresUserStore, *PostgresAttemptStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresSubscriptionStore(db, nil), NewPostgresUserStore(db, nil), NewPostgresAttemptStore(db, nil), mock
}

func TestPostgresSubscriptionStore_FindByOwner(t *testing.T) {
	subs, _, _, mock := newMockDB(t)
	used := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM push_subscriptions WHERE owner_id = $1")).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"endpoint", "owner_id", "p256dh", "auth", "device_type", "browser", "os", "device_name", "last_used_at", "created_at",
		}).
			AddRow("https://push.example/a", "user-1", "key-a", "auth-a", "mobile", "Chrome", "Android", "Pixel", used, used).
			AddRow("https://push.example/b", "user-1", "key-b", "auth-b", "", "", "", "", nil, used))

	got, err := subs.FindByOwner(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "mobile/Chrome/Android", got[0].Device.Label())
	require.NotNil(t, got[0].LastUsedAt)
	assert.Nil(t, got[1].LastUsedAt)
	assert.Equal(t, "key-b", got[1].P256dh)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSubscriptionStore_DeleteByEndpoint(t *testing.T) {
	t.Run("removes row", func(t *testing.T) {
		subs, _, _, mock := newMockDB(t)
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM push_subscriptions WHERE endpoint = $1")).
			WithArgs("https://push.example/a").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, subs.DeleteByEndpoint(context.Background(), "https://push.example/a"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already gone is not an error", func(t *testing.T) {
		subs, _, _, mock := newMockDB(t)
		mock.ExpectExec("DELETE FROM push_subscriptions").
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.NoError(t, subs.DeleteByEndpoint(context.Background(), "https://push.example/a"))
	})

	t.Run("database error", func(t *testing.T) {
		subs, _, _, mock := newMockDB(t)
		mock.ExpectExec("DELETE FROM push_subscriptions").
			WillReturnError(errors.New("connection reset"))

		assert.Error(t, subs.DeleteByEndpoint(context.Background(), "https://push.example/a"))
	})
}

func TestPostgresSubscriptionStore_TouchLastUsed(t *testing.T) {
	subs, _, _, mock := newMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta("SET last_used_at = NOW() WHERE endpoint = $1")).
		WithArgs("https://push.example/a").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE push_subscriptions").
		WithArgs("https://push.example/missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, subs.TouchLastUsed(context.Background(), "https://push.example/a"))
	assert.ErrorIs(t, subs.TouchLastUsed(context.Background(), "https://push.example/missing"), store.ErrSubscriptionNotFound)
}

func TestPostgresUserStore_EmailOf(t *testing.T) {
	tests := []struct {
		name    string
		rows    *sqlmock.Rows
		want    string
		wantErr error
	}{
		{
			name: "resolved",
			rows: sqlmock.NewRows([]string{"email"}).AddRow(" owner@example.com "),
			want: "owner@example.com",
		},
		{
			name:    "null email",
			rows:    sqlmock.NewRows([]string{"email"}).AddRow(nil),
			wantErr: store.ErrEmailUnresolvable,
		},
		{
			name:    "blank email",
			rows:    sqlmock.NewRows([]string{"email"}).AddRow("  "),
			wantErr: store.ErrEmailUnresolvable,
		},
		{
			name:    "unknown owner",
			rows:    sqlmock.NewRows([]string{"email"}),
			wantErr: store.ErrEmailUnresolvable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, users, _, mock := newMockDB(t)
			mock.ExpectQuery(regexp.QuoteMeta("SELECT email FROM users WHERE id = $1")).
				WithArgs("user-1").
				WillReturnRows(tt.rows)

			got, err := users.EmailOf(context.Background(), "user-1")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPostgresAttemptStore_Append(t *testing.T) {
	_, _, attempts, mock := newMockDB(t)

	a, err := domain.NewNotificationAttempt(7, "user-1", domain.ChannelPush, domain.OutcomeFailed,
		"push service returned 500", "https://push.example/a", "mobile/Chrome/Android")
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO notification_attempts").
		WithArgs(a.ID, int64(7), "user-1", "push", "failed",
			"push service returned 500", "https://push.example/a", "mobile/Chrome/Android", a.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, attempts.Append(context.Background(), a))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAttemptStore_Append_Invalid(t *testing.T) {
	_, _, attempts, _ := newMockDB(t)

	err := attempts.Append(context.Background(), &domain.NotificationAttempt{ID: uuid.New(), TaskID: 1, Channel: "sms", Outcome: domain.OutcomeSent})
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
}
