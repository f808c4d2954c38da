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

// PostgresSubscriptionStore implements store.SubscriptionStore using PostgreSQL.
type PostgresSubscriptionStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresSubscriptionStore creates a new PostgresSubscriptionStore.
// If logger is nil, a default logger will be used.
func NewPostgresSubscriptionStore(db store.DBTX, logger *slog.Logger) *PostgresSubscriptionStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresSubscriptionStore{
		db:     db,
		logger: logger.With(slog.String("component", "subscription_store")),
	}
}

// Ensure PostgresSubscriptionStore implements store.SubscriptionStore interface
var _ store.SubscriptionStore = (*PostgresSubscriptionStore)(nil)

// FindByOwner implements store.SubscriptionStore.FindByOwner.
func (s *PostgresSubscriptionStore) FindByOwner(ctx context.Context, ownerID string) ([]domain.Subscription, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT endpoint, owner_id, p256dh, auth,
		       COALESCE(device_type, ''), COALESCE(browser, ''), COALESCE(os, ''), COALESCE(device_name, ''),
		       last_used_at, created_at
		FROM push_subscriptions
		WHERE owner_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		log.Error("failed to query subscriptions",
			slog.String("error", err.Error()),
			slog.String("owner_id", ownerID))
		return nil, store.NewStoreError("subscription", "find_by_owner", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	subs := make([]domain.Subscription, 0)
	for rows.Next() {
		var (
			sub      domain.Subscription
			lastUsed sql.NullTime
		)
		if err := rows.Scan(
			&sub.Endpoint,
			&sub.OwnerID,
			&sub.P256dh,
			&sub.Auth,
			&sub.Device.Type,
			&sub.Device.Browser,
			&sub.Device.OS,
			&sub.Device.Name,
			&lastUsed,
			&sub.CreatedAt,
		); err != nil {
			return nil, store.NewStoreError("subscription", "find_by_owner", "scan failed", err)
		}
		if lastUsed.Valid {
			t := lastUsed.Time
			sub.LastUsedAt = &t
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("subscription", "find_by_owner", "row iteration failed", MapError(err))
	}

	return subs, nil
}

// DeleteByEndpoint implements store.SubscriptionStore.DeleteByEndpoint.
func (s *PostgresSubscriptionStore) DeleteByEndpoint(ctx context.Context, endpoint string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM push_subscriptions WHERE endpoint = $1`, endpoint)
	if err != nil {
		log.Error("failed to delete subscription", slog.String("error", err.Error()))
		return store.NewStoreError("subscription", "delete", "delete failed", MapError(err))
	}

	if err := CheckRowsAffected(result, store.ErrSubscriptionNotFound); err != nil {
		if IsNotFoundError(err) {
			log.Debug("subscription already removed")
			return nil
		}
		return err
	}

	log.Info("removed expired push subscription")
	return nil
}

// TouchLastUsed implements store.SubscriptionStore.TouchLastUsed.
func (s *PostgresSubscriptionStore) TouchLastUsed(ctx context.Context, endpoint string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE push_subscriptions SET last_used_at = NOW() WHERE endpoint = $1`, endpoint)
	if err != nil {
		return store.NewStoreError("subscription", "touch", "update failed", MapError(err))
	}
	return CheckRowsAffected(result, store.ErrSubscriptionNotFound)
}

// Save registers a subscription, refreshing keys and device details when the
// endpoint already exists.
//
// Save is not part of store.SubscriptionStore. Browsers register through the
// subscription API, which lives outside this service; here it seeds rows for
// the integration tests.
func (s *PostgresSubscriptionStore) Save(ctx context.Context, sub *domain.Subscription) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := sub.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO push_subscriptions (endpoint, owner_id, p256dh, auth, device_type, browser, os, device_name)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''))
		ON CONFLICT (endpoint) DO UPDATE
		SET owner_id = EXCLUDED.owner_id,
		    p256dh = EXCLUDED.p256dh,
		    auth = EXCLUDED.auth,
		    device_type = EXCLUDED.device_type,
		    browser = EXCLUDED.browser,
		    os = EXCLUDED.os,
		    device_name = EXCLUDED.device_name
		RETURNING created_at
	`

	err := s.db.QueryRowContext(ctx, query,
		sub.Endpoint,
		sub.OwnerID,
		sub.P256dh,
		sub.Auth,
		sub.Device.Type,
		sub.Device.Browser,
		sub.Device.OS,
		sub.Device.Name,
	).Scan(&sub.CreatedAt)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: owner %s not found", store.ErrInvalidEntity, sub.OwnerID)
		}
		log.Error("failed to save subscription",
			slog.String("error", err.Error()),
			slog.String("owner_id", sub.OwnerID))
		return MapError(err)
	}

	return nil
}
