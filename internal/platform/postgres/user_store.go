package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phrazzld/tasknotify/internal/platform/logger"
	"github.com/phrazzld/tasknotify/internal/store"
)

// PostgresUserStore resolves owner identities to email addresses from the users table.
type PostgresUserStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresUserStore creates a new PostgresUserStore.
// If logger is nil, a default logger will be used.
func NewPostgresUserStore(db store.DBTX, logger *slog.Logger) *PostgresUserStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresUserStore{
		db:     db,
		logger: logger.With(slog.String("component", "user_store")),
	}
}

// Ensure PostgresUserStore implements store.IdentityResolver interface
var _ store.IdentityResolver = (*PostgresUserStore)(nil)

// EmailOf implements store.IdentityResolver.EmailOf.
// A missing user, a NULL email and a blank email all yield store.ErrEmailUnresolvable.
func (s *PostgresUserStore) EmailOf(ctx context.Context, ownerID string) (string, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var email *string
	err := s.db.QueryRowContext(ctx, `SELECT email FROM users WHERE id = $1`, ownerID).Scan(&email)
	if err != nil {
		if IsNotFoundError(err) {
			log.Debug("owner not found", slog.String("owner_id", ownerID))
			return "", fmt.Errorf("%w: owner %s", store.ErrEmailUnresolvable, ownerID)
		}
		log.Error("failed to resolve owner email",
			slog.String("error", err.Error()),
			slog.String("owner_id", ownerID))
		return "", store.NewStoreError("user", "email_of", "query failed", MapError(err))
	}

	if email == nil || strings.TrimSpace(*email) == "" {
		return "", fmt.Errorf("%w: owner %s has no email", store.ErrEmailUnresolvable, ownerID)
	}

	return strings.TrimSpace(*email), nil
}

// Create inserts a user with an optional email address.
// Returns store.ErrDuplicate if the ID is already taken.
//
// Create is not part of store.IdentityResolver; it seeds owners for the
// integration tests.
func (s *PostgresUserStore) Create(ctx context.Context, id, email string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email) VALUES ($1, NULLIF($2, ''))`, id, email)
	if err != nil {
		return MapError(err)
	}
	return nil
}
