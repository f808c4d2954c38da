package store

import (
	"context"
	"time"

	"github.com/phrazzld/tasknotify/internal/domain"
)

// TaskStore is the subset of task persistence the notification pipeline needs.
type TaskStore interface {
	// FindDue returns tasks with notifications enabled, not completed, without
	// a reminder sent and a due time within [start, end] inclusive,
	// ordered by due time ascending.
	FindDue(ctx context.Context, start, end time.Time) ([]domain.Task, error)

	// TrySetReminderSent atomically marks the task's reminder as sent.
	// It reports false when the flag was already set (or the task no longer
	// exists), meaning another run retired the task first.
	TrySetReminderSent(ctx context.Context, taskID int64) (bool, error)
}

// SubscriptionStore manages registered push endpoints.
type SubscriptionStore interface {
	// FindByOwner returns every subscription registered by the owner.
	// An owner without subscriptions yields an empty slice and no error.
	FindByOwner(ctx context.Context, ownerID string) ([]domain.Subscription, error)

	// DeleteByEndpoint removes the subscription with the given endpoint.
	// Deleting an endpoint that is already absent is not an error.
	DeleteByEndpoint(ctx context.Context, endpoint string) error

	// TouchLastUsed records a successful delivery time for the endpoint.
	TouchLastUsed(ctx context.Context, endpoint string) error
}

// IdentityResolver maps an owner identity to an email address.
type IdentityResolver interface {
	// EmailOf returns the owner's email address.
	// Returns ErrEmailUnresolvable when the owner has no usable address.
	EmailOf(ctx context.Context, ownerID string) (string, error)
}

// AttemptStore is the append-only audit sink for notification attempts.
type AttemptStore interface {
	// Append stores one attempt. Records are never updated afterwards.
	Append(ctx context.Context, attempt *domain.NotificationAttempt) error
}
