package domain

import (
	"time"

	"github.com/google/uuid"
)

// Channel identifies how a reminder was delivered.
type Channel string

// Supported channels
const (
	ChannelPush  Channel = "push"
	ChannelEmail Channel = "email"
)

// Outcome is the result recorded for one channel attempt.
type Outcome string

// Possible outcomes
const (
	OutcomeSent   Outcome = "sent"
	OutcomeFailed Outcome = "failed"
)

// NotificationAttempt is an append-only audit record of a single channel
// attempt. A task reminded on three devices and by email yields four records.
type NotificationAttempt struct {
	ID        uuid.UUID `json:"id"`
	TaskID    int64     `json:"task_id"`
	OwnerID   string    `json:"owner_id"`
	Channel   Channel   `json:"channel"`
	Outcome   Outcome   `json:"outcome"`
	Error     *string   `json:"error,omitempty"`
	Target    *string   `json:"target,omitempty"`
	Device    *string   `json:"device,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewNotificationAttempt creates an attempt with a fresh ID and a UTC timestamp.
// Empty errDetail, target or device values are stored as nil.
func NewNotificationAttempt(
	taskID int64,
	ownerID string,
	channel Channel,
	outcome Outcome,
	errDetail, target, device string,
) (*NotificationAttempt, error) {
	attempt := &NotificationAttempt{
		ID:        uuid.New(),
		TaskID:    taskID,
		OwnerID:   ownerID,
		Channel:   channel,
		Outcome:   outcome,
		Error:     optional(errDetail),
		Target:    optional(target),
		Device:    optional(device),
		CreatedAt: time.Now().UTC(),
	}

	if err := attempt.Validate(); err != nil {
		return nil, err
	}

	return attempt, nil
}

// Validate checks if the NotificationAttempt has valid data.
func (a *NotificationAttempt) Validate() error {
	if a.ID == uuid.Nil || a.TaskID <= 0 {
		return ErrInvalidID
	}

	switch a.Channel {
	case ChannelPush, ChannelEmail:
	default:
		return ErrInvalidChannel
	}

	switch a.Outcome {
	case OutcomeSent, OutcomeFailed:
	default:
		return ErrInvalidOutcome
	}

	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
