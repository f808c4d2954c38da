package domain

import (
	"fmt"
	"strings"
	"time"
)

// Priority represents how urgent a task is to its owner.
type Priority string

// Possible priority values
const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// DefaultDevice is recorded when a task does not say which device created it.
const DefaultDevice = "web"

// ParsePriority converts a case-insensitive name into a Priority.
// An empty name yields PriorityMedium.
func ParsePriority(name string) (Priority, error) {
	switch p := Priority(strings.ToUpper(strings.TrimSpace(name))); p {
	case "":
		return PriorityMedium, nil
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPriority, name)
	}
}

// Task is a to-do item that may carry a due time and a reminder.
//
// ReminderSent marks that a notification fan-out was already attempted for
// the current DueAt value. Changing DueAt through SetDueAt re-arms it.
type Task struct {
	ID                   int64      `json:"id"`
	OwnerID              string     `json:"owner_id"`
	Title                string     `json:"title"`
	Priority             Priority   `json:"priority"`
	DueAt                *time.Time `json:"due_at,omitempty"`
	Completed            bool       `json:"completed"`
	NotificationsEnabled bool       `json:"notifications_enabled"`
	ReminderSent         bool       `json:"reminder_sent"`
	CreatedFromDevice    string     `json:"created_from_device,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// NewTask creates a new Task with notifications enabled and MEDIUM priority.
// Returns an error if validation fails.
func NewTask(id int64, ownerID, title string, dueAt *time.Time) (*Task, error) {
	now := time.Now().UTC()
	task := &Task{
		ID:                   id,
		OwnerID:              ownerID,
		Title:                title,
		Priority:             PriorityMedium,
		NotificationsEnabled: true,
		CreatedFromDevice:    DefaultDevice,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	task.SetDueAt(dueAt)

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
func (t *Task) Validate() error {
	// Zero means the task has not been persisted yet.
	if t.ID < 0 {
		return ErrInvalidID
	}

	if strings.TrimSpace(t.OwnerID) == "" {
		return ErrEmptyOwner
	}

	if strings.TrimSpace(t.Title) == "" {
		return ErrEmptyTitle
	}

	if _, err := ParsePriority(string(t.Priority)); err != nil {
		return err
	}

	return nil
}

// SetDueAt changes the due time. A non-nil due time clears ReminderSent so
// the task becomes eligible for a new reminder.
func (t *Task) SetDueAt(dueAt *time.Time) {
	t.DueAt = dueAt
	if dueAt != nil {
		t.ReminderSent = false
	}
	t.UpdatedAt = time.Now().UTC()
}

// MarkReminderSent retires the reminder for the current due time.
func (t *Task) MarkReminderSent() {
	t.ReminderSent = true
	t.UpdatedAt = time.Now().UTC()
}

// IsDueWithin reports whether the task should be reminded for a scan
// covering [start, end], both ends inclusive.
func (t *Task) IsDueWithin(start, end time.Time) bool {
	if !t.NotificationsEnabled || t.Completed || t.ReminderSent || t.DueAt == nil {
		return false
	}
	return !t.DueAt.Before(start) && !t.DueAt.After(end)
}

// Device returns the device the task was created from, defaulting to "web".
func (t *Task) Device() string {
	if t.CreatedFromDevice == "" {
		return DefaultDevice
	}
	return t.CreatedFromDevice
}

// ReminderTitle is the headline shared by every reminder channel.
func (t *Task) ReminderTitle() string {
	return "⏰ Task Due: " + t.Title
}
