package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func timePtr(t time.Time) *time.Time { return &t }

func TestNewTask(t *testing.T) {
	due := time.Now().Add(time.Hour)

	task, err := NewTask(7, "user-1", "Pay rent", &due)
	require.NoError(t, err)

	assert.Equal(t, int64(7), task.ID)
	assert.Equal(t, PriorityMedium, task.Priority)
	assert.True(t, task.NotificationsEnabled)
	assert.False(t, task.ReminderSent)
	assert.Equal(t, DefaultDevice, task.Device())
	assert.Equal(t, due, *task.DueAt)
}

func TestTaskValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Task)
		wantErr error
	}{
		{"valid", func(*Task) {}, nil},
		{"negative id", func(tk *Task) { tk.ID = -1 }, ErrInvalidID},
		{"empty owner", func(tk *Task) { tk.OwnerID = " " }, ErrEmptyOwner},
		{"empty title", func(tk *Task) { tk.Title = "" }, ErrEmptyTitle},
		{"bad priority", func(tk *Task) { tk.Priority = "URGENT" }, ErrInvalidPriority},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task, err := NewTask(1, "user-1", "Title", nil)
			require.NoError(t, err)

			tt.mutate(task)
			err = task.Validate()

			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "expected %v, got %v", tt.wantErr, err)
		})
	}
}

func TestParsePriority(t *testing.T) {
	p, err := ParsePriority("high")
	require.NoError(t, err)
	assert.Equal(t, PriorityHigh, p)

	p, err = ParsePriority("")
	require.NoError(t, err)
	assert.Equal(t, PriorityMedium, p)

	_, err = ParsePriority("whenever")
	assert.ErrorIs(t, err, ErrInvalidPriority)
}

// TestSetDueAt_Rearms verifies that rescheduling a retired task makes it eligible again.
func TestSetDueAt_Rearms(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	task, err := NewTask(1, "user-1", "Title", timePtr(now))
	require.NoError(t, err)

	task.MarkReminderSent()
	require.True(t, task.ReminderSent)
	assert.False(t, task.IsDueWithin(now.Add(-time.Minute), now.Add(time.Minute)))

	// Clearing the due date does not re-arm
	task.SetDueAt(nil)
	assert.True(t, task.ReminderSent)

	later := now.Add(24 * time.Hour)
	task.SetDueAt(&later)
	assert.False(t, task.ReminderSent)
	assert.True(t, task.IsDueWithin(later.Add(-time.Minute), later.Add(2*time.Minute)))
}

func TestIsDueWithin(t *testing.T) {
	due := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	start, end := due.Add(-time.Minute), due.Add(2*time.Minute)

	base := func() *Task {
		return &Task{ID: 1, OwnerID: "u", Title: "t", Priority: PriorityLow, DueAt: timePtr(due), NotificationsEnabled: true}
	}

	tests := []struct {
		name   string
		mutate func(*Task)
		want   bool
	}{
		{"eligible", func(*Task) {}, true},
		{"notifications disabled", func(tk *Task) { tk.NotificationsEnabled = false }, false},
		{"completed", func(tk *Task) { tk.Completed = true }, false},
		{"already reminded", func(tk *Task) { tk.ReminderSent = true }, false},
		{"no due date", func(tk *Task) { tk.DueAt = nil }, false},
		{"at window start", func(tk *Task) { tk.DueAt = timePtr(start) }, true},
		{"at window end", func(tk *Task) { tk.DueAt = timePtr(end) }, true},
		{"before window", func(tk *Task) { tk.DueAt = timePtr(start.Add(-time.Second)) }, false},
		{"after window", func(tk *Task) { tk.DueAt = timePtr(end.Add(time.Second)) }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := base()
			tt.mutate(task)
			assert.Equal(t, tt.want, task.IsDueWithin(start, end))
		})
	}
}

func TestTask_ReminderTitle(t *testing.T) {
	task := &Task{Title: "Pay rent"}
	assert.Equal(t, "⏰ Task Due: Pay rent", task.ReminderTitle())
}
