package api

import (
	"time"

	"github.com/phrazzld/tasknotify/internal/domain"
)

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// TestEmailRequest is the body of POST /admin/notifications/test-email.
type TestEmailRequest struct {
	To string `json:"to" validate:"required,email"`
}

// TestEmailResponse confirms a test email was submitted.
type TestEmailResponse struct {
	Status string `json:"status"`
	To     string `json:"to"`
}

// AttemptResponse is one audit record of a task.
type AttemptResponse struct {
	ID        string    `json:"id"`
	TaskID    int64     `json:"task_id"`
	Channel   string    `json:"channel"`
	Outcome   string    `json:"outcome"`
	Error     *string   `json:"error,omitempty"`
	Target    *string   `json:"target,omitempty"`
	Device    *string   `json:"device,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// AttemptsResponse lists the audit trail of a task, oldest first.
type AttemptsResponse struct {
	TaskID   int64             `json:"task_id"`
	Attempts []AttemptResponse `json:"attempts"`
}

func attemptToResponse(a domain.NotificationAttempt) AttemptResponse {
	return AttemptResponse{
		ID:        a.ID.String(),
		TaskID:    a.TaskID,
		Channel:   string(a.Channel),
		Outcome:   string(a.Outcome),
		Error:     a.Error,
		Target:    a.Target,
		Device:    a.Device,
		CreatedAt: a.CreatedAt,
	}
}

// RescheduleRequest is the body of POST /admin/tasks/{id}/reschedule.
// A null due_at clears the due time.
type RescheduleRequest struct {
	DueAt *time.Time `json:"due_at"`
}

// TaskResponse is the reminder state of a task.
type TaskResponse struct {
	ID           int64      `json:"id"`
	OwnerID      string     `json:"owner_id"`
	Title        string     `json:"title"`
	Priority     string     `json:"priority"`
	DueAt        *time.Time `json:"due_at"`
	ReminderSent bool       `json:"reminder_sent"`
}

func taskToResponse(t domain.Task) TaskResponse {
	return TaskResponse{
		ID:           t.ID,
		OwnerID:      t.OwnerID,
		Title:        t.Title,
		Priority:     string(t.Priority),
		DueAt:        t.DueAt,
		ReminderSent: t.ReminderSent,
	}
}
