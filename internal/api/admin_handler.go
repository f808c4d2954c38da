package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/tasknotify/internal/api/shared"
	"github.com/phrazzld/tasknotify/internal/domain"
	"github.com/phrazzld/tasknotify/internal/notify"
	"github.com/phrazzld/tasknotify/internal/platform/logger"
)

// ManualChecker runs an on-demand scan.
type ManualChecker interface {
	TriggerManualCheck(ctx context.Context) (notify.ScanReport, error)
}

// TestEmailSender sends the fixed test message.
type TestEmailSender interface {
	SendTest(ctx context.Context, to string) error
}

// AttemptLister reads the audit trail of a task.
type AttemptLister interface {
	ListByTask(ctx context.Context, taskID int64) ([]domain.NotificationAttempt, error)
}

// TaskRescheduler moves a task's due time, re-arming its reminder.
type TaskRescheduler interface {
	Reschedule(ctx context.Context, taskID int64, dueAt *time.Time) (*domain.Task, error)
}

// AdminDeps groups the collaborators of the operator routes.
type AdminDeps struct {
	Scanner     ManualChecker
	Mailer      TestEmailSender // nil disables the test email route
	Attempts    AttemptLister
	Rescheduler TaskRescheduler
}

// AdminHandler serves the operator routes.
type AdminHandler struct {
	scanner     ManualChecker
	mailer      TestEmailSender
	attempts    AttemptLister
	rescheduler TaskRescheduler
	logger      *slog.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(deps AdminDeps, log *slog.Logger) *AdminHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AdminHandler{
		scanner:     deps.Scanner,
		mailer:      deps.Mailer,
		attempts:    deps.Attempts,
		rescheduler: deps.Rescheduler,
		logger:      log.With(slog.String("component", "admin_handler")),
	}
}

// Health handles GET /health.
func (h *AdminHandler) Health(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{Status: "ok"})
}

// CheckNotifications handles POST /admin/notifications/check.
// The scan runs to completion even if the client goes away.
func (h *AdminHandler) CheckNotifications(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	operator, _ := shared.GetOperator(r.Context())
	log.Info("manual notification check requested", slog.String("operator", operator))

	report, err := h.scanner.TriggerManualCheck(context.WithoutCancel(r.Context()))
	if err != nil {
		HandleAPIError(w, r, err, "Notification check failed")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, report)
}

// SendTestEmail handles POST /admin/notifications/test-email.
func (h *AdminHandler) SendTestEmail(w http.ResponseWriter, r *http.Request) {
	if h.mailer == nil {
		shared.RespondWithError(w, r, http.StatusServiceUnavailable, "Email delivery is disabled")
		return
	}

	var req TestEmailRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	if err := h.mailer.SendTest(r.Context(), req.To); err != nil {
		HandleAPIError(w, r, err, "Failed to send test email")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, TestEmailResponse{Status: "sent", To: req.To})
}

// ListAttempts handles GET /admin/notifications/tasks/{id}/attempts.
func (h *AdminHandler) ListAttempts(w http.ResponseWriter, r *http.Request) {
	taskID, err := getPathID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	attempts, err := h.attempts.ListByTask(r.Context(), taskID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list notification attempts")
		return
	}

	resp := AttemptsResponse{TaskID: taskID, Attempts: make([]AttemptResponse, 0, len(attempts))}
	for _, a := range attempts {
		resp.Attempts = append(resp.Attempts, attemptToResponse(a))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// RescheduleTask handles POST /admin/tasks/{id}/reschedule.
func (h *AdminHandler) RescheduleTask(w http.ResponseWriter, r *http.Request) {
	taskID, err := getPathID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	var req RescheduleRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	task, err := h.rescheduler.Reschedule(r.Context(), taskID, req.DueAt)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to reschedule task")
		return
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Info("task rescheduled",
		slog.Int64("task_id", taskID),
		slog.Bool("armed", !task.ReminderSent))
	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(*task))
}
