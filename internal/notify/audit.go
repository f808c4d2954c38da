package notify

import (
	"context"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/phrazzld/tasknotify/internal/domain"
	"github.com/phrazzld/tasknotify/internal/platform/logger"
	"github.com/phrazzld/tasknotify/internal/redact"
	"github.com/phrazzld/tasknotify/internal/store"
)

// MaxErrorDetail is the maximum number of runes of error detail stored per attempt.
const MaxErrorDetail = 1000

const auditWriteTimeout = 5 * time.Second

// Auditor writes notification attempts to the audit sink. Failures to write
// are logged and never reach the caller.
type Auditor struct {
	attempts store.AttemptStore
	logger   *slog.Logger
}

// NewAuditor creates an Auditor.
// If logger is nil, a default logger will be used.
func NewAuditor(attempts store.AttemptStore, logger *slog.Logger) *Auditor {
	if attempts == nil {
		panic("attempt store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Auditor{
		attempts: attempts,
		logger:   logger.With(slog.String("component", "auditor")),
	}
}

// Attempt describes one channel attempt to be recorded.
type Attempt struct {
	Task    domain.Task
	Channel domain.Channel
	Outcome domain.Outcome
	Err     error
	Target  string
	Device  string
}

// Record appends the attempt. The error detail is redacted and truncated.
// The write outlives the caller's cancellation and a panicking sink is
// logged like any other write failure.
func (a *Auditor) Record(ctx context.Context, at Attempt) {
	log := logger.FromContextOrDefault(ctx, a.logger)
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic while recording notification attempt",
				slog.Int64("task_id", at.Task.ID),
				slog.String("channel", string(at.Channel)),
				slog.Any("panic", r))
		}
	}()

	detail := ""
	if at.Err != nil {
		detail = truncateRunes(redact.Error(at.Err), MaxErrorDetail)
	}

	attempt, err := domain.NewNotificationAttempt(at.Task.ID, at.Task.OwnerID, at.Channel, at.Outcome, detail, at.Target, at.Device)
	if err != nil {
		log.Error("invalid notification attempt",
			slog.Int64("task_id", at.Task.ID),
			slog.String("error", err.Error()))
		return
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditWriteTimeout)
	defer cancel()

	if err := a.attempts.Append(writeCtx, attempt); err != nil {
		log.Warn("failed to record notification attempt",
			slog.Int64("task_id", at.Task.ID),
			slog.String("channel", string(at.Channel)),
			slog.String("outcome", string(at.Outcome)),
			slog.String("error", redact.Error(err)))
	}
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
