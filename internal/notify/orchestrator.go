package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/phrazzld/tasknotify/internal/domain"
	"github.com/phrazzld/tasknotify/internal/platform/logger"
	"github.com/phrazzld/tasknotify/internal/platform/webpush"
	"github.com/phrazzld/tasknotify/internal/redact"
	"github.com/phrazzld/tasknotify/internal/store"
	"golang.org/x/sync/errgroup"
)

// Defaults applied when OrchestratorConfig leaves a value unset.
const (
	DefaultSendConcurrency = 4
	DefaultSendTimeout     = 10 * time.Second
)

// FlagWriteTimeout bounds the reminder flag write once the fan-out is over.
// The write runs detached from the caller's cancellation.
const FlagWriteTimeout = 5 * time.Second

// DueLayout formats due times in push bodies, truncated to the minute.
const DueLayout = "2006-01-02T15:04"

// ErrNoEmailAddress is recorded when the identity resolver returns an empty address.
var ErrNoEmailAddress = errors.New("owner has no email address")

// PushSender delivers one push message to one subscription.
type PushSender interface {
	Send(ctx context.Context, sub domain.Subscription, title, body string, taskID int64) webpush.Result
}

// EmailSender renders and delivers the reminder email for a task.
type EmailSender interface {
	Send(ctx context.Context, to string, task domain.Task) error
}

// SendKind classifies a single channel attempt.
type SendKind string

const (
	SendDelivered SendKind = "delivered"
	SendTransient SendKind = "transient"
	SendGone      SendKind = "gone"
)

// SendOutcome is the result of one channel attempt.
type SendOutcome struct {
	Channel domain.Channel
	Kind    SendKind
	Target  string
	Err     error
}

// DeliveryReport summarizes the fan-out for one task.
type DeliveryReport struct {
	TaskID   int64
	Outcomes []SendOutcome
	// Retired is true when this delivery set the reminder flag.
	Retired bool
	// Skipped is true when the task was claimed by another run before sending.
	Skipped bool
}

// Count returns the number of outcomes on channel with the given kind.
func (r DeliveryReport) Count(channel domain.Channel, kind SendKind) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Channel == channel && o.Kind == kind {
			n++
		}
	}
	return n
}

// OrchestratorConfig controls fan-out concurrency and the reminder flag protocol.
type OrchestratorConfig struct {
	SendConcurrency int
	SendTimeout     time.Duration
	ClaimBeforeSend bool
}

// OrchestratorDeps are the collaborators of an Orchestrator. A nil Push or
// Email sender disables that channel.
type OrchestratorDeps struct {
	Tasks         store.TaskStore
	Subscriptions store.SubscriptionStore
	Identity      store.IdentityResolver
	Auditor       *Auditor
	Push          PushSender
	Email         EmailSender
}

// Orchestrator delivers the reminder for one task across all channels.
type Orchestrator struct {
	cfg      OrchestratorConfig
	tasks    store.TaskStore
	subs     store.SubscriptionStore
	identity store.IdentityResolver
	auditor  *Auditor
	push     PushSender
	email    EmailSender
	logger   *slog.Logger
}

// NewOrchestrator creates an Orchestrator.
// If logger is nil, a default logger will be used.
func NewOrchestrator(cfg OrchestratorConfig, deps OrchestratorDeps, log *slog.Logger) (*Orchestrator, error) {
	if deps.Tasks == nil {
		return nil, errors.New("task store cannot be nil")
	}
	if deps.Auditor == nil {
		return nil, errors.New("auditor cannot be nil")
	}
	if deps.Push != nil && deps.Subscriptions == nil {
		return nil, errors.New("subscription store is required for push delivery")
	}
	if deps.Email != nil && deps.Identity == nil {
		return nil, errors.New("identity resolver is required for email delivery")
	}
	if cfg.SendConcurrency <= 0 {
		cfg.SendConcurrency = DefaultSendConcurrency
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = DefaultSendTimeout
	}
	if log == nil {
		log = slog.Default()
	}

	return &Orchestrator{
		cfg:      cfg,
		tasks:    deps.Tasks,
		subs:     deps.Subscriptions,
		identity: deps.Identity,
		auditor:  deps.Auditor,
		push:     deps.Push,
		email:    deps.Email,
		logger:   log.With(slog.String("component", "orchestrator")),
	}, nil
}

// PushBody returns the push notification body for a task.
func PushBody(task domain.Task) string {
	priority := task.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	if task.DueAt == nil {
		return fmt.Sprintf("Priority: %s", priority)
	}
	return fmt.Sprintf("Priority: %s | Due: %s", priority, task.DueAt.UTC().Truncate(time.Minute).Format(DueLayout))
}

// Deliver fans the reminder out to every channel and retires the task.
// Channel failures are reported in the DeliveryReport; the returned error is
// non-nil only when the reminder flag could not be written.
func (o *Orchestrator) Deliver(ctx context.Context, task domain.Task) (DeliveryReport, error) {
	log := logger.FromContextOrDefault(ctx, o.logger).With(slog.Int64("task_id", task.ID))
	ctx = logger.WithLogger(ctx, log)

	report := DeliveryReport{TaskID: task.ID}

	if o.cfg.ClaimBeforeSend {
		claimed, err := o.tasks.TrySetReminderSent(ctx, task.ID)
		if err != nil {
			return report, fmt.Errorf("failed to claim task %d: %w", task.ID, err)
		}
		if !claimed {
			log.Info("task already claimed, skipping delivery")
			report.Skipped = true
			return report, nil
		}
		report.Retired = true
	}

	var (
		mu       sync.Mutex
		outcomes []SendOutcome
	)
	collect := func(out SendOutcome) {
		mu.Lock()
		outcomes = append(outcomes, out)
		mu.Unlock()
	}

	var channels errgroup.Group
	if o.push != nil {
		channels.Go(func() error {
			defer o.recoverChannel(ctx, domain.ChannelPush, collect)
			o.deliverPush(ctx, task, collect)
			return nil
		})
	}
	if o.email != nil {
		channels.Go(func() error {
			defer o.recoverChannel(ctx, domain.ChannelEmail, collect)
			o.deliverEmail(ctx, task, collect)
			return nil
		})
	}
	_ = channels.Wait()
	report.Outcomes = outcomes

	if !o.cfg.ClaimBeforeSend {
		retired, err := o.markReminderSent(ctx, task.ID)
		if err != nil {
			log.Error("failed to mark reminder sent", slog.String("error", redact.Error(err)))
			return report, fmt.Errorf("failed to mark reminder sent for task %d: %w", task.ID, err)
		}
		if !retired {
			log.Warn("reminder already marked sent by a concurrent run")
		}
		report.Retired = retired
	}

	log.Info("task reminder delivered",
		slog.Int("push_sent", report.Count(domain.ChannelPush, SendDelivered)),
		slog.Int("push_failed", report.Count(domain.ChannelPush, SendTransient)),
		slog.Int("push_gone", report.Count(domain.ChannelPush, SendGone)),
		slog.Int("email_sent", report.Count(domain.ChannelEmail, SendDelivered)),
		slog.Int("email_failed", report.Count(domain.ChannelEmail, SendTransient)))

	return report, nil
}

// markReminderSent writes the flag after the sends went out, so a caller that
// gave up mid fan-out must not leave the task armed.
func (o *Orchestrator) markReminderSent(ctx context.Context, taskID int64) (bool, error) {
	flagCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), FlagWriteTimeout)
	defer cancel()
	return o.tasks.TrySetReminderSent(flagCtx, taskID)
}

// recoverChannel stops a panic in one channel from crashing the process.
// The channel is reported as one transient failure.
func (o *Orchestrator) recoverChannel(ctx context.Context, channel domain.Channel, collect func(SendOutcome)) {
	if r := recover(); r != nil {
		logger.FromContextOrDefault(ctx, o.logger).Error("panic during channel delivery",
			slog.String("channel", string(channel)), slog.Any("panic", r))
		collect(SendOutcome{Channel: channel, Kind: SendTransient, Err: fmt.Errorf("%s delivery panicked: %v", channel, r)})
	}
}

func (o *Orchestrator) deliverPush(ctx context.Context, task domain.Task, collect func(SendOutcome)) {
	log := logger.FromContextOrDefault(ctx, o.logger)

	subs, err := o.subs.FindByOwner(ctx, task.OwnerID)
	if err != nil {
		log.Error("failed to load push subscriptions", slog.String("error", redact.Error(err)))
		err = fmt.Errorf("failed to load push subscriptions: %w", err)
		o.auditor.Record(ctx, Attempt{Task: task, Channel: domain.ChannelPush, Outcome: domain.OutcomeFailed, Err: err})
		collect(SendOutcome{Channel: domain.ChannelPush, Kind: SendTransient, Err: err})
		return
	}
	if len(subs) == 0 {
		log.Debug("owner has no push subscriptions")
		return
	}

	title, body := task.ReminderTitle(), PushBody(task)

	var g errgroup.Group
	g.SetLimit(o.cfg.SendConcurrency)
	for _, sub := range subs {
		g.Go(func() error {
			out := o.sendPush(ctx, task, sub, title, body)
			outcome := domain.OutcomeSent
			if out.Kind != SendDelivered {
				outcome = domain.OutcomeFailed
			}
			o.auditor.Record(ctx, Attempt{
				Task:    task,
				Channel: domain.ChannelPush,
				Outcome: outcome,
				Err:     out.Err,
				Target:  sub.Endpoint,
				Device:  sub.Device.Label(),
			})
			collect(out)
			return nil
		})
	}
	_ = g.Wait()
}

// sendPush runs one push send with its own timeout and panic boundary.
func (o *Orchestrator) sendPush(ctx context.Context, task domain.Task, sub domain.Subscription, title, body string) (out SendOutcome) {
	out = SendOutcome{Channel: domain.ChannelPush, Kind: SendTransient, Target: sub.Endpoint}
	defer func() {
		if r := recover(); r != nil {
			logger.FromContextOrDefault(ctx, o.logger).Error("panic during push send", slog.Any("panic", r))
			out.Kind = SendTransient
			out.Err = fmt.Errorf("push send panicked: %v", r)
		}
	}()

	sendCtx, cancel := context.WithTimeout(ctx, o.cfg.SendTimeout)
	defer cancel()

	result := o.push.Send(sendCtx, sub, title, body, task.ID)
	switch result.Kind {
	case webpush.Delivered:
		out.Kind = SendDelivered
	case webpush.Gone:
		out.Kind = SendGone
		out.Err = result.Err
	default:
		out.Err = result.Err
		if out.Err == nil {
			out.Err = errors.New("push send failed")
		}
	}
	return out
}

func (o *Orchestrator) deliverEmail(ctx context.Context, task domain.Task, collect func(SendOutcome)) {
	out := o.sendEmail(ctx, task)
	outcome := domain.OutcomeSent
	if out.Kind != SendDelivered {
		outcome = domain.OutcomeFailed
		logger.FromContextOrDefault(ctx, o.logger).Warn("email reminder failed", slog.String("error", redact.Error(out.Err)))
	}
	o.auditor.Record(ctx, Attempt{
		Task:    task,
		Channel: domain.ChannelEmail,
		Outcome: outcome,
		Err:     out.Err,
		Target:  out.Target,
		Device:  task.Device(),
	})
	collect(out)
}

func (o *Orchestrator) sendEmail(ctx context.Context, task domain.Task) (out SendOutcome) {
	out = SendOutcome{Channel: domain.ChannelEmail, Kind: SendTransient}
	defer func() {
		if r := recover(); r != nil {
			out.Kind = SendTransient
			out.Err = fmt.Errorf("email send panicked: %v", r)
		}
	}()

	sendCtx, cancel := context.WithTimeout(ctx, o.cfg.SendTimeout)
	defer cancel()

	address, err := o.identity.EmailOf(sendCtx, task.OwnerID)
	if err != nil {
		out.Err = fmt.Errorf("failed to resolve email address: %w", err)
		return out
	}
	address = strings.TrimSpace(address)
	if address == "" {
		out.Err = ErrNoEmailAddress
		return out
	}
	out.Target = address

	if err := o.email.Send(sendCtx, address, task); err != nil {
		out.Err = err
		return out
	}

	out.Kind = SendDelivered
	return out
}
