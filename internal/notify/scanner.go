package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tasknotify/internal/domain"
	"github.com/phrazzld/tasknotify/internal/platform/logger"
	"github.com/phrazzld/tasknotify/internal/redact"
	"github.com/phrazzld/tasknotify/internal/store"
	"golang.org/x/sync/errgroup"
)

// Triggers recorded on every scan.
const (
	TriggerScheduled = "scheduled"
	TriggerManual    = "manual"
)

// Defaults applied when ScannerConfig leaves a value unset.
const (
	DefaultTickInterval    = time.Minute
	DefaultTaskConcurrency = 8
)

var (
	// ErrScanPanicked is returned when a scan recovered from a panic.
	ErrScanPanicked = errors.New("scan panicked")

	// ErrAlreadyStarted is returned by Start on a running scanner.
	ErrAlreadyStarted = errors.New("scanner already started")
)

// Deliverer delivers the reminder for one task.
type Deliverer interface {
	Deliver(ctx context.Context, task domain.Task) (DeliveryReport, error)
}

// ScannerConfig controls the scan cadence, window and task concurrency.
type ScannerConfig struct {
	Window          Window
	TickInterval    time.Duration
	TaskConcurrency int
	// RunOnStart performs the first scan immediately instead of after one interval.
	RunOnStart bool
}

// ScanReport summarizes one scan.
type ScanReport struct {
	ScanID         string        `json:"scan_id"`
	Trigger        string        `json:"trigger"`
	StartedAt      time.Time     `json:"started_at"`
	WindowStart    time.Time     `json:"window_start"`
	WindowEnd      time.Time     `json:"window_end"`
	TasksFound     int           `json:"tasks_found"`
	TasksDelivered int           `json:"tasks_delivered"`
	TasksSkipped   int           `json:"tasks_skipped"`
	TasksFailed    int           `json:"tasks_failed"`
	PushSent       int           `json:"push_sent"`
	PushFailed     int           `json:"push_failed"`
	PushGone       int           `json:"push_gone"`
	EmailSent      int           `json:"email_sent"`
	EmailFailed    int           `json:"email_failed"`
	Duration       time.Duration `json:"duration_ns"`
}

func (r *ScanReport) add(d DeliveryReport) {
	if d.Skipped {
		r.TasksSkipped++
		return
	}
	r.TasksDelivered++
	r.PushSent += d.Count(domain.ChannelPush, SendDelivered)
	r.PushFailed += d.Count(domain.ChannelPush, SendTransient)
	r.PushGone += d.Count(domain.ChannelPush, SendGone)
	r.EmailSent += d.Count(domain.ChannelEmail, SendDelivered)
	r.EmailFailed += d.Count(domain.ChannelEmail, SendTransient) + d.Count(domain.ChannelEmail, SendGone)
}

// ScannerOption configures optional Scanner behaviour.
type ScannerOption func(*Scanner)

// WithClock replaces time.Now as the source of the scan time.
func WithClock(now func() time.Time) ScannerOption {
	return func(s *Scanner) {
		s.now = now
	}
}

// Scanner finds due tasks and hands them to a Deliverer. Scans are
// serialized: a manual trigger waits for a running scheduled scan and
// vice versa.
type Scanner struct {
	cfg       ScannerConfig
	tasks     store.TaskStore
	deliverer Deliverer
	now       func() time.Time
	logger    *slog.Logger

	// runMu serializes scans.
	runMu sync.Mutex

	// lifeMu guards cancel and wg.
	lifeMu sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScanner validates the window against the tick interval and returns a Scanner.
// If logger is nil, a default logger will be used.
func NewScanner(cfg ScannerConfig, tasks store.TaskStore, deliverer Deliverer, log *slog.Logger, opts ...ScannerOption) (*Scanner, error) {
	if tasks == nil {
		return nil, errors.New("task store cannot be nil")
	}
	if deliverer == nil {
		return nil, errors.New("deliverer cannot be nil")
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.TaskConcurrency <= 0 {
		cfg.TaskConcurrency = DefaultTaskConcurrency
	}
	if err := cfg.Window.Validate(cfg.TickInterval); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}

	s := &Scanner{
		cfg:       cfg,
		tasks:     tasks,
		deliverer: deliverer,
		now:       time.Now,
		logger:    log.With(slog.String("component", "scanner")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RunOnce performs one scheduled scan.
func (s *Scanner) RunOnce(ctx context.Context) (ScanReport, error) {
	return s.run(ctx, TriggerScheduled)
}

// TriggerManualCheck performs one scan on operator request. It follows the
// same path as a scheduled scan.
func (s *Scanner) TriggerManualCheck(ctx context.Context) (ScanReport, error) {
	return s.run(ctx, TriggerManual)
}

func (s *Scanner) run(ctx context.Context, trigger string) (report ScanReport, err error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	report = ScanReport{
		ScanID:    uuid.NewString(),
		Trigger:   trigger,
		StartedAt: s.now().UTC(),
	}
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("scan_id", report.ScanID),
		slog.String("trigger", trigger),
	)
	ctx = logger.WithLogger(ctx, log)

	defer func() {
		if r := recover(); r != nil {
			log.Error("panic during scan", slog.Any("panic", r))
			err = fmt.Errorf("%w: %v", ErrScanPanicked, r)
		}
	}()

	report.WindowStart, report.WindowEnd = s.cfg.Window.Bounds(report.StartedAt)
	started := time.Now()

	due, err := s.tasks.FindDue(ctx, report.WindowStart, report.WindowEnd)
	if err != nil {
		log.Error("failed to find due tasks", slog.String("error", redact.Error(err)))
		return report, fmt.Errorf("failed to find due tasks: %w", err)
	}
	report.TasksFound = len(due)

	if len(due) == 0 {
		log.Debug("no due tasks",
			slog.Time("window_start", report.WindowStart),
			slog.Time("window_end", report.WindowEnd))
		report.Duration = time.Since(started)
		return report, nil
	}

	log.Info("found due tasks", slog.Int("count", len(due)))

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(s.cfg.TaskConcurrency)

	for _, task := range due {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			d, err := s.deliver(ctx, task)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.TasksFailed++
				log.Error("task delivery failed",
					slog.Int64("task_id", task.ID),
					slog.String("error", redact.Error(err)))
				return nil
			}
			report.add(d)
			return nil
		})
	}
	_ = g.Wait()
	report.Duration = time.Since(started)

	log.Info("scan completed",
		slog.Int("tasks_found", report.TasksFound),
		slog.Int("tasks_delivered", report.TasksDelivered),
		slog.Int("tasks_skipped", report.TasksSkipped),
		slog.Int("tasks_failed", report.TasksFailed),
		slog.Duration("duration", report.Duration))

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// deliver isolates one task so its panic cannot stop the scan.
func (s *Scanner) deliver(ctx context.Context, task domain.Task) (d DeliveryReport, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("delivery panicked: %v", r)
		}
	}()
	return s.deliverer.Deliver(ctx, task)
}

// Start begins scanning on the configured interval until Stop is called or
// ctx is cancelled.
func (s *Scanner) Start(ctx context.Context) error {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()

	if s.cancel != nil {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info("scanner started",
		slog.Duration("tick_interval", s.cfg.TickInterval),
		slog.Duration("look_back", s.cfg.Window.LookBack),
		slog.Duration("look_ahead", s.cfg.Window.LookAhead))
	return nil
}

// Stop cancels the scan loop and waits for it to exit. A scan in progress
// sees its context cancelled.
func (s *Scanner) Stop() {
	s.lifeMu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.lifeMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
	s.logger.Info("scanner stopped")
}

func (s *Scanner) loop(ctx context.Context) {
	defer s.wg.Done()

	if s.cfg.RunOnStart {
		s.tick(ctx)
	}

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick runs a scheduled scan; errors are logged and the loop keeps going.
func (s *Scanner) tick(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("scheduled scan failed", slog.String("error", redact.Error(err)))
	}
}
