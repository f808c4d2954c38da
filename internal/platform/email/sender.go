package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/phrazzld/tasknotify/internal/domain"
	"github.com/phrazzld/tasknotify/internal/platform/logger"
)

// ErrNoRecipient is returned when a message has no usable recipient address.
var ErrNoRecipient = errors.New("no recipient address")

// Transport submits a composed message.
type Transport interface {
	SendMail(ctx context.Context, from string, to []string, msg io.Reader) error
}

// Sender renders and sends reminder emails.
type Sender struct {
	from      *mail.Address
	renderer  *Renderer
	transport Transport
	logger    *slog.Logger
	now       func() time.Time
}

// NewSender creates a Sender. from may include a display name,
// e.g. "Tasks <noreply@example.com>".
// If logger is nil, a default logger will be used.
func NewSender(from string, renderer *Renderer, transport Transport, log *slog.Logger) (*Sender, error) {
	if renderer == nil {
		return nil, errors.New("renderer cannot be nil")
	}
	if transport == nil {
		return nil, errors.New("transport cannot be nil")
	}
	addr, err := mail.ParseAddress(from)
	if err != nil {
		return nil, fmt.Errorf("invalid from address %q: %w", from, err)
	}
	if log == nil {
		log = slog.Default()
	}

	return &Sender{
		from:      addr,
		renderer:  renderer,
		transport: transport,
		logger:    log.With(slog.String("component", "email_sender")),
		now:       time.Now,
	}, nil
}

// Send renders the reminder for task and submits it to the address.
func (s *Sender) Send(ctx context.Context, to string, task domain.Task) error {
	msg, err := s.renderer.Render(task)
	if err != nil {
		return err
	}
	return s.deliver(ctx, to, msg, slog.Int64("task_id", task.ID))
}

// SendTest submits a fixed test message to the address.
func (s *Sender) SendTest(ctx context.Context, to string) error {
	return s.deliver(ctx, to, s.renderer.RenderTest(s.now()), slog.Bool("test", true))
}

func (s *Sender) deliver(ctx context.Context, to string, msg Message, attr slog.Attr) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	to = strings.TrimSpace(to)
	if to == "" {
		return ErrNoRecipient
	}
	rcpt, err := mail.ParseAddress(to)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoRecipient, err)
	}

	raw, err := compose(s.from, rcpt, msg, s.now())
	if err != nil {
		return err
	}

	if err := s.transport.SendMail(ctx, s.from.Address, []string{rcpt.Address}, bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	log.Info("email sent", attr, slog.Int("bytes", len(raw)))
	return nil
}
