package webpush

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	webpushgo "github.com/SherClockHolmes/webpush-go"
	"github.com/phrazzld/tasknotify/internal/domain"
	"github.com/phrazzld/tasknotify/internal/platform/logger"
	"github.com/phrazzld/tasknotify/internal/redact"
	"github.com/phrazzld/tasknotify/internal/store"
)

// Kind classifies the result of a single push send.
type Kind int

const (
	// Transient failures leave the subscription in place.
	Transient Kind = iota
	// Delivered means the push service accepted the message.
	Delivered
	// Gone means the push service no longer knows the subscription.
	Gone
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case Delivered:
		return "delivered"
	case Gone:
		return "gone"
	default:
		return "transient"
	}
}

// maxErrorBody bounds how much of a failed response body is kept as error detail.
const maxErrorBody = 512

// ErrSubscriptionGone is wrapped by the error of a Gone result.
var ErrSubscriptionGone = errors.New("push subscription expired or unsubscribed")

// Result is the outcome of one send. Err is nil only when Kind is Delivered.
type Result struct {
	Kind       Kind
	StatusCode int
	Err        error
}

// Delivered reports whether the push service accepted the message.
func (r Result) Delivered() bool {
	return r.Kind == Delivered
}

// Config holds the VAPID identity and the delivery options.
type Config struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	// Subject is a mailto: address or https: URL identifying the sender.
	Subject         string
	TTLSeconds      int
	Urgency         string
	MaxPayloadBytes int
	// HTTPClient defaults to http.DefaultClient.
	HTTPClient webpushgo.HTTPClient
}

// Sender delivers reminders to push subscriptions and keeps the
// subscription store in sync with what the push service reports.
type Sender struct {
	keys       VAPIDKeys
	subscriber string
	ttl        int
	urgency    webpushgo.Urgency
	maxBytes   int
	client     webpushgo.HTTPClient
	subs       store.SubscriptionStore
	logger     *slog.Logger
}

// NewSender validates and registers the VAPID key pair and returns a Sender.
// If logger is nil, a default logger will be used.
func NewSender(cfg Config, subs store.SubscriptionStore, log *slog.Logger) (*Sender, error) {
	if subs == nil {
		return nil, errors.New("subscription store cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "push_sender"))

	already, err := RegisterVAPID(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to register VAPID keys: %w", err)
	}
	if already {
		log.Debug("VAPID keys already registered")
	}
	keys, _ := RegisteredVAPID()

	urgency := webpushgo.UrgencyNormal
	if cfg.Urgency != "" {
		urgency = webpushgo.Urgency(cfg.Urgency)
	}

	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	maxBytes := cfg.MaxPayloadBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxPayloadBytes
	}

	return &Sender{
		keys: keys,
		// The library prefixes anything that is not an https: URL with mailto:.
		subscriber: strings.TrimPrefix(cfg.Subject, "mailto:"),
		ttl:        cfg.TTLSeconds,
		urgency:    urgency,
		maxBytes:   maxBytes,
		client:     client,
		subs:       subs,
		logger:     log,
	}, nil
}

// Send delivers one reminder to one subscription. It never panics on a bad
// response and never returns without a classification.
func (s *Sender) Send(ctx context.Context, sub domain.Subscription, title, body string, taskID int64) Result {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.Int64("task_id", taskID),
		slog.String("endpoint", redact.String(sub.Endpoint)),
	)

	message, err := NewPayload(title, body, taskID).Encode(s.maxBytes)
	if err != nil {
		return Result{Kind: Transient, Err: err}
	}

	resp, err := webpushgo.SendNotificationWithContext(ctx, message, &webpushgo.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpushgo.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}, &webpushgo.Options{
		HTTPClient:      s.client,
		Subscriber:      s.subscriber,
		TTL:             s.ttl,
		Urgency:         s.urgency,
		VAPIDPublicKey:  s.keys.PublicKey,
		VAPIDPrivateKey: s.keys.PrivateKey,
	})
	if err != nil {
		log.Warn("push send failed", slog.String("error", redact.Error(err)))
		return Result{Kind: Transient, Err: fmt.Errorf("push send failed: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		_, _ = io.Copy(io.Discard, resp.Body)
		if err := s.subs.TouchLastUsed(ctx, sub.Endpoint); err != nil {
			log.Warn("failed to record subscription use", slog.String("error", redact.Error(err)))
		}
		return Result{Kind: Delivered, StatusCode: resp.StatusCode}

	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		log.Info("removing expired push subscription", slog.Int("status", resp.StatusCode))
		if err := s.subs.DeleteByEndpoint(ctx, sub.Endpoint); err != nil {
			log.Error("failed to remove expired subscription", slog.String("error", redact.Error(err)))
		}
		return Result{
			Kind:       Gone,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w (status %d)", ErrSubscriptionGone, resp.StatusCode),
		}

	default:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		log.Warn("push service rejected message",
			slog.Int("status", resp.StatusCode),
			slog.String("body", redact.String(string(detail))))
		return Result{
			Kind:       Transient,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("push service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail))),
		}
	}
}
