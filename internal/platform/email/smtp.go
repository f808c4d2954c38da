package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

// TLS modes accepted by SMTPTransport.
const (
	TLSModeStartTLS = "starttls"
	TLSModeTLS      = "tls"
	TLSModeNone     = "none"
)

// ErrUnknownTLSMode is returned for an unsupported tls_mode value.
var ErrUnknownTLSMode = errors.New("unknown smtp tls mode")

// SMTPConfig holds the submission server settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	TLSMode  string
	// TLSConfig overrides the client TLS configuration. ServerName defaults to Host.
	TLSConfig *tls.Config
}

// SMTPTransport submits messages to an SMTP server, one connection per message.
type SMTPTransport struct {
	addr     string
	mode     string
	tls      *tls.Config
	username string
	password string
	dialer   net.Dialer
}

var _ Transport = (*SMTPTransport)(nil)

// NewSMTPTransport validates cfg and returns a transport.
func NewSMTPTransport(cfg SMTPConfig) (*SMTPTransport, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host is required")
	}

	mode := cfg.TLSMode
	if mode == "" {
		mode = TLSModeStartTLS
	}
	switch mode {
	case TLSModeStartTLS, TLSModeTLS, TLSModeNone:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTLSMode, cfg.TLSMode)
	}

	tlsConfig := cfg.TLSConfig
	if tlsConfig == nil {
		tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	} else {
		tlsConfig = tlsConfig.Clone()
	}
	if tlsConfig.ServerName == "" {
		tlsConfig.ServerName = cfg.Host
	}

	return &SMTPTransport{
		addr:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		mode:     mode,
		tls:      tlsConfig,
		username: cfg.Username,
		password: cfg.Password,
	}, nil
}

// SendMail implements Transport. The context deadline bounds the whole
// exchange and cancellation closes the connection.
func (t *SMTPTransport) SendMail(ctx context.Context, from string, to []string, msg io.Reader) error {
	conn, err := t.dialer.DialContext(ctx, "tcp", t.addr)
	if err != nil {
		return fmt.Errorf("failed to connect to smtp server: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	var c *smtp.Client
	switch t.mode {
	case TLSModeTLS:
		c = smtp.NewClient(tls.Client(conn, t.tls))
	case TLSModeStartTLS:
		c, err = smtp.NewClientStartTLS(conn, t.tls)
		if err != nil {
			_ = conn.Close()
			return fmt.Errorf("starttls failed: %w", ctxErr(ctx, err))
		}
	default:
		c = smtp.NewClient(conn)
	}
	defer func() { _ = c.Close() }()

	if t.username != "" {
		if err := c.Auth(sasl.NewPlainClient("", t.username, t.password)); err != nil {
			return fmt.Errorf("smtp auth failed: %w", ctxErr(ctx, err))
		}
	}

	if err := c.SendMail(from, to, msg); err != nil {
		return fmt.Errorf("smtp submission failed: %w", ctxErr(ctx, err))
	}
	// The message is accepted once DATA completes.
	_ = c.Quit()
	return nil
}

// ctxErr prefers the context error when the connection was closed because of it.
func ctxErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %w", ctx.Err(), err)
	}
	return err
}
