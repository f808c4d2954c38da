package domain

import (
	"strings"
	"time"
)

// Device describes the browser registration behind a push subscription.
// Every field is optional.
type Device struct {
	Type    string `json:"type,omitempty"`
	Browser string `json:"browser,omitempty"`
	OS      string `json:"os,omitempty"`
	Name    string `json:"name,omitempty"`
}

// Label joins the known classification parts, e.g. "mobile/Chrome/Android".
// It returns an empty string when nothing is known.
func (d Device) Label() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{d.Type, d.Browser, d.OS} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return strings.TrimSpace(d.Name)
	}
	return strings.Join(parts, "/")
}

// Subscription is a Web Push endpoint registered by one of the owner's devices.
// Endpoint is globally unique. P256dh and Auth are passed through to the
// encryption layer untouched.
type Subscription struct {
	Endpoint   string     `json:"endpoint"`
	OwnerID    string     `json:"owner_id"`
	P256dh     string     `json:"p256dh"`
	Auth       string     `json:"auth"`
	Device     Device     `json:"device"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Validate checks if the Subscription has valid data.
func (s *Subscription) Validate() error {
	if strings.TrimSpace(s.Endpoint) == "" {
		return ErrEmptyEndpoint
	}
	if strings.TrimSpace(s.OwnerID) == "" {
		return ErrEmptyOwner
	}
	return nil
}
