package notify

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidWindow is returned when a window cannot guarantee that every due
// time is seen by at least one tick.
var ErrInvalidWindow = errors.New("invalid scan window")

// Window is the span around the scan time in which tasks count as due.
type Window struct {
	LookBack  time.Duration
	LookAhead time.Duration
}

// Bounds returns [now-LookBack, now+LookAhead]. Both ends are inclusive.
func (w Window) Bounds(now time.Time) (start, end time.Time) {
	return now.Add(-w.LookBack), now.Add(w.LookAhead)
}

// Validate checks the window against the tick interval. Consecutive windows
// must overlap, otherwise a due time falling between them is never found.
func (w Window) Validate(interval time.Duration) error {
	if w.LookBack <= 0 {
		return fmt.Errorf("%w: look back must be positive, got %s", ErrInvalidWindow, w.LookBack)
	}
	if w.LookAhead <= 0 {
		return fmt.Errorf("%w: look ahead must be positive, got %s", ErrInvalidWindow, w.LookAhead)
	}
	if w.LookBack+w.LookAhead <= interval {
		return fmt.Errorf("%w: look back %s + look ahead %s must exceed tick interval %s",
			ErrInvalidWindow, w.LookBack, w.LookAhead, interval)
	}
	return nil
}
