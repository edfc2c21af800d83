package session

import (
	"context"
	"strconv"
	"time"
)

// State is the countdown lifecycle.
type State int

const (
	NotStarted State = iota
	Running
	Expired
	Submitted
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "notStarted"
	case Running:
		return "running"
	case Expired:
		return "expired"
	case Submitted:
		return "submitted"
	default:
		return "unknown"
	}
}

// Terminal reports whether the countdown is over.
func (s State) Terminal() bool {
	return s == Expired || s == Submitted
}

// Timer is the countdown. Remaining time is always derived from the persisted
// start timestamp, never from a decremented counter, so reloads cannot reset it.
type Timer struct {
	store     Storage
	now       func() time.Time
	state     State
	startedAt time.Time
	total     time.Duration
	lastShown int
}

func newTimer(store Storage, now func() time.Time) *Timer {
	return &Timer{store: store, now: now, lastShown: -1}
}

// restore picks up a countdown persisted by an earlier load.
func (t *Timer) restore(values map[string]string) {
	if secs, err := strconv.Atoi(values[KeyTotalDuration]); err == nil && secs > 0 {
		t.total = time.Duration(secs) * time.Second
	}
	if values[KeyTimerStarted] != "true" {
		return
	}
	ms, err := strconv.ParseInt(values[KeyTimerStartTime], 10, 64)
	if err != nil || t.total <= 0 {
		return
	}
	t.startedAt = time.UnixMilli(ms)
	t.state = Running
}

// SetTotal records the attempt length. Ignored once the countdown has started.
func (t *Timer) SetTotal(ctx context.Context, total time.Duration) error {
	if t.state != NotStarted {
		return nil
	}
	t.total = total
	return t.store.Set(ctx, map[string]string{
		KeyTotalDuration: strconv.FormatInt(int64(total/time.Second), 10),
	})
}

// Start moves NotStarted to Running when the quiz is live and persists the
// absolute start time with the total. It reports whether the timer started.
func (t *Timer) Start(ctx context.Context, live bool) (bool, error) {
	if t.state != NotStarted || !live {
		return false, nil
	}
	startedAt := t.now()
	if err := t.store.Set(ctx, map[string]string{
		KeyTimerStarted:   "true",
		KeyTimerStartTime: strconv.FormatInt(startedAt.UnixMilli(), 10),
		KeyTotalDuration:  strconv.FormatInt(int64(t.total/time.Second), 10),
	}); err != nil {
		return false, err
	}
	t.startedAt = time.UnixMilli(startedAt.UnixMilli())
	t.state = Running
	return true, nil
}

func (t *Timer) State() State {
	return t.state
}

func (t *Timer) StartedAt() time.Time {
	return t.startedAt
}

func (t *Timer) Total() time.Duration {
	return t.total
}

// Remaining is max(0, total - (now - startedAt)).
func (t *Timer) Remaining() time.Duration {
	switch t.state {
	case NotStarted:
		return t.total
	case Submitted:
		return 0
	}
	left := t.total - t.now().Sub(t.startedAt)
	if left < 0 {
		return 0
	}
	return left
}

// RemainingSeconds is the whole-second value a countdown displays.
func (t *Timer) RemainingSeconds() int {
	switch t.state {
	case NotStarted:
		return int(t.total / time.Second)
	case Submitted:
		return 0
	}
	elapsed := int(t.now().Sub(t.startedAt) / time.Second)
	left := int(t.total/time.Second) - elapsed
	if left < 0 {
		return 0
	}
	return left
}

// Elapsed reports whether the countdown has run out, whether or not a tick has
// observed it yet.
func (t *Timer) Elapsed() bool {
	switch t.state {
	case Expired:
		return true
	case Running:
		return t.RemainingSeconds() == 0
	}
	return false
}

// Tick recomputes the display value. The value never increases while running,
// even if the wall clock steps backwards. Reaching zero moves to Expired.
func (t *Timer) Tick() (seconds int, expired bool) {
	if t.state != Running {
		return t.RemainingSeconds(), false
	}
	seconds = t.RemainingSeconds()
	if t.lastShown >= 0 && seconds > t.lastShown {
		seconds = t.lastShown
	}
	t.lastShown = seconds
	if seconds == 0 {
		t.state = Expired
		return 0, true
	}
	return seconds, false
}

// finish marks the attempt submitted.
func (t *Timer) finish() {
	t.state = Submitted
}
