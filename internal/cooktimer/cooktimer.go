// Package cooktimer is the countdown attached to a timed recipe step. It has
// no clock of its own: Tick advances it by one second and Run drives Tick
// from any channel of ticks.
package cooktimer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"smart-pantry/internal/recipe"
)

// Status is the timer state.
type Status int

const (
	Idle Status = iota
	Running
	Completed
)

// String returns a human-readable status.
func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Completed:
		return "completed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Option configures a Timer.
type Option func(*Timer)

// WithOnComplete registers fn to be called once each time the countdown
// reaches zero. It runs on the ticking goroutine without locks held.
func WithOnComplete(fn func(*Timer)) Option {
	return func(t *Timer) {
		t.onComplete = fn
	}
}

// Timer is safe for concurrent use.
type Timer struct {
	label      string
	total      int
	onComplete func(*Timer)

	mu        sync.Mutex
	status    Status
	remaining int
}

// New creates an idle timer of the given length in seconds.
func New(label string, seconds int, opts ...Option) *Timer {
	seconds = max(seconds, 0)
	t := &Timer{label: label, total: seconds, remaining: seconds}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// FromStep creates a timer for a recipe timer step.
func FromStep(step recipe.TimerStep, opts ...Option) *Timer {
	label := step.Description
	if label == "" {
		label = step.Instruction
	}
	return New(label, step.DurationMinutes*60, opts...)
}

// Label returns the timer's label.
func (t *Timer) Label() string { return t.label }

// Total returns the full duration in seconds.
func (t *Timer) Total() int { return t.total }

// Status returns the current state.
func (t *Timer) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Remaining returns the seconds left.
func (t *Timer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

// Start begins counting down. A completed timer restarts from the full
// duration; a running timer is left alone.
func (t *Timer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.status {
	case Running:
		return
	case Completed:
		t.remaining = t.total
	}
	t.status = Running
}

// Stop returns the timer to Idle with the full duration restored.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status = Idle
	t.remaining = t.total
}

// Toggle stops a running timer and starts any other.
func (t *Timer) Toggle() {
	if t.Status() == Running {
		t.Stop()
		return
	}
	t.Start()
}

// Tick advances a running timer by one second. It reports whether this tick
// completed the countdown.
func (t *Timer) Tick() bool {
	t.mu.Lock()
	if t.status != Running {
		t.mu.Unlock()
		return false
	}
	if t.remaining > 0 {
		t.remaining--
	}
	done := t.remaining == 0
	if done {
		t.status = Completed
	}
	t.mu.Unlock()

	if done && t.onComplete != nil {
		t.onComplete(t)
	}
	return done
}

// Progress is the elapsed fraction in [0, 1]. A zero-length timer reports 0.
func (t *Timer) Progress() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.total == 0 {
		return 0
	}
	return float64(t.total-t.remaining) / float64(t.total)
}

// Format renders the remaining time as MM:SS.
func (t *Timer) Format() string {
	return FormatSeconds(t.Remaining())
}

// FormatSeconds renders seconds as MM:SS. Minutes are not wrapped at 60.
func FormatSeconds(seconds int) string {
	seconds = max(seconds, 0)
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// Run ticks the timer on every value from ticks until the countdown
// completes, the timer leaves Running, ctx is done or ticks is closed.
func (t *Timer) Run(ctx context.Context, ticks <-chan time.Time) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ticks:
			if !ok {
				return
			}
			if t.Status() != Running {
				return
			}
			if t.Tick() {
				return
			}
		}
	}
}

// RunWithClock starts the timer and drives it from a one-second ticker.
func (t *Timer) RunWithClock(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	t.Start()
	t.Run(ctx, ticker.C)
}
