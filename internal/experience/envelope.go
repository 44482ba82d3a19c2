package experience

import "time"

// DefaultLetterDelay is how long the open animation runs before the letter becomes
// interactive.
const DefaultLetterDelay = 520 * time.Millisecond

// EnvelopeState enumerates the envelope/letter sequence.
type EnvelopeState int

const (
	EnvelopeClosed EnvelopeState = iota
	EnvelopeOpening
	EnvelopeLetterVisible
)

func (s EnvelopeState) String() string {
	switch s {
	case EnvelopeOpening:
		return "opening"
	case EnvelopeLetterVisible:
		return "letter-visible"
	default:
		return "closed"
	}
}

// Envelope is a one-way machine: Closed, then Opening on the first open request, then
// LetterVisible once the delay has elapsed.
type Envelope struct {
	state    EnvelopeState
	openedAt time.Time
	delay    time.Duration
}

// NewEnvelope returns a closed envelope. Non-positive delays use DefaultLetterDelay.
func NewEnvelope(delay time.Duration) *Envelope {
	if delay <= 0 {
		delay = DefaultLetterDelay
	}
	return &Envelope{delay: delay}
}

// Open starts the opening animation. It reports false when the envelope was already
// opened.
func (e *Envelope) Open(now time.Time) bool {
	if e.state != EnvelopeClosed {
		return false
	}
	e.state = EnvelopeOpening
	e.openedAt = now
	return true
}

// Advance moves Opening to LetterVisible when the delay has passed and returns the
// resulting state.
func (e *Envelope) Advance(now time.Time) EnvelopeState {
	if e.state == EnvelopeOpening && !now.Before(e.openedAt.Add(e.delay)) {
		e.state = EnvelopeLetterVisible
	}
	return e.state
}

// ForceOpen jumps straight to LetterVisible.
func (e *Envelope) ForceOpen(now time.Time) {
	if e.state == EnvelopeClosed {
		e.openedAt = now
	}
	e.state = EnvelopeLetterVisible
}

// State returns the current state without advancing.
func (e *Envelope) State() EnvelopeState { return e.state }

// Remaining returns how long until the letter can be shown, zero when it already is or
// the envelope is closed.
func (e *Envelope) Remaining(now time.Time) time.Duration {
	if e.state != EnvelopeOpening {
		return 0
	}
	left := e.openedAt.Add(e.delay).Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// Delay returns the configured animation delay.
func (e *Envelope) Delay() time.Duration { return e.delay }
