// Package session tracks the wake-word command window.
package session

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rbright/aurora/internal/fsm"
	"github.com/rbright/aurora/internal/textnorm"
)

// ErrInvalidConfig reports an unusable wake word or window.
var ErrInvalidConfig = errors.New("invalid session config")

// ContextResetter discards recognizer context. It is called on every arm and every return to idle.
type ContextResetter interface {
	Reset()
}

// ResetFunc adapts a function to ContextResetter.
type ResetFunc func()

func (f ResetFunc) Reset() { f() }

// Config is the fixed wake configuration for one machine.
type Config struct {
	WakeWord string
	Window   time.Duration
}

// OutcomeKind describes what Observe did with one recognized text.
type OutcomeKind int

const (
	// OutcomeIgnored means the text was discarded and the state is unchanged.
	OutcomeIgnored OutcomeKind = iota
	// OutcomeArmed means the wake word opened a command window.
	OutcomeArmed
	// OutcomeDispatch means the text arrived inside the window and should be classified.
	OutcomeDispatch
	// OutcomeTimeout means the text arrived after the window closed and was discarded.
	OutcomeTimeout
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeArmed:
		return "armed"
	case OutcomeDispatch:
		return "dispatch"
	case OutcomeTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Outcome is the result of one Observe call.
type Outcome struct {
	Kind OutcomeKind
	// Text is the raw recognized text for OutcomeDispatch.
	Text string
	// CycleID identifies the arming this outcome belongs to.
	CycleID string
	// Late is how far past the deadline an OutcomeTimeout arrived.
	Late time.Duration
}

// Snapshot is a point-in-time copy of the machine state.
type Snapshot struct {
	State    fsm.State
	Deadline time.Time
	CycleID  string
}

// Option customizes a Machine.
type Option func(*Machine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) {
		if now != nil {
			m.now = now
		}
	}
}

// Machine is the Idle/Armed(deadline) session state machine.
// Transitions are the only place the clock is read.
type Machine struct {
	wake     string
	window   time.Duration
	resetter ContextResetter
	now      func() time.Time

	mu       sync.RWMutex
	state    fsm.State
	deadline time.Time
	cycleID  string
}

// NewMachine validates cfg and returns an idle machine.
func NewMachine(cfg Config, resetter ContextResetter, opts ...Option) (*Machine, error) {
	wake := textnorm.Normalize(cfg.WakeWord)
	if wake == "" {
		return nil, errors.Join(ErrInvalidConfig, errors.New("wake word is empty"))
	}
	if cfg.Window <= 0 {
		return nil, errors.Join(ErrInvalidConfig, errors.New("command window must be positive"))
	}
	if resetter == nil {
		resetter = ResetFunc(func() {})
	}

	m := &Machine{
		wake:     wake,
		window:   cfg.Window,
		resetter: resetter,
		now:      time.Now,
		state:    fsm.StateIdle,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// WakeWord returns the normalized wake word.
func (m *Machine) WakeWord() string { return m.wake }

// Window returns the command window duration.
func (m *Machine) Window() time.Duration { return m.window }

// Snapshot returns the current state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{State: m.state, Deadline: m.deadline, CycleID: m.cycleID}
}

// Observe consumes one finalized recognizer text.
func (m *Machine) Observe(text string) Outcome {
	if strings.TrimSpace(text) == "" {
		return Outcome{Kind: OutcomeIgnored}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case fsm.StateIdle:
		if !strings.Contains(textnorm.Normalize(text), m.wake) {
			return Outcome{Kind: OutcomeIgnored}
		}
		m.armLocked(fsm.EventWake)
		return Outcome{Kind: OutcomeArmed, CycleID: m.cycleID}
	case fsm.StateArmed:
		now := m.now()
		cycle := m.cycleID
		if now.After(m.deadline) {
			late := now.Sub(m.deadline)
			m.disarmLocked(fsm.EventExpire)
			return Outcome{Kind: OutcomeTimeout, CycleID: cycle, Late: late}
		}
		m.disarmLocked(fsm.EventDispatch)
		return Outcome{Kind: OutcomeDispatch, Text: text, CycleID: cycle}
	default:
		return Outcome{Kind: OutcomeIgnored}
	}
}

// Arm opens a fresh command window regardless of the current state.
func (m *Machine) Arm() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.armLocked(fsm.EventArm)
	return Snapshot{State: m.state, Deadline: m.deadline, CycleID: m.cycleID}
}

// Disarm closes any open command window.
func (m *Machine) Disarm() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == fsm.StateArmed {
		m.disarmLocked(fsm.EventDisarm)
	}
	return Snapshot{State: m.state}
}

func (m *Machine) armLocked(event fsm.Event) {
	next, err := fsm.Transition(m.state, event)
	if err != nil {
		return
	}
	m.state = next
	m.deadline = m.now().Add(m.window)
	m.cycleID = uuid.NewString()
	m.resetter.Reset()
}

func (m *Machine) disarmLocked(event fsm.Event) {
	next, err := fsm.Transition(m.state, event)
	if err != nil {
		return
	}
	m.state = next
	m.deadline = time.Time{}
	m.cycleID = ""
	m.resetter.Reset()
}
