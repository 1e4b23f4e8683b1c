package proxy

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"
)

// State is a lifecycle state.
type State int

const (
	StateUninstalled State = iota
	StateInstalling
	StateWaiting
	StateActivating
	StateActive
)

func (s State) String() string {
	switch s {
	case StateUninstalled:
		return "uninstalled"
	case StateInstalling:
		return "installing"
	case StateWaiting:
		return "waiting"
	case StateActivating:
		return "activating"
	case StateActive:
		return "active"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// ErrInvalidTransition is returned when a lifecycle method is called in a
// state it cannot leave that way.
var ErrInvalidTransition = errors.New("invalid lifecycle transition")

// Lifecycle tracks whether the engine intercepts requests.
// It is safe for concurrent use.
type Lifecycle struct {
	mu        sync.RWMutex
	state     State
	claimedAt time.Time
	onChange  func(from, to State)
}

// NewLifecycle returns a lifecycle in StateUninstalled. onChange, if not
// nil, is called after every transition while the lock is not held.
func NewLifecycle(onChange func(from, to State)) *Lifecycle {
	return &Lifecycle{onChange: onChange}
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

func (l *Lifecycle) String() string { return l.State().String() }

// Active reports whether requests are intercepted.
func (l *Lifecycle) Active() bool { return l.State() == StateActive }

// ClaimedAt returns when Activate claimed the clients, or the zero time.
func (l *Lifecycle) ClaimedAt() time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.claimedAt
}

// Install moves Uninstalled through Installing to Waiting. With
// skipWaiting the new installation moves straight on to Activating without
// waiting for existing clients to go away.
func (l *Lifecycle) Install(skipWaiting bool) error {
	if err := l.transition(StateInstalling, StateUninstalled); err != nil {
		return err
	}
	if skipWaiting {
		return l.transition(StateActivating, StateInstalling)
	}
	return l.transition(StateWaiting, StateInstalling)
}

// Activate moves Waiting or Activating to Active and claims all clients.
func (l *Lifecycle) Activate() error {
	if l.State() == StateWaiting {
		if err := l.transition(StateActivating, StateWaiting); err != nil {
			return err
		}
	}
	if err := l.transition(StateActive, StateActivating); err != nil {
		return err
	}
	l.mu.Lock()
	l.claimedAt = time.Now()
	l.mu.Unlock()
	return nil
}

// Uninstall returns to StateUninstalled from any state.
func (l *Lifecycle) Uninstall() {
	l.mu.Lock()
	from := l.state
	l.state = StateUninstalled
	l.claimedAt = time.Time{}
	l.mu.Unlock()
	if l.onChange != nil && from != StateUninstalled {
		l.onChange(from, StateUninstalled)
	}
}

func (l *Lifecycle) transition(to State, from ...State) error {
	l.mu.Lock()
	cur := l.state
	if !slices.Contains(from, cur) {
		l.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, cur, to)
	}
	l.state = to
	l.mu.Unlock()
	if l.onChange != nil {
		l.onChange(cur, to)
	}
	return nil
}
