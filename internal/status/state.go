package status

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/matheus3301/mailcount/internal/notify"
)

// State is the daemon's lifecycle state.
type State string

const (
	Starting State = "STARTING"
	Ready    State = "READY"
	Draining State = "DRAINING"
	Stopped  State = "STOPPED"
	Error    State = "ERROR"
)

var validTransitions = map[State][]State{
	Starting: {Ready, Error},
	Ready:    {Draining, Error},
	Draining: {Stopped, Error},
	Error:    {Draining, Stopped},
	Stopped:  {},
}

// Machine tracks the daemon lifecycle and announces each change.
type Machine struct {
	mu         sync.RWMutex
	current    State
	since      time.Time
	startedAt  time.Time
	dispatcher *notify.Dispatcher
}

// NewMachine returns a machine in Starting. d may be nil.
func NewMachine(d *notify.Dispatcher) *Machine {
	now := time.Now()
	return &Machine{current: Starting, since: now, startedAt: now, dispatcher: d}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Uptime returns the time since the machine was created.
func (m *Machine) Uptime() time.Duration {
	return time.Since(m.startedAt)
}

// Transition moves to the given state, or errors if that move is not allowed.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !slices.Contains(validTransitions[m.current], to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	change := Change{From: m.current, To: to, After: time.Since(m.since)}
	m.current = to
	m.since = time.Now()
	if m.dispatcher != nil {
		m.dispatcher.Publish(notify.NewEvent(notify.KindDaemonStatus, change))
	}
	return nil
}

// Change is the payload of daemon.status_changed events.
type Change struct {
	From  State
	To    State
	After time.Duration
}
