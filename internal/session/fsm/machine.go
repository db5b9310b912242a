package fsm

import "sync"

// State is the connection lifecycle state of a realtime client.
type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateOpen       State = "open"
)

// Machine guards the Idle -> Connecting -> Open -> Idle lifecycle.
type Machine struct {
	mu    sync.RWMutex
	state State
	epoch uint64
}

// New creates a machine in the idle state.
func New() *Machine {
	return &Machine{state: StateIdle}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// BeginConnect moves Idle to Connecting. From any other state it reports
// false along with the state that blocked the transition.
func (m *Machine) BeginConnect() (State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateIdle {
		return m.state, false
	}
	m.state = StateConnecting
	return m.state, true
}

// OnOpen moves Connecting to Open and returns the new epoch.
func (m *Machine) OnOpen() (uint64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateConnecting {
		return m.epoch, false
	}
	m.epoch++
	m.state = StateOpen
	return m.epoch, true
}

// OnConnectFailed returns Connecting to Idle.
func (m *Machine) OnConnectFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateConnecting {
		m.state = StateIdle
	}
}

// OnClose returns to Idle if epoch is still the current Open period.
// It reports whether a transition happened.
func (m *Machine) OnClose(epoch uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateOpen || m.epoch != epoch {
		return false
	}
	m.state = StateIdle
	return true
}
