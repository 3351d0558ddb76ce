package state

import (
	"errors"
	"time"
)

// HistorySize is the capacity of the state history ring buffer.
const HistorySize = 10

// Machine errors.
var (
	// ErrDuplicateTransition indicates a (state, event) pair is already
	// registered.
	ErrDuplicateTransition = errors.New("transition already registered")
)

// transitionKey identifies a transition in the table.
type transitionKey struct {
	from  State
	event Event
}

// Transition describes a single edge in the state graph.
// Guard and Action are optional. Both must be side-effect-free with
// respect to the machine itself.
type Transition struct {
	From  State
	Event Event
	To    State

	// Guard, when set, must return true for the transition to fire.
	Guard func() bool

	// Action, when set, runs after the exit hook and before the state
	// is updated.
	Action func()
}

// WithGuard returns a copy of the transition with the guard set.
func (t Transition) WithGuard(guard func() bool) Transition {
	t.Guard = guard
	return t
}

// WithAction returns a copy of the transition with the action set.
func (t Transition) WithAction(action func()) Transition {
	t.Action = action
	return t
}

// Context carries per-ceremony data across transitions.
type Context struct {
	// PeerAddress is the BLE address of the connected central.
	PeerAddress string

	// SSID is the network named by the last credential frame.
	SSID string

	// IPAddress is the address obtained after joining.
	IPAddress string

	// LastErrorKind and LastErrorMessage describe the most recent error.
	LastErrorKind    uint8
	LastErrorMessage string

	// StateEntryTime is when the current state was entered.
	StateEntryTime time.Time

	// RetryCount counts retries within the current ceremony.
	RetryCount uint8

	// Secure is set once an encrypted session is established.
	Secure bool
}

// reset returns the context to its boot values.
func (c *Context) reset(now time.Time) {
	*c = Context{StateEntryTime: now}
}

// Callback types fired around transitions. EntryFunc and ExitFunc
// receive the state being entered or left; TransitionFunc fires between
// the exit and entry hooks; TimeoutFunc fires when CheckTimeouts
// injects a timeout event.
type (
	EntryFunc      func(s State, ctx *Context)
	ExitFunc       func(s State, ctx *Context)
	TransitionFunc func(from, to State, event Event)
	TimeoutFunc    func(s State, elapsed time.Duration)
)

// stateTimeout is a per-state deadline and the event it injects.
type stateTimeout struct {
	after time.Duration
	event Event
}

// Machine is the provisioning state machine.
//
// Machine is deliberately not self-referential: it holds only
// function-typed sinks registered by its owner, never a pointer back to
// it, so the owner/machine cycle stays logical rather than structural.
type Machine struct {
	current  State
	previous State

	ctx     Context
	history []State

	transitions map[transitionKey]Transition
	timeouts    map[State]stateTimeout

	onEntry      EntryFunc
	onExit       ExitFunc
	onTransition TransitionFunc
	onTimeout    TimeoutFunc

	// now is the clock; replaceable in tests.
	now func() time.Time
}

// NewMachine creates a machine in Idle with the default transition table.
func NewMachine() *Machine {
	m := &Machine{
		current:     Idle,
		previous:    Idle,
		transitions: make(map[transitionKey]Transition),
		timeouts:    make(map[State]stateTimeout),
		now:         time.Now,
	}
	m.ctx.StateEntryTime = m.now()
	m.defineDefaultTransitions()
	return m
}

// defineDefaultTransitions installs the canonical transition table.
func (m *Machine) defineDefaultTransitions() {
	defaults := []Transition{
		{From: Idle, Event: EventStartAdvertising, To: Advertising},
		{From: Advertising, Event: EventBleClientConnected, To: Connected},
		{From: Connected, Event: EventAuthStarted, To: Authenticating},
		{From: Authenticating, Event: EventAuthSuccess, To: ReceivingCredentials},
		{From: ReceivingCredentials, Event: EventCredentialsReceived, To: ConnectingWifi},
		{From: ConnectingWifi, Event: EventWifiConnected, To: Provisioned},
		{From: ConnectingWifi, Event: EventWifiConnectionFailed, To: Error},
		{From: Error, Event: EventErrorRecovered, To: Idle},

		// A disconnect mid-handshake returns to advertising.
		{From: Connected, Event: EventBleClientDisconnected, To: Advertising},
		{From: Authenticating, Event: EventBleClientDisconnected, To: Advertising},
		{From: ReceivingCredentials, Event: EventBleClientDisconnected, To: Advertising},
	}
	for _, t := range defaults {
		// Defaults never collide.
		_ = m.AddTransition(t)
	}
}

// Current returns the current state.
func (m *Machine) Current() State { return m.current }

// Previous returns the state before the last transition.
func (m *Machine) Previous() State { return m.previous }

// IsInState reports whether the machine is in the given state.
func (m *Machine) IsInState(s State) bool { return m.current == s }

// Context returns a pointer to the machine context. The context is
// mutated by transitions; callers must not retain it across events.
func (m *Machine) Context() *Context { return &m.ctx }

// TimeInState returns how long the current state has been active.
func (m *Machine) TimeInState() time.Duration {
	return m.now().Sub(m.ctx.StateEntryTime)
}

// SetClock replaces the machine clock. Intended for tests.
func (m *Machine) SetClock(now func() time.Time) {
	if now != nil {
		m.now = now
	}
}

// AddTransition registers a transition. At most one transition may
// exist per (state, event) pair.
func (m *Machine) AddTransition(t Transition) error {
	key := transitionKey{from: t.From, event: t.Event}
	if _, exists := m.transitions[key]; exists {
		return ErrDuplicateTransition
	}
	m.transitions[key] = t
	return nil
}

// RemoveTransition deletes the transition for a (state, event) pair.
func (m *Machine) RemoveTransition(from State, event Event) {
	delete(m.transitions, transitionKey{from: from, event: event})
}

// ValidEvents returns the events with a registered transition from the
// current state. Global catch-alls are not included.
func (m *Machine) ValidEvents() []Event {
	var events []Event
	for key := range m.transitions {
		if key.from == m.current {
			events = append(events, key.event)
		}
	}
	return events
}

// IsEventValid reports whether the event would cause a transition from
// the current state, counting the global catch-alls.
func (m *Machine) IsEventValid(event Event) bool {
	if _, ok := m.transitions[transitionKey{from: m.current, event: event}]; ok {
		return true
	}
	return event == EventResetRequested || event == EventErrorOccurred
}

// OnEntry registers the state entry hook.
func (m *Machine) OnEntry(fn EntryFunc) { m.onEntry = fn }

// OnExit registers the state exit hook.
func (m *Machine) OnExit(fn ExitFunc) { m.onExit = fn }

// OnTransition registers the transition listener. It fires between the
// exit hook of the old state and the entry hook of the new state.
func (m *Machine) OnTransition(fn TransitionFunc) { m.onTransition = fn }

// OnTimeout registers the timeout listener.
func (m *Machine) OnTimeout(fn TimeoutFunc) { m.onTimeout = fn }

// HandleEvent processes an event with no payload.
func (m *Machine) HandleEvent(event Event) bool {
	return m.HandleEventData(event, "")
}

// HandleEventData processes an event. If a transition is registered for
// (current, event) and its guard passes, the transition executes:
// exit hook, action, transition listener, state update, entry hook.
// Returns true when a transition occurred.
//
// Reset and error events act as global catch-alls after the per-pair
// table misses: reset returns to Idle, error enters Error with the
// payload recorded as the error message.
func (m *Machine) HandleEventData(event Event, payload string) bool {
	key := transitionKey{from: m.current, event: event}
	if t, ok := m.transitions[key]; ok {
		return m.execute(t, event)
	}

	switch event {
	case EventResetRequested:
		ok := m.execute(Transition{From: m.current, Event: event, To: Idle}, event)
		if ok {
			m.ctx.reset(m.now())
		}
		return ok
	case EventErrorOccurred:
		m.ctx.LastErrorMessage = payload
		return m.execute(Transition{From: m.current, Event: event, To: Error}, event)
	}

	return false
}

// execute runs one transition. A failed guard aborts with no state
// change. Hook failures are the hooks' problem: the machine treats
// them as best effort and never rolls back.
func (m *Machine) execute(t Transition, event Event) bool {
	if t.Guard != nil && !t.Guard() {
		return false
	}

	if m.onExit != nil {
		m.onExit(m.current, &m.ctx)
	}
	if t.Action != nil {
		t.Action()
	}
	if m.onTransition != nil {
		m.onTransition(m.current, t.To, event)
	}

	m.previous = m.current
	m.current = t.To
	m.enter(t.To)
	return true
}

// enter stamps the new state and fires the entry hook.
func (m *Machine) enter(s State) {
	m.ctx.StateEntryTime = m.now()
	m.recordHistory(s)
	if m.onEntry != nil {
		m.onEntry(s, &m.ctx)
	}
}

// recordHistory appends to the ring buffer, dropping the oldest entry
// past capacity.
func (m *Machine) recordHistory(s State) {
	m.history = append(m.history, s)
	if len(m.history) > HistorySize {
		m.history = m.history[len(m.history)-HistorySize:]
	}
}

// History returns up to max of the most recent states, oldest first.
func (m *Machine) History(max int) []State {
	if max <= 0 || max > len(m.history) {
		max = len(m.history)
	}
	out := make([]State, max)
	copy(out, m.history[len(m.history)-max:])
	return out
}

// SetStateTimeout registers a deadline for a state. When the state has
// been active longer than after, CheckTimeouts injects the given event
// (ConnectionTimeout or ProvisioningTimeout, per the caller's choice).
func (m *Machine) SetStateTimeout(s State, after time.Duration, event Event) {
	m.timeouts[s] = stateTimeout{after: after, event: event}
}

// ClearStateTimeout removes the deadline for a state.
func (m *Machine) ClearStateTimeout(s State) {
	delete(m.timeouts, s)
}

// CheckTimeouts injects the configured timeout event if the current
// state has overstayed its deadline. Call it periodically from the
// event loop. Returns true when a timeout fired.
func (m *Machine) CheckTimeouts() bool {
	t, ok := m.timeouts[m.current]
	if !ok || t.after <= 0 {
		return false
	}
	elapsed := m.now().Sub(m.ctx.StateEntryTime)
	if elapsed <= t.after {
		return false
	}
	if m.onTimeout != nil {
		m.onTimeout(m.current, elapsed)
	}
	m.HandleEvent(t.event)
	return true
}

// Reset clears the history and returns the machine to Idle via the
// reset event, which also clears the context.
func (m *Machine) Reset() {
	m.history = nil
	m.HandleEvent(EventResetRequested)
}
