package fsmkit

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"
)

// Lifecycle tracks where a machine is in its setup/teardown sequence.
type Lifecycle int

const (
	LifecycleUninitialized Lifecycle = iota
	LifecycleInitialized
	LifecycleRunning
	LifecycleStopped
)

func (l Lifecycle) String() string {
	switch l {
	case LifecycleUninitialized:
		return "uninitialized"
	case LifecycleInitialized:
		return "initialized"
	case LifecycleRunning:
		return "running"
	case LifecycleStopped:
		return "stopped"
	default:
		return fmt.Sprintf("Lifecycle(%d)", int(l))
	}
}

// UpdateMode governs how often a machine auto-evaluates its transitions.
type UpdateMode int

const (
	// UpdateEveryTick evaluates transitions on every Update call.
	UpdateEveryTick UpdateMode = iota
	// UpdateInterval evaluates transitions once the accumulated delta time
	// reaches the machine's check interval.
	UpdateInterval
	// UpdateManual never auto-evaluates; only CheckTransitions does.
	UpdateManual
)

func (m UpdateMode) String() string {
	switch m {
	case UpdateEveryTick:
		return "everyTick"
	case UpdateInterval:
		return "interval"
	case UpdateManual:
		return "manual"
	default:
		return fmt.Sprintf("UpdateMode(%d)", int(m))
	}
}

// ParseUpdateMode maps a config string to an UpdateMode. The empty string
// defaults to everyTick.
func ParseUpdateMode(s string) (UpdateMode, error) {
	switch s {
	case "everyTick", "":
		return UpdateEveryTick, nil
	case "interval":
		return UpdateInterval, nil
	case "manual":
		return UpdateManual, nil
	default:
		return 0, fmt.Errorf("unknown update mode %q", s)
	}
}

// StateChangedListener observes completed state changes by name. The old
// name is empty for the initial entry on Start.
type StateChangedListener func(oldState, newState string)

type pendingTransition struct {
	target    string
	remaining float64
}

// Machine is one runnable FSM instance: a state registry, an ordered
// transition list, a current/previous state pointer and an exclusively owned
// parameter store. All methods must be called from the host's tick
// goroutine; the machine itself never spawns one.
type Machine struct {
	id     uuid.UUID
	name   string
	logger *slog.Logger
	host   any

	states      map[string]State
	transitions []*Transition

	current  State
	previous State
	store    *ParameterStore
	global   *ParameterStore

	mode          UpdateMode
	checkInterval float64
	priority      int
	active        bool
	phase         Lifecycle

	checkTimer     float64
	sinceLastCheck float64
	timeInState    float64
	pending        *pendingTransition

	stateChanged    []StateChangedListener
	priorityChanged func()
}

// MachineOption configures a machine at construction time.
type MachineOption func(*Machine)

// WithLogger sets the machine's logger. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) MachineOption {
	return func(m *Machine) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithHost sets the opaque context handle bound to states during Initialize
// and passed to conditions in the evaluation context.
func WithHost(host any) MachineOption {
	return func(m *Machine) { m.host = host }
}

// WithUpdateMode sets the transition-evaluation policy.
func WithUpdateMode(mode UpdateMode) MachineOption {
	return func(m *Machine) { m.mode = mode }
}

// WithCheckInterval sets the evaluation interval used by UpdateInterval.
func WithCheckInterval(seconds float64) MachineOption {
	return func(m *Machine) { m.checkInterval = seconds }
}

// WithPriority sets the machine's scheduler priority. Higher updates first.
func WithPriority(priority int) MachineOption {
	return func(m *Machine) { m.priority = priority }
}

// NewMachine creates an empty, uninitialized machine.
func NewMachine(name string, opts ...MachineOption) *Machine {
	m := &Machine{
		id:     uuid.New(),
		name:   name,
		logger: slog.Default(),
		states: make(map[string]State),
		mode:   UpdateEveryTick,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("machine", name)
	return m
}

// ID returns the instance identity used by the scheduler registry and
// snapshots.
func (m *Machine) ID() uuid.UUID { return m.id }

// Name returns the machine's name.
func (m *Machine) Name() string { return m.name }

// Lifecycle returns the machine's current lifecycle phase.
func (m *Machine) Lifecycle() Lifecycle { return m.phase }

// IsActive reports whether Update ticks do anything.
func (m *Machine) IsActive() bool { return m.active }

// SetActive pauses or resumes the machine without touching its state.
func (m *Machine) SetActive(active bool) { m.active = active }

// Priority returns the machine's scheduler priority.
func (m *Machine) Priority() int { return m.priority }

// SetPriority changes the scheduler priority; the scheduler re-sorts lazily.
func (m *Machine) SetPriority(priority int) {
	m.priority = priority
	if m.priorityChanged != nil {
		m.priorityChanged()
	}
}

// UpdateMode returns the transition-evaluation policy.
func (m *Machine) UpdateMode() UpdateMode { return m.mode }

// SetUpdateMode changes the transition-evaluation policy.
func (m *Machine) SetUpdateMode(mode UpdateMode) { m.mode = mode }

// CheckInterval returns the interval used by UpdateInterval.
func (m *Machine) CheckInterval() float64 { return m.checkInterval }

// SetCheckInterval changes the interval used by UpdateInterval.
func (m *Machine) SetCheckInterval(seconds float64) { m.checkInterval = seconds }

// Host returns the opaque context handle.
func (m *Machine) Host() any { return m.host }

// GetParameterStore exposes the machine's own store for host-driven
// parameter injection. Nil until Initialize.
func (m *Machine) GetParameterStore() *ParameterStore { return m.store }

// GlobalParameterStore returns the scheduler-owned shared store, or nil when
// the machine is not registered with a scheduler.
func (m *Machine) GlobalParameterStore() *ParameterStore { return m.global }

// CurrentState returns the current state, nil before Start and after Stop.
func (m *Machine) CurrentState() State { return m.current }

// CurrentStateName returns the current state's name, "" when none.
func (m *Machine) CurrentStateName() string {
	if m.current == nil {
		return ""
	}
	return m.current.Name()
}

// PreviousState returns the previously current state, nil when none.
func (m *Machine) PreviousState() State { return m.previous }

// TimeInState returns seconds accumulated since the current state was
// entered.
func (m *Machine) TimeInState() float64 { return m.timeInState }

// SubscribeStateChanged adds a listener fired after every completed state
// change. Returns an unsubscribe func.
func (m *Machine) SubscribeStateChanged(fn StateChangedListener) func() {
	m.stateChanged = append(m.stateChanged, fn)
	idx := len(m.stateChanged) - 1
	return func() {
		if idx < len(m.stateChanged) {
			m.stateChanged[idx] = func(string, string) {}
		}
	}
}

// RegisterState adds a state to the registry. Duplicate names are a warned
// no-op; the first registration wins. Registration is additive and allowed
// after Initialize.
func (m *Machine) RegisterState(s State) {
	if s == nil {
		m.logger.Warn("cannot register nil state")
		return
	}
	if _, exists := m.states[s.Name()]; exists {
		m.logger.Warn("state already registered", "state", s.Name())
		return
	}
	m.states[s.Name()] = s
	if m.phase != LifecycleUninitialized {
		if binder, ok := s.(ContextBinder); ok {
			binder.BindContext(m.host)
		}
	}
}

// RegisterTransition appends a transition in author order. Author order
// breaks priority ties during evaluation.
func (m *Machine) RegisterTransition(t *Transition) {
	if t == nil {
		m.logger.Warn("cannot register nil transition")
		return
	}
	m.transitions = append(m.transitions, t)
}

// States returns the registered state names in sorted order.
func (m *Machine) States() []string {
	names := make([]string, 0, len(m.states))
	for name := range m.states {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Transitions returns the transition list in author order.
func (m *Machine) Transitions() []*Transition { return m.transitions }

// Initialize allocates the parameter store and binds the host context to
// every registered state. Idempotent: a second call re-binds without
// duplicating the store.
func (m *Machine) Initialize() {
	if m.store == nil {
		m.store = NewParameterStore(m.logger)
	}
	for _, s := range m.states {
		if binder, ok := s.(ContextBinder); ok {
			binder.BindContext(m.host)
		}
	}
	if m.phase == LifecycleUninitialized {
		m.phase = LifecycleInitialized
	}
}

// Start enters the initial state and marks the machine active and running.
// Returns false with a logged error when the state is unregistered. Calling
// Start on an uninitialized machine initializes it first.
func (m *Machine) Start(initialState string) bool {
	if m.phase == LifecycleUninitialized {
		m.Initialize()
	}
	target, ok := m.states[initialState]
	if !ok {
		m.logger.Error("cannot start: initial state not registered", "state", initialState)
		return false
	}
	m.active = true
	m.phase = LifecycleRunning
	m.enterState(target)
	return true
}

// Update advances the machine by dt seconds: state update first, then the
// pending-delay countdown or ordinary transition evaluation per the update
// mode. A pending delayed transition suppresses ordinary evaluation until it
// fires.
func (m *Machine) Update(dt float64) {
	if !m.active || m.current == nil {
		return
	}
	m.timeInState += dt
	m.sinceLastCheck += dt
	m.current.OnUpdate(dt)

	if m.pending != nil {
		m.pending.remaining -= dt
		if m.pending.remaining <= 0 {
			target := m.pending.target
			m.pending = nil
			m.ForceTransition(target)
		}
		return
	}

	switch m.mode {
	case UpdateEveryTick:
		m.CheckTransitions()
	case UpdateInterval:
		m.checkTimer += dt
		if m.checkTimer >= m.checkInterval {
			m.checkTimer = 0
			m.CheckTransitions()
		}
	case UpdateManual:
		// Host drives CheckTransitions explicitly.
	}
}

// FixedUpdate forwards the host's fixed-rate tick to the current state when
// it opts in. Never evaluates transitions.
func (m *Machine) FixedUpdate(dt float64) {
	if !m.active || m.current == nil {
		return
	}
	if fu, ok := m.current.(FixedUpdatable); ok {
		fu.OnFixedUpdate(dt)
	}
}

// LateUpdate forwards the host's late tick to the current state when it opts
// in. Never evaluates transitions.
func (m *Machine) LateUpdate(dt float64) {
	if !m.active || m.current == nil {
		return
	}
	if lu, ok := m.current.(LateUpdatable); ok {
		lu.OnLateUpdate(dt)
	}
}

// CheckTransitions evaluates the candidate transitions for the current state
// in descending priority order (stable on ties). The first satisfied
// transition fires immediately or, with a positive delay, arms a pending
// countdown; either way the scan stops for this cycle. Returns true when a
// transition fired or was armed.
func (m *Machine) CheckTransitions() bool {
	if !m.active || m.current == nil {
		return false
	}
	ec := &EvalContext{
		Dt:     m.sinceLastCheck,
		Params: m.store,
		Global: m.global,
		Host:   m.host,
	}
	m.sinceLastCheck = 0

	for _, t := range m.candidates() {
		if !t.Evaluate(ec) {
			continue
		}
		if !t.CanInterrupt && !m.current.CanExit() {
			continue
		}
		if t.Delay > 0 {
			m.pending = &pendingTransition{target: t.To, remaining: t.Delay}
			m.logger.Debug("armed delayed transition",
				"from", m.current.Name(), "to", t.To, "delay", t.Delay)
		} else {
			m.performTransition(m.states[t.To])
		}
		return true
	}
	return false
}

// candidates collects transitions whose From matches the current state or is
// empty (any-state), skipping malformed entries whose target is not
// registered, sorted by descending priority with author order on ties.
func (m *Machine) candidates() []*Transition {
	current := m.current.Name()
	out := make([]*Transition, 0, len(m.transitions))
	for _, t := range m.transitions {
		if t.From != "" && t.From != current {
			continue
		}
		if _, ok := m.states[t.To]; !ok {
			m.logger.Warn("skipping transition with unregistered target", "to", t.To)
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority > out[j].Priority
	})
	return out
}

// ForceTransition performs an unconditional state change, bypassing condition
// evaluation and the interrupt guard. Any pending delayed transition is
// discarded. Returns false with a logged error when the state is not
// registered.
func (m *Machine) ForceTransition(stateName string) bool {
	target, ok := m.states[stateName]
	if !ok {
		m.logger.Error("cannot force transition to unregistered state", "state", stateName)
		return false
	}
	m.pending = nil
	m.performTransition(target)
	return true
}

// Stop exits the current state and marks the machine inactive. Registered
// states and transitions survive; Start runs the machine again.
func (m *Machine) Stop() {
	if m.current != nil {
		m.current.OnExit()
	}
	m.current = nil
	m.previous = nil
	m.pending = nil
	m.active = false
	if m.phase != LifecycleUninitialized {
		m.phase = LifecycleStopped
	}
}

// Cleanup stops the machine, clears the state registry and transition list
// and resets the parameter store. The machine needs a fresh Initialize (and
// re-registration) before it can run again.
func (m *Machine) Cleanup() {
	m.Stop()
	m.states = make(map[string]State)
	m.transitions = nil
	if m.store != nil {
		m.store.ResetAll()
	}
	m.phase = LifecycleUninitialized
}

// performTransition runs the strict change sequence: OnExit on the outgoing
// state, pointer swap, condition re-arm for the new candidate set, OnEnter on
// the incoming state, then the state-changed event.
func (m *Machine) performTransition(target State) {
	oldName := ""
	if m.current != nil {
		m.current.OnExit()
		oldName = m.current.Name()
	}
	m.previous = m.current
	m.current = target
	m.timeInState = 0
	m.resetCandidateConditions(target.Name())
	target.OnEnter()
	m.logger.Debug("state changed", "from", oldName, "to", target.Name())
	for _, fn := range m.stateChanged {
		fn(oldName, target.Name())
	}
}

// enterState performs the initial entry on Start: no outgoing state.
func (m *Machine) enterState(target State) {
	m.previous = nil
	m.current = target
	m.timeInState = 0
	m.sinceLastCheck = 0
	m.resetCandidateConditions(target.Name())
	target.OnEnter()
	for _, fn := range m.stateChanged {
		fn("", target.Name())
	}
}

// resetCandidateConditions re-arms stateful conditions on every transition
// that can fire from the newly entered state, so timers measure time in that
// state and cached rolls are fresh.
func (m *Machine) resetCandidateConditions(stateName string) {
	for _, t := range m.transitions {
		if t.From == "" || t.From == stateName {
			t.Reset()
		}
	}
}
