package fsmkit

// State is one named unit of behavior inside a machine. Hooks are called
// only by the owning machine: OnEnter/OnExit around transitions, OnUpdate
// from the machine's Update while the state is current. CanExit lets a state
// veto transitions whose CanInterrupt flag is false.
type State interface {
	Name() string
	Priority() int
	OnEnter()
	OnUpdate(dt float64)
	OnExit()
	CanExit() bool
}

// ContextBinder is implemented by states that want the machine's opaque host
// context. The machine binds it during Initialize and again on re-Initialize.
type ContextBinder interface {
	BindContext(host any)
}

// FixedUpdatable receives the host's fixed-rate tick. Optional; plain states
// pay nothing.
type FixedUpdatable interface {
	OnFixedUpdate(dt float64)
}

// LateUpdatable receives the host's late tick, after all machines updated.
type LateUpdatable interface {
	OnLateUpdate(dt float64)
}

// BaseState is an embeddable default implementation: no-op hooks, CanExit
// true, and a Host field populated by the machine during Initialize.
type BaseState struct {
	StateName     string
	StatePriority int
	Host          any
}

func (s *BaseState) Name() string         { return s.StateName }
func (s *BaseState) Priority() int        { return s.StatePriority }
func (s *BaseState) OnEnter()             {}
func (s *BaseState) OnUpdate(dt float64)  {}
func (s *BaseState) OnExit()              {}
func (s *BaseState) CanExit() bool        { return true }
func (s *BaseState) BindContext(host any) { s.Host = host }

// FuncState is a hook-field state used by the builder to wrap data-driven
// state descriptors, and handy in tests. Nil hooks are no-ops; a nil
// CanExitFn means CanExit is true.
type FuncState struct {
	BaseState
	EnterFn       func(host any)
	UpdateFn      func(host any, dt float64)
	FixedUpdateFn func(host any, dt float64)
	LateUpdateFn  func(host any, dt float64)
	ExitFn        func(host any)
	CanExitFn     func(host any) bool
}

// NewFuncState creates a FuncState with the given name.
func NewFuncState(name string) *FuncState {
	return &FuncState{BaseState: BaseState{StateName: name}}
}

func (s *FuncState) OnEnter() {
	if s.EnterFn != nil {
		s.EnterFn(s.Host)
	}
}

func (s *FuncState) OnUpdate(dt float64) {
	if s.UpdateFn != nil {
		s.UpdateFn(s.Host, dt)
	}
}

func (s *FuncState) OnFixedUpdate(dt float64) {
	if s.FixedUpdateFn != nil {
		s.FixedUpdateFn(s.Host, dt)
	}
}

func (s *FuncState) OnLateUpdate(dt float64) {
	if s.LateUpdateFn != nil {
		s.LateUpdateFn(s.Host, dt)
	}
}

func (s *FuncState) OnExit() {
	if s.ExitFn != nil {
		s.ExitFn(s.Host)
	}
}

func (s *FuncState) CanExit() bool {
	if s.CanExitFn != nil {
		return s.CanExitFn(s.Host)
	}
	return true
}
