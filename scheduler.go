package fsmkit

import (
	"log/slog"
	"sort"

	"github.com/google/uuid"
)

// Scheduler drives a set of machines once per host tick in descending
// priority order and owns the trigger-reset cycle: triggers raised during a
// tick stay visible to every machine updated later in that tick and are
// cleared only after all machines ran.
//
// The scheduler is an explicitly constructed object, not a singleton; it
// also owns the process-wide global parameter store shared by all machines
// registered with it. It never owns machine lifetime: unregistering a
// machine does not stop it.
type Scheduler struct {
	logger   *slog.Logger
	global   *ParameterStore
	machines []*Machine
	sorted   []*Machine
	dirty    bool
	paused   bool
	ticks    uint64
}

// SchedulerOption configures a scheduler at construction time.
type SchedulerOption func(*Scheduler)

// WithSchedulerLogger sets the scheduler's logger. Defaults to slog.Default.
func WithSchedulerLogger(logger *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithGlobalStore supplies an externally constructed global store, for hosts
// that populate shared parameters before any machine exists.
func WithGlobalStore(store *ParameterStore) SchedulerOption {
	return func(s *Scheduler) {
		if store != nil {
			s.global = store
		}
	}
}

// NewScheduler creates a scheduler with an empty registry and its own global
// parameter store.
func NewScheduler(opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if s.global == nil {
		s.global = NewParameterStore(s.logger)
	}
	return s
}

// GlobalParameterStore returns the shared store visible to every registered
// machine's conditions.
func (s *Scheduler) GlobalParameterStore() *ParameterStore { return s.global }

// Register adds a machine to the registry and attaches the global store to
// it. Re-registering the same instance is a warned no-op.
func (s *Scheduler) Register(m *Machine) {
	if m == nil {
		s.logger.Warn("cannot register nil machine")
		return
	}
	for _, existing := range s.machines {
		if existing.ID() == m.ID() {
			s.logger.Warn("machine already registered", "machine", m.Name())
			return
		}
	}
	m.global = s.global
	m.priorityChanged = func() { s.dirty = true }
	s.machines = append(s.machines, m)
	s.dirty = true
}

// Unregister removes a machine from the registry without stopping it.
func (s *Scheduler) Unregister(id uuid.UUID) {
	for i, m := range s.machines {
		if m.ID() == id {
			m.global = nil
			m.priorityChanged = nil
			s.machines = append(s.machines[:i], s.machines[i+1:]...)
			s.dirty = true
			return
		}
	}
	s.logger.Warn("cannot unregister unknown machine", "id", id)
}

// Len returns the number of registered machines.
func (s *Scheduler) Len() int { return len(s.machines) }

// Ticks returns the number of completed Tick calls.
func (s *Scheduler) Ticks() uint64 { return s.ticks }

// IsPaused reports whether Tick is currently a no-op.
func (s *Scheduler) IsPaused() bool { return s.paused }

// SetPaused pauses or resumes all scheduling. While paused no machine
// updates and no trigger resets happen.
func (s *Scheduler) SetPaused(paused bool) { s.paused = paused }

// Tick runs one scheduler cycle: update every active machine in descending
// priority order, then clear active triggers on the global store and on each
// active machine's own store.
func (s *Scheduler) Tick(dt float64) {
	if s.paused {
		return
	}
	for _, m := range s.view() {
		if m.IsActive() {
			m.Update(dt)
		}
	}
	s.global.ResetTriggersAfterTick()
	for _, m := range s.machines {
		if m.IsActive() && m.GetParameterStore() != nil {
			m.GetParameterStore().ResetTriggersAfterTick()
		}
	}
	s.ticks++
}

// FixedTick forwards the host's fixed-rate tick across the sorted registry
// without evaluating transitions or resetting triggers.
func (s *Scheduler) FixedTick(dt float64) {
	if s.paused {
		return
	}
	for _, m := range s.view() {
		if m.IsActive() {
			m.FixedUpdate(dt)
		}
	}
}

// LateTick forwards the host's late tick across the sorted registry.
func (s *Scheduler) LateTick(dt float64) {
	if s.paused {
		return
	}
	for _, m := range s.view() {
		if m.IsActive() {
			m.LateUpdate(dt)
		}
	}
}

// view returns the priority-sorted registry, re-sorting only when the dirty
// flag is set.
func (s *Scheduler) view() []*Machine {
	if s.dirty {
		s.sorted = append(s.sorted[:0], s.machines...)
		sort.SliceStable(s.sorted, func(i, j int) bool {
			return s.sorted[i].Priority() > s.sorted[j].Priority()
		})
		s.dirty = false
	}
	return s.sorted
}
