package fsmkit

// MachineSnapshot is the serializable view of a machine's runtime state.
// The engine never writes it anywhere itself; an external save system
// marshals it (the yaml/json tags are for that collaborator) and restores it
// through RestoreSnapshot, which applies parameters and then forces the
// saved state.
type MachineSnapshot struct {
	ID            string              `json:"id" yaml:"id"`
	Name          string              `json:"name" yaml:"name"`
	CurrentState  string              `json:"currentState" yaml:"currentState"`
	Active        bool                `json:"active" yaml:"active"`
	Priority      int                 `json:"priority" yaml:"priority"`
	UpdateMode    string              `json:"updateMode" yaml:"updateMode"`
	CheckInterval float64             `json:"checkInterval,omitempty" yaml:"checkInterval,omitempty"`
	Parameters    []ParameterSnapshot `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// ParameterSnapshot is one (name, type, value) tuple.
type ParameterSnapshot struct {
	Name  string `json:"name" yaml:"name"`
	Type  string `json:"type" yaml:"type"`
	Value any    `json:"value" yaml:"value"`
}

// Snapshot captures the machine's restorable state: current state name,
// parameter tuples, active flag, priority and update mode.
func (m *Machine) Snapshot() MachineSnapshot {
	snap := MachineSnapshot{
		ID:            m.id.String(),
		Name:          m.name,
		CurrentState:  m.CurrentStateName(),
		Active:        m.active,
		Priority:      m.priority,
		UpdateMode:    m.mode.String(),
		CheckInterval: m.checkInterval,
	}
	if m.store != nil {
		snap.Parameters = m.store.Snapshot()
	}
	return snap
}

// RestoreSnapshot applies a snapshot onto a machine with the same schema:
// parameters first, then the saved state via ForceTransition so enter hooks
// run. Returns false with logged errors when the snapshot names an
// unregistered state. Unknown update modes keep the current mode.
func (m *Machine) RestoreSnapshot(snap MachineSnapshot) bool {
	if m.store != nil {
		m.store.Restore(snap.Parameters)
	}
	m.priority = snap.Priority
	if mode, err := ParseUpdateMode(snap.UpdateMode); err == nil {
		m.mode = mode
	} else {
		m.logger.Warn("snapshot has unknown update mode", "mode", snap.UpdateMode)
	}
	if snap.CheckInterval > 0 {
		m.checkInterval = snap.CheckInterval
	}
	if snap.CurrentState != "" {
		if m.phase == LifecycleUninitialized {
			m.Initialize()
		}
		m.active = true
		m.phase = LifecycleRunning
		if !m.ForceTransition(snap.CurrentState) {
			return false
		}
	}
	m.active = snap.Active
	return true
}

// Snapshot returns every parameter as a (name, type, value) tuple, sorted by
// name.
func (s *ParameterStore) Snapshot() []ParameterSnapshot {
	params := s.Parameters()
	out := make([]ParameterSnapshot, 0, len(params))
	for _, p := range params {
		out = append(out, ParameterSnapshot{
			Name:  p.Name,
			Type:  p.Type.String(),
			Value: p.Value,
		})
	}
	return out
}

// Restore applies saved tuples onto a store of the same schema through
// SetValue, so type checking and change notification apply. Tuples naming
// unknown parameters are logged and skipped.
func (s *ParameterStore) Restore(params []ParameterSnapshot) {
	for _, p := range params {
		s.SetValue(p.Name, p.Value)
	}
}
