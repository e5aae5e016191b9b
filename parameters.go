package fsmkit

import (
	"fmt"
	"log/slog"
	"sort"
)

// ParameterType enumerates the value kinds a parameter store can hold.
type ParameterType int

const (
	ParameterBool ParameterType = iota
	ParameterInt
	ParameterFloat
	ParameterString
	ParameterTrigger
)

// String returns the lowercase name used in configs and logs.
func (t ParameterType) String() string {
	switch t {
	case ParameterBool:
		return "bool"
	case ParameterInt:
		return "int"
	case ParameterFloat:
		return "float"
	case ParameterString:
		return "string"
	case ParameterTrigger:
		return "trigger"
	default:
		return fmt.Sprintf("ParameterType(%d)", int(t))
	}
}

// ParseParameterType maps a config string to a ParameterType.
func ParseParameterType(s string) (ParameterType, error) {
	switch s {
	case "bool":
		return ParameterBool, nil
	case "int":
		return ParameterInt, nil
	case "float":
		return ParameterFloat, nil
	case "string":
		return ParameterString, nil
	case "trigger":
		return ParameterTrigger, nil
	default:
		return 0, fmt.Errorf("unknown parameter type %q", s)
	}
}

// Parameter is one typed slot in a store. Value and Default always hold the
// Go type matching Type (bool, int64, float64, string; triggers are bool).
type Parameter struct {
	Name    string
	Type    ParameterType
	Value   any
	Default any
}

// ParameterChange records the last observed mutation of a parameter.
type ParameterChange struct {
	Old any
	New any
}

// ChangeListener observes successful parameter mutations.
type ChangeListener func(name string, value any)

// ParameterStore is the typed key/value bus conditions read from and hosts
// write to. Configuration mistakes (unknown names, type mismatches) are
// logged and become no-ops; they never panic and never return errors on the
// tick path.
//
// Triggers are two-level: the boolean value plus membership in an active set.
// A trigger raised mid-tick stays visible to every condition evaluated later
// in that same tick and is cleared by ResetTriggersAfterTick, which the
// scheduler calls once all machines have updated.
type ParameterStore struct {
	logger    *slog.Logger
	params    map[string]*Parameter
	active    map[string]struct{}
	listeners []ChangeListener
	changes   map[string]ParameterChange
}

// NewParameterStore creates an empty store. A nil logger falls back to
// slog.Default.
func NewParameterStore(logger *slog.Logger) *ParameterStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &ParameterStore{
		logger:  logger,
		params:  make(map[string]*Parameter),
		active:  make(map[string]struct{}),
		changes: make(map[string]ParameterChange),
	}
}

// AddParameter registers a new parameter with a default value. Registering a
// name twice is a warned no-op; the first registration wins. A nil or
// mistyped default is replaced by the zero value for the type.
func (s *ParameterStore) AddParameter(name string, typ ParameterType, def any) {
	if _, exists := s.params[name]; exists {
		s.logger.Warn("parameter already exists", "name", name)
		return
	}
	norm, ok := coerceValue(typ, def)
	if !ok {
		if def != nil {
			s.logger.Warn("default value type mismatch, using zero value",
				"name", name, "type", typ.String(), "default", def)
		}
		norm = zeroValue(typ)
	}
	s.params[name] = &Parameter{
		Name:    name,
		Type:    typ,
		Value:   norm,
		Default: norm,
	}
}

// RemoveParameter deletes a parameter. Unknown names are a warned no-op.
func (s *ParameterStore) RemoveParameter(name string) {
	if _, exists := s.params[name]; !exists {
		s.logger.Warn("cannot remove unknown parameter", "name", name)
		return
	}
	delete(s.params, name)
	delete(s.active, name)
	delete(s.changes, name)
}

// Has reports whether a parameter is registered.
func (s *ParameterStore) Has(name string) bool {
	_, ok := s.params[name]
	return ok
}

// TypeOf returns the declared type of a parameter. The second return is
// false for unknown names.
func (s *ParameterStore) TypeOf(name string) (ParameterType, bool) {
	p, ok := s.params[name]
	if !ok {
		return 0, false
	}
	return p.Type, true
}

// Names returns all parameter names in sorted order.
func (s *ParameterStore) Names() []string {
	names := make([]string, 0, len(s.params))
	for name := range s.params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Values returns a snapshot map of every parameter's current value.
func (s *ParameterStore) Values() map[string]any {
	out := make(map[string]any, len(s.params))
	for name, p := range s.params {
		out[name] = p.Value
	}
	return out
}

// SetValue assigns a new value. Unknown names and type mismatches are logged
// errors and no-ops. On success the change is recorded and listeners fire.
// Setting a trigger to true behaves like SetTrigger; setting it to false
// clears its active flag.
func (s *ParameterStore) SetValue(name string, value any) {
	p, ok := s.params[name]
	if !ok {
		s.logger.Error("cannot set unknown parameter", "name", name)
		return
	}
	norm, ok := coerceValue(p.Type, value)
	if !ok {
		s.logger.Error("parameter type mismatch",
			"name", name, "type", p.Type.String(), "value", value)
		return
	}
	old := p.Value
	p.Value = norm
	if p.Type == ParameterTrigger {
		if norm.(bool) {
			s.active[name] = struct{}{}
		} else {
			delete(s.active, name)
		}
	}
	s.changes[name] = ParameterChange{Old: old, New: norm}
	for _, fn := range s.listeners {
		fn(name, norm)
	}
}

// LastChange returns the most recent old→new mutation recorded for a
// parameter, if any.
func (s *ParameterStore) LastChange(name string) (ParameterChange, bool) {
	c, ok := s.changes[name]
	return c, ok
}

// Subscribe adds a change listener and returns an unsubscribe func.
func (s *ParameterStore) Subscribe(fn ChangeListener) func() {
	s.listeners = append(s.listeners, fn)
	idx := len(s.listeners) - 1
	return func() {
		if idx < len(s.listeners) {
			s.listeners[idx] = func(string, any) {}
		}
	}
}

// SetBool sets a bool parameter.
func (s *ParameterStore) SetBool(name string, v bool) { s.SetValue(name, v) }

// SetInt sets an int parameter.
func (s *ParameterStore) SetInt(name string, v int64) { s.SetValue(name, v) }

// SetFloat sets a float parameter.
func (s *ParameterStore) SetFloat(name string, v float64) { s.SetValue(name, v) }

// SetString sets a string parameter.
func (s *ParameterStore) SetString(name string, v string) { s.SetValue(name, v) }

// GetBool returns a bool parameter, or false with a logged error when the
// name is unknown or not bool-valued. Triggers read as their boolean value.
func (s *ParameterStore) GetBool(name string) bool {
	v, ok := s.lookup(name, ParameterBool, ParameterTrigger)
	if !ok {
		return false
	}
	return v.(bool)
}

// GetInt returns an int parameter, or 0 on lookup failure.
func (s *ParameterStore) GetInt(name string) int64 {
	v, ok := s.lookup(name, ParameterInt)
	if !ok {
		return 0
	}
	return v.(int64)
}

// GetFloat returns a float parameter, or 0 on lookup failure. Int parameters
// read as floats so numeric conditions can mix the two.
func (s *ParameterStore) GetFloat(name string) float64 {
	v, ok := s.lookup(name, ParameterFloat, ParameterInt)
	if !ok {
		return 0
	}
	if i, isInt := v.(int64); isInt {
		return float64(i)
	}
	return v.(float64)
}

// GetString returns a string parameter, or "" on lookup failure.
func (s *ParameterStore) GetString(name string) string {
	v, ok := s.lookup(name, ParameterString)
	if !ok {
		return ""
	}
	return v.(string)
}

// SetTrigger raises a trigger: value true plus active-set membership.
func (s *ParameterStore) SetTrigger(name string) {
	p, ok := s.params[name]
	if !ok || p.Type != ParameterTrigger {
		s.logger.Error("cannot set unknown or non-trigger parameter", "name", name)
		return
	}
	s.SetValue(name, true)
}

// IsTriggerSet reports active-set membership, not just the boolean value.
func (s *ParameterStore) IsTriggerSet(name string) bool {
	_, ok := s.active[name]
	return ok
}

// ResetTrigger clears one trigger back to false.
func (s *ParameterStore) ResetTrigger(name string) {
	p, ok := s.params[name]
	if !ok || p.Type != ParameterTrigger {
		s.logger.Error("cannot reset unknown or non-trigger parameter", "name", name)
		return
	}
	p.Value = false
	delete(s.active, name)
}

// ResetTriggersAfterTick clears every active trigger back to false. The
// scheduler calls this once per tick after all machines have updated.
func (s *ParameterStore) ResetTriggersAfterTick() {
	for name := range s.active {
		if p, ok := s.params[name]; ok {
			p.Value = false
		}
		delete(s.active, name)
	}
}

// ResetAll restores every parameter to its recorded default and clears the
// active-trigger set and change log.
func (s *ParameterStore) ResetAll() {
	for _, p := range s.params {
		p.Value = p.Default
	}
	s.active = make(map[string]struct{})
	s.changes = make(map[string]ParameterChange)
}

// Parameters returns a copy of every parameter, sorted by name, for
// snapshotting or inspection.
func (s *ParameterStore) Parameters() []Parameter {
	out := make([]Parameter, 0, len(s.params))
	for _, name := range s.Names() {
		out = append(out, *s.params[name])
	}
	return out
}

func (s *ParameterStore) lookup(name string, want ...ParameterType) (any, bool) {
	p, ok := s.params[name]
	if !ok {
		s.logger.Error("unknown parameter", "name", name)
		return nil, false
	}
	for _, t := range want {
		if p.Type == t {
			return p.Value, true
		}
	}
	s.logger.Error("parameter type mismatch",
		"name", name, "type", p.Type.String())
	return nil, false
}

// coerceValue normalizes a raw value to the store's canonical Go type for
// typ. YAML and JSON decoding produce int, float64 or bool; numeric widths
// are widened, but cross-kind assignment (e.g. string into int) fails.
func coerceValue(typ ParameterType, v any) (any, bool) {
	switch typ {
	case ParameterBool, ParameterTrigger:
		b, ok := v.(bool)
		return b, ok
	case ParameterInt:
		switch n := v.(type) {
		case int:
			return int64(n), true
		case int32:
			return int64(n), true
		case int64:
			return n, true
		}
		return nil, false
	case ParameterFloat:
		switch n := v.(type) {
		case float32:
			return float64(n), true
		case float64:
			return n, true
		case int:
			return float64(n), true
		case int64:
			return float64(n), true
		}
		return nil, false
	case ParameterString:
		s, ok := v.(string)
		return s, ok
	default:
		return nil, false
	}
}

func zeroValue(typ ParameterType) any {
	switch typ {
	case ParameterBool, ParameterTrigger:
		return false
	case ParameterInt:
		return int64(0)
	case ParameterFloat:
		return float64(0)
	case ParameterString:
		return ""
	default:
		return nil
	}
}
