package fsmkit

import (
	"errors"
	"fmt"
)

// GraphConfig is the declarative description of one machine: states,
// transitions, parameters and runtime settings as plain data. It is the seam
// between authoring tools and the engine; the Builder turns it into a wired
// machine. Authoring format (YAML files, editor output, generated code) is
// the caller's concern; the graphio subpackage provides the YAML adapter.
type GraphConfig struct {
	Name          string             `yaml:"name" json:"name"`
	Initial       string             `yaml:"initial" json:"initial"`
	UpdateMode    string             `yaml:"updateMode,omitempty" json:"updateMode,omitempty"`
	CheckInterval float64            `yaml:"checkInterval,omitempty" json:"checkInterval,omitempty"`
	Priority      int                `yaml:"priority,omitempty" json:"priority,omitempty"`
	Parameters    []ParameterConfig  `yaml:"parameters,omitempty" json:"parameters,omitempty"`
	States        []StateConfig      `yaml:"states" json:"states"`
	Transitions   []TransitionConfig `yaml:"transitions,omitempty" json:"transitions,omitempty"`
}

// ParameterConfig declares one typed parameter with its default.
type ParameterConfig struct {
	Name    string `yaml:"name" json:"name"`
	Type    string `yaml:"type" json:"type"`
	Default any    `yaml:"default,omitempty" json:"default,omitempty"`
}

// StateConfig declares one state and its hook bindings. Hook entries are
// resolved through the builder's action registry.
type StateConfig struct {
	Name     string         `yaml:"name" json:"name"`
	Priority int            `yaml:"priority,omitempty" json:"priority,omitempty"`
	OnEnter  []ActionConfig `yaml:"onEnter,omitempty" json:"onEnter,omitempty"`
	OnUpdate []ActionConfig `yaml:"onUpdate,omitempty" json:"onUpdate,omitempty"`
	OnExit   []ActionConfig `yaml:"onExit,omitempty" json:"onExit,omitempty"`
}

// ActionConfig names a registered action with optional arguments.
type ActionConfig struct {
	Do   string         `yaml:"do" json:"do"`
	Args map[string]any `yaml:"args,omitempty" json:"args,omitempty"`
}

// TransitionConfig declares one transition. An empty From means any-state.
// Condition order is preserved into the built transition.
type TransitionConfig struct {
	From         string            `yaml:"from,omitempty" json:"from,omitempty"`
	To           string            `yaml:"to" json:"to"`
	Priority     int               `yaml:"priority,omitempty" json:"priority,omitempty"`
	CanInterrupt bool              `yaml:"canInterrupt,omitempty" json:"canInterrupt,omitempty"`
	Delay        float64           `yaml:"delay,omitempty" json:"delay,omitempty"`
	Operator     string            `yaml:"operator,omitempty" json:"operator,omitempty"`
	Conditions   []ConditionConfig `yaml:"conditions,omitempty" json:"conditions,omitempty"`
}

// ConditionConfig names a registered condition kind with its arguments.
// Built-in kinds: bool, int, float, range, string, trigger, timer, chance,
// chanceOnce. Hosts register further kinds on the Builder.
type ConditionConfig struct {
	Kind string         `yaml:"kind" json:"kind"`
	Args map[string]any `yaml:"args,omitempty" json:"args,omitempty"`
}

// Validate checks structural consistency: non-empty names, known enum
// strings, transition targets that name declared states, and no duplicate
// state or parameter names.
func (g *GraphConfig) Validate() error {
	if g.Name == "" {
		return errors.New("graph name is required")
	}
	if g.Initial == "" {
		return errors.New("initial state is required")
	}
	if len(g.States) == 0 {
		return errors.New("at least one state is required")
	}
	if _, err := ParseUpdateMode(g.UpdateMode); err != nil {
		return err
	}
	if g.UpdateMode == "interval" && g.CheckInterval <= 0 {
		return errors.New("interval update mode requires a positive checkInterval")
	}

	states := make(map[string]struct{}, len(g.States))
	for i, sc := range g.States {
		if sc.Name == "" {
			return fmt.Errorf("state %d: name is required", i)
		}
		if _, dup := states[sc.Name]; dup {
			return fmt.Errorf("duplicate state %q", sc.Name)
		}
		states[sc.Name] = struct{}{}
	}
	if _, ok := states[g.Initial]; !ok {
		return fmt.Errorf("initial state %q is not declared", g.Initial)
	}

	params := make(map[string]struct{}, len(g.Parameters))
	for i, pc := range g.Parameters {
		if pc.Name == "" {
			return fmt.Errorf("parameter %d: name is required", i)
		}
		if _, dup := params[pc.Name]; dup {
			return fmt.Errorf("duplicate parameter %q", pc.Name)
		}
		params[pc.Name] = struct{}{}
		if _, err := ParseParameterType(pc.Type); err != nil {
			return fmt.Errorf("parameter %q: %w", pc.Name, err)
		}
	}

	for i, tc := range g.Transitions {
		if tc.To == "" {
			return fmt.Errorf("transition %d: target is required", i)
		}
		if _, ok := states[tc.To]; !ok {
			return fmt.Errorf("transition %d: target %q is not declared", i, tc.To)
		}
		if tc.From != "" {
			if _, ok := states[tc.From]; !ok {
				return fmt.Errorf("transition %d: source %q is not declared", i, tc.From)
			}
		}
		if tc.Delay < 0 {
			return fmt.Errorf("transition %d: delay must be >= 0", i)
		}
		if _, err := ParseLogicOperator(tc.Operator); err != nil {
			return fmt.Errorf("transition %d: %w", i, err)
		}
		for j, cc := range tc.Conditions {
			if cc.Kind == "" {
				return fmt.Errorf("transition %d condition %d: kind is required", i, j)
			}
		}
	}

	return nil
}
