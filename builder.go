package fsmkit

import (
	"fmt"
	"log/slog"
	"math/rand"
)

// ConditionFactory resolves a condition descriptor's arguments into a
// concrete Condition instance. Each call must return a fresh instance:
// stateful conditions may not be shared between transitions.
type ConditionFactory func(args map[string]any) (Condition, error)

// StateHook is a resolved state action bound later to the machine's host
// context.
type StateHook func(host any)

// ActionFactory resolves an action descriptor's arguments into a StateHook.
type ActionFactory func(args map[string]any) (StateHook, error)

// Builder translates a GraphConfig into a wired, not-yet-started machine.
// Condition and action descriptors resolve through registries; the built-in
// condition kinds are pre-registered and hosts add their own with
// RegisterCondition/RegisterAction.
type Builder struct {
	logger     *slog.Logger
	rng        *rand.Rand
	conditions map[string]ConditionFactory
	actions    map[string]ActionFactory
}

// BuilderOption configures a builder.
type BuilderOption func(*Builder)

// WithBuilderLogger sets the logger handed to built machines and stores.
func WithBuilderLogger(logger *slog.Logger) BuilderOption {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithRand sets the random source used by chance conditions, for
// deterministic replay and tests.
func WithRand(rng *rand.Rand) BuilderOption {
	return func(b *Builder) { b.rng = rng }
}

// NewBuilder creates a builder with every built-in condition kind
// registered.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		logger:     slog.Default(),
		conditions: make(map[string]ConditionFactory),
		actions:    make(map[string]ActionFactory),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.registerBuiltins()
	return b
}

// RegisterCondition adds or replaces a condition kind.
func (b *Builder) RegisterCondition(kind string, factory ConditionFactory) {
	b.conditions[kind] = factory
}

// RegisterAction adds or replaces an action name usable in state hook lists.
func (b *Builder) RegisterAction(name string, factory ActionFactory) {
	b.actions[name] = factory
}

// Build validates the config and constructs one machine: parameter store
// populated from the descriptors, one FuncState per state descriptor, one
// Transition per transition descriptor with conditions resolved in author
// order. The machine is initialized but not started.
func (b *Builder) Build(cfg GraphConfig, host any) (*Machine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("graph %q: %w", cfg.Name, err)
	}
	mode, err := ParseUpdateMode(cfg.UpdateMode)
	if err != nil {
		return nil, err
	}

	m := NewMachine(cfg.Name,
		WithLogger(b.logger),
		WithHost(host),
		WithUpdateMode(mode),
		WithCheckInterval(cfg.CheckInterval),
		WithPriority(cfg.Priority),
	)
	m.Initialize()

	for _, pc := range cfg.Parameters {
		typ, err := ParseParameterType(pc.Type)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", pc.Name, err)
		}
		m.GetParameterStore().AddParameter(pc.Name, typ, pc.Default)
	}

	for _, sc := range cfg.States {
		state, err := b.buildState(sc)
		if err != nil {
			return nil, fmt.Errorf("state %q: %w", sc.Name, err)
		}
		m.RegisterState(state)
	}

	for i, tc := range cfg.Transitions {
		t, err := b.buildTransition(tc)
		if err != nil {
			return nil, fmt.Errorf("transition %d (%s -> %s): %w", i, tc.From, tc.To, err)
		}
		m.RegisterTransition(t)
	}

	// Bind host into the freshly built states.
	m.Initialize()

	return m, nil
}

func (b *Builder) buildState(sc StateConfig) (*FuncState, error) {
	s := NewFuncState(sc.Name)
	s.StatePriority = sc.Priority

	enter, err := b.resolveHooks(sc.OnEnter)
	if err != nil {
		return nil, err
	}
	update, err := b.resolveHooks(sc.OnUpdate)
	if err != nil {
		return nil, err
	}
	exit, err := b.resolveHooks(sc.OnExit)
	if err != nil {
		return nil, err
	}

	if len(enter) > 0 {
		s.EnterFn = composeHooks(enter)
	}
	if len(update) > 0 {
		run := composeHooks(update)
		s.UpdateFn = func(host any, dt float64) { run(host) }
	}
	if len(exit) > 0 {
		s.ExitFn = composeHooks(exit)
	}
	return s, nil
}

func (b *Builder) resolveHooks(actions []ActionConfig) ([]StateHook, error) {
	hooks := make([]StateHook, 0, len(actions))
	for _, ac := range actions {
		factory, ok := b.actions[ac.Do]
		if !ok {
			return nil, fmt.Errorf("unknown action %q", ac.Do)
		}
		hook, err := factory(ac.Args)
		if err != nil {
			return nil, fmt.Errorf("action %q: %w", ac.Do, err)
		}
		hooks = append(hooks, hook)
	}
	return hooks, nil
}

func composeHooks(hooks []StateHook) StateHook {
	return func(host any) {
		for _, h := range hooks {
			h(host)
		}
	}
}

func (b *Builder) buildTransition(tc TransitionConfig) (*Transition, error) {
	op, err := ParseLogicOperator(tc.Operator)
	if err != nil {
		return nil, err
	}
	t := &Transition{
		From:         tc.From,
		To:           tc.To,
		Priority:     tc.Priority,
		CanInterrupt: tc.CanInterrupt,
		Delay:        tc.Delay,
		Operator:     op,
	}
	for _, cc := range tc.Conditions {
		factory, ok := b.conditions[cc.Kind]
		if !ok {
			return nil, fmt.Errorf("unknown condition kind %q", cc.Kind)
		}
		cond, err := factory(cc.Args)
		if err != nil {
			return nil, fmt.Errorf("condition %q: %w", cc.Kind, err)
		}
		t.Conditions = append(t.Conditions, cond)
	}
	return t, nil
}

// registerBuiltins installs the condition kinds every builder understands.
func (b *Builder) registerBuiltins() {
	b.RegisterCondition("bool", func(args map[string]any) (Condition, error) {
		param, err := argString(args, "param")
		if err != nil {
			return nil, err
		}
		expected, _, err := argBool(args, "value", true)
		if err != nil {
			return nil, err
		}
		return &BoolCondition{Param: param, Expected: expected, Global: argGlobal(args)}, nil
	})

	b.RegisterCondition("int", func(args map[string]any) (Condition, error) {
		param, err := argString(args, "param")
		if err != nil {
			return nil, err
		}
		op, err := argCompareOp(args)
		if err != nil {
			return nil, err
		}
		threshold, err := argInt(args, "value")
		if err != nil {
			return nil, err
		}
		return &IntCondition{Param: param, Op: op, Threshold: threshold, Global: argGlobal(args)}, nil
	})

	b.RegisterCondition("float", func(args map[string]any) (Condition, error) {
		param, err := argString(args, "param")
		if err != nil {
			return nil, err
		}
		op, err := argCompareOp(args)
		if err != nil {
			return nil, err
		}
		threshold, err := argFloat(args, "value")
		if err != nil {
			return nil, err
		}
		return &FloatCondition{Param: param, Op: op, Threshold: threshold, Global: argGlobal(args)}, nil
	})

	b.RegisterCondition("range", func(args map[string]any) (Condition, error) {
		param, err := argString(args, "param")
		if err != nil {
			return nil, err
		}
		lo, err := argFloat(args, "min")
		if err != nil {
			return nil, err
		}
		hi, err := argFloat(args, "max")
		if err != nil {
			return nil, err
		}
		return &FloatRangeCondition{Param: param, Min: lo, Max: hi, Global: argGlobal(args)}, nil
	})

	b.RegisterCondition("string", func(args map[string]any) (Condition, error) {
		param, err := argString(args, "param")
		if err != nil {
			return nil, err
		}
		expected, err := argString(args, "value")
		if err != nil {
			return nil, err
		}
		negate, _, err := argBool(args, "negate", false)
		if err != nil {
			return nil, err
		}
		return &StringCondition{Param: param, Expected: expected, Negate: negate, Global: argGlobal(args)}, nil
	})

	b.RegisterCondition("trigger", func(args map[string]any) (Condition, error) {
		param, err := argString(args, "param")
		if err != nil {
			return nil, err
		}
		return &TriggerCondition{Param: param, Global: argGlobal(args)}, nil
	})

	b.RegisterCondition("timer", func(args map[string]any) (Condition, error) {
		duration, err := argFloat(args, "duration")
		if err != nil {
			return nil, err
		}
		return &TimerCondition{Duration: duration}, nil
	})

	b.RegisterCondition("chance", func(args map[string]any) (Condition, error) {
		chance, err := argFloat(args, "chance")
		if err != nil {
			return nil, err
		}
		return &ChanceCondition{Chance: chance, Rng: b.rng}, nil
	})

	b.RegisterCondition("chanceOnce", func(args map[string]any) (Condition, error) {
		chance, err := argFloat(args, "chance")
		if err != nil {
			return nil, err
		}
		return &ChanceOnceCondition{Chance: chance, Rng: b.rng}, nil
	})
}

// Descriptor argument helpers. YAML and JSON decoding hand numbers over as
// int or float64; both are accepted wherever a number is expected.

func argString(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing argument %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %q: expected string, got %T", key, v)
	}
	return s, nil
}

func argBool(args map[string]any, key string, def bool) (value, present bool, err error) {
	v, ok := args[key]
	if !ok {
		return def, false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, true, fmt.Errorf("argument %q: expected bool, got %T", key, v)
	}
	return b, true, nil
}

func argInt(args map[string]any, key string) (int64, error) {
	v, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("missing argument %q", key)
	}
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("argument %q: expected int, got %T", key, v)
	}
}

func argFloat(args map[string]any, key string) (float64, error) {
	v, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("missing argument %q", key)
	}
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	default:
		return 0, fmt.Errorf("argument %q: expected number, got %T", key, v)
	}
}

func argCompareOp(args map[string]any) (CompareOp, error) {
	v, ok := args["op"]
	if !ok {
		return CompareEqual, nil
	}
	s, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("argument \"op\": expected string, got %T", v)
	}
	return ParseCompareOp(s)
}

func argGlobal(args map[string]any) bool {
	v, ok := args["global"]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}
