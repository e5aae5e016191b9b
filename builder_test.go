package fsmkit_test

import (
	"math/rand"
	"testing"

	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fsmkit/fsmkit"
)

func patrolGraph() fsmkit.GraphConfig {
	return fsmkit.GraphConfig{
		Name:    "guard",
		Initial: "patrol",
		Parameters: []fsmkit.ParameterConfig{
			{Name: "playerDetected", Type: "bool", Default: false},
			{Name: "health", Type: "int", Default: 100},
			{Name: "hit", Type: "trigger"},
		},
		States: []fsmkit.StateConfig{
			{Name: "patrol"},
			{Name: "chase"},
			{Name: "flee"},
		},
		Transitions: []fsmkit.TransitionConfig{
			{
				From: "patrol", To: "chase",
				Conditions: []fsmkit.ConditionConfig{
					{Kind: "bool", Args: map[string]any{"param": "playerDetected", "value": true}},
				},
			},
			{
				From: "", To: "flee", Priority: 50,
				Conditions: []fsmkit.ConditionConfig{
					{Kind: "int", Args: map[string]any{"param": "health", "op": "<", "value": 20}},
				},
			},
		},
	}
}

func TestBuilderBuildsWiredMachine(t *testing.T) {
	b := fsmkit.NewBuilder(fsmkit.WithBuilderLogger(slogt.New(t)))
	m, err := b.Build(patrolGraph(), nil)
	require.NoError(t, err)

	assert.Equal(t, "guard", m.Name())
	assert.Equal(t, fsmkit.LifecycleInitialized, m.Lifecycle())
	assert.Equal(t, []string{"chase", "flee", "patrol"}, m.States())
	assert.Len(t, m.Transitions(), 2)
	assert.True(t, m.GetParameterStore().Has("playerDetected"))
	assert.Equal(t, int64(100), m.GetParameterStore().GetInt("health"))

	// Not started: still no current state.
	assert.Equal(t, "", m.CurrentStateName())
}

func TestBuiltMachineRuns(t *testing.T) {
	b := fsmkit.NewBuilder(fsmkit.WithBuilderLogger(slogt.New(t)))
	m, err := b.Build(patrolGraph(), nil)
	require.NoError(t, err)
	require.True(t, m.Start("patrol"))

	m.GetParameterStore().SetBool("playerDetected", true)
	m.Update(0.016)
	assert.Equal(t, "chase", m.CurrentStateName())

	// The any-state flee transition outranks everything once health drops.
	m.GetParameterStore().SetInt("health", 5)
	m.Update(0.016)
	assert.Equal(t, "flee", m.CurrentStateName())
}

func TestBuilderNotOperator(t *testing.T) {
	b := fsmkit.NewBuilder(fsmkit.WithBuilderLogger(slogt.New(t)))
	cfg := patrolGraph()
	cfg.Transitions = []fsmkit.TransitionConfig{{
		From: "patrol", To: "chase", Operator: "not",
		Conditions: []fsmkit.ConditionConfig{
			{Kind: "bool", Args: map[string]any{"param": "playerDetected", "value": true}},
		},
	}}
	m, err := b.Build(cfg, nil)
	require.NoError(t, err)
	require.True(t, m.Start("patrol"))

	// NOT over the single false condition fires immediately.
	m.Update(0.016)
	assert.Equal(t, "chase", m.CurrentStateName())
}

func TestBuilderHostBinding(t *testing.T) {
	type world struct{ visits int }
	w := &world{}

	b := fsmkit.NewBuilder(fsmkit.WithBuilderLogger(slogt.New(t)))
	b.RegisterAction("visit", func(args map[string]any) (fsmkit.StateHook, error) {
		return func(host any) { host.(*world).visits++ }, nil
	})

	cfg := fsmkit.GraphConfig{
		Name:    "tour",
		Initial: "stop",
		States: []fsmkit.StateConfig{{
			Name:    "stop",
			OnEnter: []fsmkit.ActionConfig{{Do: "visit"}},
		}},
	}
	m, err := b.Build(cfg, w)
	require.NoError(t, err)
	require.True(t, m.Start("stop"))

	assert.Equal(t, 1, w.visits)
}

func TestBuilderActionArgs(t *testing.T) {
	var said []string
	b := fsmkit.NewBuilder(fsmkit.WithBuilderLogger(slogt.New(t)))
	b.RegisterAction("say", func(args map[string]any) (fsmkit.StateHook, error) {
		msg, ok := args["msg"].(string)
		if !ok {
			msg = ""
		}
		return func(any) { said = append(said, msg) }, nil
	})

	cfg := fsmkit.GraphConfig{
		Name:    "talker",
		Initial: "a",
		States: []fsmkit.StateConfig{
			{
				Name:    "a",
				OnEnter: []fsmkit.ActionConfig{{Do: "say", Args: map[string]any{"msg": "hello"}}},
				OnExit:  []fsmkit.ActionConfig{{Do: "say", Args: map[string]any{"msg": "bye"}}},
			},
			{Name: "b"},
		},
	}
	m, err := b.Build(cfg, nil)
	require.NoError(t, err)
	require.True(t, m.Start("a"))
	require.True(t, m.ForceTransition("b"))

	assert.Equal(t, []string{"hello", "bye"}, said)
}

func TestBuilderUnknownConditionKind(t *testing.T) {
	b := fsmkit.NewBuilder(fsmkit.WithBuilderLogger(slogt.New(t)))
	cfg := patrolGraph()
	cfg.Transitions[0].Conditions[0].Kind = "telepathy"

	_, err := b.Build(cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telepathy")
}

func TestBuilderUnknownAction(t *testing.T) {
	b := fsmkit.NewBuilder(fsmkit.WithBuilderLogger(slogt.New(t)))
	cfg := patrolGraph()
	cfg.States[0].OnEnter = []fsmkit.ActionConfig{{Do: "vanish"}}

	_, err := b.Build(cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vanish")
}

func TestBuilderMissingConditionArg(t *testing.T) {
	b := fsmkit.NewBuilder(fsmkit.WithBuilderLogger(slogt.New(t)))
	cfg := patrolGraph()
	cfg.Transitions[0].Conditions[0].Args = map[string]any{"value": true}

	_, err := b.Build(cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "param")
}

func TestBuilderTimerAndUpdateSettings(t *testing.T) {
	b := fsmkit.NewBuilder(fsmkit.WithBuilderLogger(slogt.New(t)))
	cfg := fsmkit.GraphConfig{
		Name:          "grower",
		Initial:       "seed",
		UpdateMode:    "interval",
		CheckInterval: 0.5,
		Priority:      7,
		States:        []fsmkit.StateConfig{{Name: "seed"}, {Name: "sprout"}},
		Transitions: []fsmkit.TransitionConfig{{
			From: "seed", To: "sprout",
			Conditions: []fsmkit.ConditionConfig{
				{Kind: "timer", Args: map[string]any{"duration": 2.0}},
			},
		}},
	}
	m, err := b.Build(cfg, nil)
	require.NoError(t, err)

	assert.Equal(t, fsmkit.UpdateInterval, m.UpdateMode())
	assert.Equal(t, 0.5, m.CheckInterval())
	assert.Equal(t, 7, m.Priority())
}

func TestBuilderSeededChance(t *testing.T) {
	cfg := fsmkit.GraphConfig{
		Name:    "gambler",
		Initial: "idle",
		States:  []fsmkit.StateConfig{{Name: "idle"}, {Name: "lucky"}},
		Transitions: []fsmkit.TransitionConfig{{
			From: "idle", To: "lucky",
			Conditions: []fsmkit.ConditionConfig{
				{Kind: "chance", Args: map[string]any{"chance": 1.0}},
			},
		}},
	}
	b := fsmkit.NewBuilder(
		fsmkit.WithBuilderLogger(slogt.New(t)),
		fsmkit.WithRand(rand.New(rand.NewSource(42))))
	m, err := b.Build(cfg, nil)
	require.NoError(t, err)
	require.True(t, m.Start("idle"))

	m.Update(0.016)
	assert.Equal(t, "lucky", m.CurrentStateName())
}

func TestBuilderValidationFailures(t *testing.T) {
	b := fsmkit.NewBuilder(fsmkit.WithBuilderLogger(slogt.New(t)))

	cfg := patrolGraph()
	cfg.Initial = "ghost"
	_, err := b.Build(cfg, nil)
	assert.Error(t, err)

	cfg = patrolGraph()
	cfg.Transitions[0].To = "ghost"
	_, err = b.Build(cfg, nil)
	assert.Error(t, err)

	cfg = patrolGraph()
	cfg.Parameters[0].Type = "quaternion"
	_, err = b.Build(cfg, nil)
	assert.Error(t, err)
}
