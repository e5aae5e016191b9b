package fsmkit

import (
	"fmt"
	"math"
	"math/rand"
)

// EvalContext carries everything a condition may read during one evaluation
// cycle: the delta time accumulated since the previous cycle, the owning
// machine's parameter store, the scheduler's global store (nil when the
// machine runs unscheduled) and the opaque host context.
type EvalContext struct {
	Dt     float64
	Params *ParameterStore
	Global *ParameterStore
	Host   any
}

// Store selects between the machine-local and global parameter store.
// Falls back to the local store when no global store is attached.
func (ec *EvalContext) Store(global bool) *ParameterStore {
	if global && ec.Global != nil {
		return ec.Global
	}
	return ec.Params
}

// Condition is a boolean predicate over an evaluation context. Evaluate may
// be impure: timer conditions accumulate Dt, chance-once conditions cache
// their roll. Reset re-arms any internal state; the machine resets the
// conditions of every candidate transition when it enters a new state.
type Condition interface {
	Evaluate(ec *EvalContext) bool
	Reset()
}

// CompareOp is the comparator used by numeric conditions.
type CompareOp int

const (
	CompareEqual CompareOp = iota
	CompareNotEqual
	CompareGreater
	CompareGreaterOrEqual
	CompareLess
	CompareLessOrEqual
)

// ParseCompareOp maps a config symbol ("==", "!=", ">", ">=", "<", "<=") to
// a CompareOp.
func ParseCompareOp(s string) (CompareOp, error) {
	switch s {
	case "==", "":
		return CompareEqual, nil
	case "!=":
		return CompareNotEqual, nil
	case ">":
		return CompareGreater, nil
	case ">=":
		return CompareGreaterOrEqual, nil
	case "<":
		return CompareLess, nil
	case "<=":
		return CompareLessOrEqual, nil
	default:
		return 0, fmt.Errorf("unknown comparator %q", s)
	}
}

func (op CompareOp) String() string {
	switch op {
	case CompareEqual:
		return "=="
	case CompareNotEqual:
		return "!="
	case CompareGreater:
		return ">"
	case CompareGreaterOrEqual:
		return ">="
	case CompareLess:
		return "<"
	case CompareLessOrEqual:
		return "<="
	default:
		return fmt.Sprintf("CompareOp(%d)", int(op))
	}
}

// floatEpsilon bounds equality checks on float parameters.
const floatEpsilon = 1e-6

// BoolCondition is true when a bool parameter equals Expected.
type BoolCondition struct {
	Param    string
	Expected bool
	Global   bool
}

func (c *BoolCondition) Evaluate(ec *EvalContext) bool {
	return ec.Store(c.Global).GetBool(c.Param) == c.Expected
}

func (c *BoolCondition) Reset() {}

// IntCondition compares an int parameter against a threshold.
type IntCondition struct {
	Param     string
	Op        CompareOp
	Threshold int64
	Global    bool
}

func (c *IntCondition) Evaluate(ec *EvalContext) bool {
	v := ec.Store(c.Global).GetInt(c.Param)
	switch c.Op {
	case CompareEqual:
		return v == c.Threshold
	case CompareNotEqual:
		return v != c.Threshold
	case CompareGreater:
		return v > c.Threshold
	case CompareGreaterOrEqual:
		return v >= c.Threshold
	case CompareLess:
		return v < c.Threshold
	case CompareLessOrEqual:
		return v <= c.Threshold
	default:
		return false
	}
}

func (c *IntCondition) Reset() {}

// FloatCondition compares a float parameter against a threshold. Equality
// comparisons are epsilon-bounded.
type FloatCondition struct {
	Param     string
	Op        CompareOp
	Threshold float64
	Global    bool
}

func (c *FloatCondition) Evaluate(ec *EvalContext) bool {
	v := ec.Store(c.Global).GetFloat(c.Param)
	switch c.Op {
	case CompareEqual:
		return math.Abs(v-c.Threshold) <= floatEpsilon
	case CompareNotEqual:
		return math.Abs(v-c.Threshold) > floatEpsilon
	case CompareGreater:
		return v > c.Threshold
	case CompareGreaterOrEqual:
		return v >= c.Threshold
	case CompareLess:
		return v < c.Threshold
	case CompareLessOrEqual:
		return v <= c.Threshold
	default:
		return false
	}
}

func (c *FloatCondition) Reset() {}

// FloatRangeCondition is true when Min <= param <= Max.
type FloatRangeCondition struct {
	Param  string
	Min    float64
	Max    float64
	Global bool
}

func (c *FloatRangeCondition) Evaluate(ec *EvalContext) bool {
	v := ec.Store(c.Global).GetFloat(c.Param)
	return v >= c.Min && v <= c.Max
}

func (c *FloatRangeCondition) Reset() {}

// StringCondition compares a string parameter for (in)equality.
type StringCondition struct {
	Param    string
	Expected string
	Negate   bool
	Global   bool
}

func (c *StringCondition) Evaluate(ec *EvalContext) bool {
	eq := ec.Store(c.Global).GetString(c.Param) == c.Expected
	return eq != c.Negate
}

func (c *StringCondition) Reset() {}

// TriggerCondition is true while a trigger is in the store's active set.
type TriggerCondition struct {
	Param  string
	Global bool
}

func (c *TriggerCondition) Evaluate(ec *EvalContext) bool {
	return ec.Store(c.Global).IsTriggerSet(c.Param)
}

func (c *TriggerCondition) Reset() {}

// TimerCondition becomes true once the elapsed time accumulated across
// evaluations since the last Reset reaches Duration. The machine resets it
// on state entry, so Duration measures time in the source state.
type TimerCondition struct {
	Duration float64
	elapsed  float64
}

func (c *TimerCondition) Evaluate(ec *EvalContext) bool {
	c.elapsed += ec.Dt
	return c.elapsed >= c.Duration
}

func (c *TimerCondition) Reset() {
	c.elapsed = 0
}

// Elapsed returns the time accumulated since the last Reset.
func (c *TimerCondition) Elapsed() float64 {
	return c.elapsed
}

// ChanceCondition rolls on every evaluation and is true with probability
// Chance in [0,1]. A nil Rng uses the shared default source.
type ChanceCondition struct {
	Chance float64
	Rng    *rand.Rand
}

func (c *ChanceCondition) Evaluate(ec *EvalContext) bool {
	return c.roll()
}

func (c *ChanceCondition) Reset() {}

func (c *ChanceCondition) roll() bool {
	if c.Rng != nil {
		return c.Rng.Float64() < c.Chance
	}
	return rand.Float64() < c.Chance
}

// ChanceOnceCondition rolls once and caches the outcome until Reset. Useful
// for "30% of the time this state branches" graphs where re-rolling every
// tick would eventually always pass.
type ChanceOnceCondition struct {
	Chance float64
	Rng    *rand.Rand
	rolled bool
	result bool
}

func (c *ChanceOnceCondition) Evaluate(ec *EvalContext) bool {
	if !c.rolled {
		c.rolled = true
		if c.Rng != nil {
			c.result = c.Rng.Float64() < c.Chance
		} else {
			c.result = rand.Float64() < c.Chance
		}
	}
	return c.result
}

func (c *ChanceOnceCondition) Reset() {
	c.rolled = false
	c.result = false
}

// FuncCondition adapts a host predicate. Reset calls the optional ResetFn.
type FuncCondition struct {
	Fn      func(ec *EvalContext) bool
	ResetFn func()
}

func (c *FuncCondition) Evaluate(ec *EvalContext) bool {
	if c.Fn == nil {
		return false
	}
	return c.Fn(ec)
}

func (c *FuncCondition) Reset() {
	if c.ResetFn != nil {
		c.ResetFn()
	}
}
