package fsmkit

import "fmt"

// LogicOperator combines a transition's condition results into one boolean.
type LogicOperator int

const (
	// LogicAnd is true iff every condition is true. An empty condition list
	// is false: a transition with zero conditions never fires automatically.
	LogicAnd LogicOperator = iota
	// LogicOr is true iff any condition is true.
	LogicOr
	// LogicNot is defined for exactly one condition and is true iff that
	// condition is false. Zero or multiple conditions evaluate to false.
	LogicNot
	// LogicNand negates LogicAnd over a non-empty list.
	LogicNand
	// LogicNor negates LogicOr over a non-empty list.
	LogicNor
	// LogicXor is true iff exactly one condition is true.
	LogicXor
)

func (op LogicOperator) String() string {
	switch op {
	case LogicAnd:
		return "and"
	case LogicOr:
		return "or"
	case LogicNot:
		return "not"
	case LogicNand:
		return "nand"
	case LogicNor:
		return "nor"
	case LogicXor:
		return "xor"
	default:
		return fmt.Sprintf("LogicOperator(%d)", int(op))
	}
}

// ParseLogicOperator maps a config string to a LogicOperator. The empty
// string defaults to "and".
func ParseLogicOperator(s string) (LogicOperator, error) {
	switch s {
	case "and", "":
		return LogicAnd, nil
	case "or":
		return LogicOr, nil
	case "not":
		return LogicNot, nil
	case "nand":
		return LogicNand, nil
	case "nor":
		return LogicNor, nil
	case "xor":
		return LogicXor, nil
	default:
		return 0, fmt.Errorf("unknown logic operator %q", s)
	}
}

// Transition links a source state to a target state under a combined
// condition. An empty From means "any state": the transition is a candidate
// regardless of the current state.
type Transition struct {
	From         string
	To           string
	Priority     int
	CanInterrupt bool
	Delay        float64
	Operator     LogicOperator
	Conditions   []Condition
}

// Evaluate runs every condition and combines the results under Operator.
// All conditions are evaluated before combining, never short-circuited:
// stateful conditions (timers, cached rolls) must advance on every cycle
// regardless of where the operator's outcome is already decided.
func (t *Transition) Evaluate(ec *EvalContext) bool {
	n := len(t.Conditions)
	trues := 0
	firstTrue := false
	for i, c := range t.Conditions {
		if c == nil {
			continue
		}
		if c.Evaluate(ec) {
			trues++
			if i == 0 {
				firstTrue = true
			}
		}
	}
	if n == 0 {
		return false
	}
	switch t.Operator {
	case LogicAnd:
		return trues == n
	case LogicOr:
		return trues > 0
	case LogicNot:
		return n == 1 && !firstTrue
	case LogicNand:
		return trues != n
	case LogicNor:
		return trues == 0
	case LogicXor:
		return trues == 1
	default:
		return false
	}
}

// Reset re-arms every stateful condition on the transition.
func (t *Transition) Reset() {
	for _, c := range t.Conditions {
		if c != nil {
			c.Reset()
		}
	}
}
