// Package script provides tengo-scripted conditions: host-extensible
// predicates authored as expressions over parameter values, usable anywhere
// a built-in condition kind is.
package script

import (
	"fmt"
	"log/slog"

	"github.com/d5/tengo/v2"

	"github.com/fsmkit/fsmkit"
)

// Condition evaluates a tengo expression against the machine's parameters.
// The expression sees two map variables: `p` holds the machine-local
// parameter values, `g` the global store's (empty when unscheduled).
//
//	kind: script
//	args:
//	  expr: p.health < 20 && !g.bossFight
//
// The program compiles once; each evaluation rebinds the maps and runs it.
// A failed run is a logged error and evaluates to false. Reset is a no-op:
// the expression carries no per-cycle state.
type Condition struct {
	expr     string
	compiled *tengo.Compiled
	logger   *slog.Logger
}

// NewCondition compiles the expression. A nil logger falls back to
// slog.Default.
func NewCondition(expr string, logger *slog.Logger) (*Condition, error) {
	if logger == nil {
		logger = slog.Default()
	}
	src := fmt.Sprintf("ok := (%s)", expr)
	s := tengo.NewScript([]byte(src))
	if err := s.Add("p", map[string]any{}); err != nil {
		return nil, err
	}
	if err := s.Add("g", map[string]any{}); err != nil {
		return nil, err
	}
	compiled, err := s.Compile()
	if err != nil {
		return nil, fmt.Errorf("compile condition %q: %w", expr, err)
	}
	return &Condition{expr: expr, compiled: compiled, logger: logger}, nil
}

// Evaluate binds the current parameter values and runs the expression.
func (c *Condition) Evaluate(ec *fsmkit.EvalContext) bool {
	local := map[string]any{}
	if ec.Params != nil {
		local = ec.Params.Values()
	}
	global := map[string]any{}
	if ec.Global != nil {
		global = ec.Global.Values()
	}
	if err := c.compiled.Set("p", local); err != nil {
		c.logger.Error("script condition bind failed", "expr", c.expr, "error", err)
		return false
	}
	if err := c.compiled.Set("g", global); err != nil {
		c.logger.Error("script condition bind failed", "expr", c.expr, "error", err)
		return false
	}
	if err := c.compiled.Run(); err != nil {
		c.logger.Error("script condition run failed", "expr", c.expr, "error", err)
		return false
	}
	return c.compiled.Get("ok").Bool()
}

// Reset implements fsmkit.Condition.
func (c *Condition) Reset() {}

// Expr returns the source expression, for diagnostics.
func (c *Condition) Expr() string { return c.expr }

// Install registers the "script" condition kind on a builder. The factory
// expects a single string argument `expr`.
func Install(b *fsmkit.Builder, logger *slog.Logger) {
	b.RegisterCondition("script", func(args map[string]any) (fsmkit.Condition, error) {
		v, ok := args["expr"]
		if !ok {
			return nil, fmt.Errorf("missing argument %q", "expr")
		}
		expr, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("argument %q: expected string, got %T", "expr", v)
		}
		return NewCondition(expr, logger)
	})
}
