// Package fsmkit is a data-driven finite-state-machine runtime.
//
// State graphs are authored as plain data (states, transitions, parameters,
// conditions) and executed by a generic engine: every tick the engine runs the
// current state's update hook, evaluates transitions in priority order, and
// fires enter/exit hooks when a transition is taken. A typed parameter store
// drives the conditions; a scheduler updates many machines per tick and owns
// the trigger-reset cycle across all of them.
//
// The engine has no host dependencies beyond a per-tick delta time and an
// opaque context handle. It is single-threaded by design: all ticking must
// happen from one goroutine, typically the host's game or simulation loop.
//
// Construction paths:
//
//   - Programmatic: NewMachine, RegisterState, RegisterTransition.
//   - Data-driven: a GraphConfig (usually loaded from YAML via the graphio
//     subpackage) handed to a Builder, which resolves condition and action
//     descriptors through its registries and returns a wired machine.
package fsmkit
