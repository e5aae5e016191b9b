// Demo drives two guard machines from one scheduler: a high-priority sentry
// that raises a global alarm trigger when it spots the intruder, and a
// low-priority gate that locks down in the same tick by reading that
// trigger. The sentry graph is authored as YAML and built via graphio; the
// gate is wired programmatically.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/fsmkit/fsmkit"
	"github.com/fsmkit/fsmkit/graphio"
)

const sentryGraph = `
name: sentry
initial: watching
priority: 50
parameters:
  - name: intruderSeen
    type: bool
    default: false
states:
  - name: watching
  - name: alerting
transitions:
  - from: watching
    to: alerting
    conditions:
      - kind: bool
        args: {param: intruderSeen, value: true}
  - from: alerting
    to: watching
    delay: 3
    conditions:
      - kind: bool
        args: {param: intruderSeen, value: false}
`

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	sched := fsmkit.NewScheduler(fsmkit.WithSchedulerLogger(logger))
	global := sched.GlobalParameterStore()
	global.AddParameter("alarm", fsmkit.ParameterTrigger, nil)

	cfg, err := graphio.Parse([]byte(sentryGraph))
	if err != nil {
		logger.Error("parse sentry graph", "error", err)
		os.Exit(1)
	}

	builder := fsmkit.NewBuilder(fsmkit.WithBuilderLogger(logger))
	sentry, err := builder.Build(cfg, nil)
	if err != nil {
		logger.Error("build sentry", "error", err)
		os.Exit(1)
	}
	sentry.SubscribeStateChanged(func(from, to string) {
		fmt.Printf("sentry: %s -> %s\n", from, to)
		if to == "alerting" {
			global.SetTrigger("alarm")
		}
	})

	gate := fsmkit.NewMachine("gate",
		fsmkit.WithLogger(logger),
		fsmkit.WithPriority(10))
	gate.RegisterState(fsmkit.NewFuncState("open"))
	gate.RegisterState(fsmkit.NewFuncState("lockdown"))
	gate.RegisterTransition(&fsmkit.Transition{
		From: "open", To: "lockdown", Operator: fsmkit.LogicAnd,
		Conditions: []fsmkit.Condition{
			&fsmkit.TriggerCondition{Param: "alarm", Global: true},
		},
	})
	gate.SubscribeStateChanged(func(from, to string) {
		fmt.Printf("gate:   %s -> %s\n", from, to)
	})

	sched.Register(sentry)
	sched.Register(gate)
	sentry.Start("watching")
	gate.Start("open")

	const dt = 1.0 / 60.0
	for tick := 0; tick < 240; tick++ {
		if tick == 60 {
			fmt.Println("-- intruder enters --")
			sentry.GetParameterStore().SetBool("intruderSeen", true)
		}
		if tick == 90 {
			fmt.Println("-- intruder leaves --")
			sentry.GetParameterStore().SetBool("intruderSeen", false)
		}
		sched.Tick(dt)
	}

	fmt.Printf("final: sentry=%s gate=%s after %d ticks\n",
		sentry.CurrentStateName(), gate.CurrentStateName(), sched.Ticks())
}
