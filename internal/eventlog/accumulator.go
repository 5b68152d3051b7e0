// internal/eventlog/accumulator.go
package eventlog

import (
	"github.com/xkilldash9x/fintel-cli/api/schemas"
)

// Accumulator collects followed events on top of an optional base workflow
// state. Each State call yields a fresh snapshot whose event history is the
// base history plus everything appended so far, leaving the base untouched.
type Accumulator struct {
	base   schemas.WorkflowState
	events []schemas.TimelineEvent
}

// NewAccumulator creates an accumulator over the given base state. A nil
// base starts from an empty state.
func NewAccumulator(base *schemas.WorkflowState) *Accumulator {
	a := &Accumulator{}
	if base != nil {
		a.base = *base
	}
	return a
}

// Append records one followed event.
func (a *Accumulator) Append(ev schemas.TimelineEvent) {
	a.events = append(a.events, ev)
}

// Len reports how many events have been appended since the base.
func (a *Accumulator) Len() int {
	return len(a.events)
}

// State returns a snapshot of the base state with the appended events
// merged onto its event history, preserving order.
func (a *Accumulator) State() *schemas.WorkflowState {
	st := a.base
	history := make([]schemas.TimelineEvent, 0, len(a.base.EventHistory)+len(a.events))
	history = append(history, a.base.EventHistory...)
	history = append(history, a.events...)
	st.EventHistory = history
	return &st
}
