package schemas

import (
	jsoniter "github.com/json-iterator/go"
)

// -- Workflow State Schemas --

// Timeline event kinds emitted by the upstream workflow engine.
const (
	EventAgentToolCall = "agent_tool_call"
	EventToolResult    = "tool_result"
)

// ControlToolPrefix marks control-flow pseudo-tools (task bookkeeping)
// that are never surfaced as real tool calls.
const ControlToolPrefix = "mark_task_"

// Well-known logical task keys.
const (
	RoleMarketAnalysis = "market_analysis"
	RoleRiskAssessment = "risk_assessment"
	RoleFinalSynthesis = "final_synthesis"
	RoleRecommendation = "recommendation"
)

// WorkflowState is the structured input shape: a loosely-typed snapshot of
// one upstream analysis run. All fields are optional; absent pieces
// degrade to the pipeline's documented defaults.
type WorkflowState struct {
	Query string `json:"query,omitempty"`

	// EnhancedResult is preferred over Result when both are present.
	// Either may be an object or a JSON-encoded string.
	EnhancedResult any `json:"enhanced_result,omitempty"`
	Result         any `json:"result,omitempty"`

	// AgentInvocations is carried through to the execution trace verbatim.
	AgentInvocations []any `json:"agent_invocations,omitempty"`

	Trace *WorkflowTrace `json:"trace,omitempty"`

	// EventHistory is the flat, ordered event log for the whole run.
	EventHistory []TimelineEvent `json:"event_history,omitempty"`

	// Nodes recovers each task's externally-declared id and its
	// operator-configured display name.
	Nodes []TaskNode `json:"nodes,omitempty"`
}

// Payload returns the result payload, preferring the enhanced variant.
func (s *WorkflowState) Payload() any {
	if s == nil {
		return nil
	}
	if s.EnhancedResult != nil {
		return s.EnhancedResult
	}
	return s.Result
}

// Node returns the first node whose task key matches, or nil.
func (s *WorkflowState) Node(task string) *TaskNode {
	if s == nil {
		return nil
	}
	for i := range s.Nodes {
		if s.Nodes[i].Task == task {
			return &s.Nodes[i]
		}
	}
	return nil
}

// WorkflowTrace groups per-task outcomes.
type WorkflowTrace struct {
	TaskResults TaskResults `json:"task_results,omitempty"`
}

// TimelineEvent is one record of the event log. Timestamp is kept as an
// opaque string: producers emit inconsistent formats and an unparseable
// timestamp must never cause the event to be dropped.
type TimelineEvent struct {
	EventType string `json:"event_type"`
	Timestamp string `json:"timestamp,omitempty"`

	TaskID    string `json:"task_id,omitempty"`
	TaskName  string `json:"task_name,omitempty"`
	AgentRole string `json:"agent_role,omitempty"`
	AgentName string `json:"agent_name,omitempty"`

	ToolName   string `json:"tool_name,omitempty"`
	ToolInput  any    `json:"tool_input,omitempty"`
	ToolOutput any    `json:"tool_output,omitempty"`

	// Internal marks control-flow events that never count as tool calls.
	Internal bool `json:"internal,omitempty"`
}

// TaskNode declares one logical task of the workflow graph.
type TaskNode struct {
	ID   string `json:"id,omitempty"`
	Task string `json:"task,omitempty"`

	// AgentName is the operator-configured display name for the task.
	AgentName string `json:"agent_name,omitempty"`
}

// -- Ordered task_results codec --

var jsonCfg = jsoniter.ConfigCompatibleWithStandardLibrary

// TaskResultEntry pairs a task key with its raw result object.
type TaskResultEntry struct {
	Task   string
	Result any
}

// TaskResults is a task-keyed result mapping that preserves the
// producer's document order. Go maps would randomize iteration and break
// the pipeline's byte-identical-output guarantee, so entries are kept as
// an ordered slice and the JSON codec round-trips the object form.
type TaskResults struct {
	entries []TaskResultEntry
}

// NewTaskResults builds an ordered mapping from explicit entries.
// Intended for tests and for synthesizing states programmatically.
func NewTaskResults(entries ...TaskResultEntry) TaskResults {
	return TaskResults{entries: entries}
}

// Entries returns the ordered entries. Callers must not mutate.
func (r TaskResults) Entries() []TaskResultEntry { return r.entries }

// Len reports the number of task entries.
func (r TaskResults) Len() int { return len(r.entries) }

// Get returns the result for a task key.
func (r TaskResults) Get(task string) (any, bool) {
	for _, e := range r.entries {
		if e.Task == task {
			return e.Result, true
		}
	}
	return nil, false
}

// UnmarshalJSON decodes an object preserving key order. Malformed or
// non-object input yields an empty mapping, never an error: the producer's
// trace is best-effort data, not a contract.
func (r *TaskResults) UnmarshalJSON(data []byte) error {
	r.entries = nil
	iter := jsonCfg.BorrowIterator(data)
	defer jsonCfg.ReturnIterator(iter)

	switch iter.WhatIsNext() {
	case jsoniter.ObjectValue:
	case jsoniter.NilValue:
		iter.ReadNil()
		return nil
	default:
		return nil
	}

	iter.ReadObjectCB(func(it *jsoniter.Iterator, key string) bool {
		var v any
		it.ReadVal(&v)
		if it.Error != nil {
			return false
		}
		r.entries = append(r.entries, TaskResultEntry{Task: key, Result: v})
		return true
	})
	// Keep whatever decoded cleanly before a mid-object error.
	return nil
}

// MarshalJSON re-emits the object in original order.
func (r TaskResults) MarshalJSON() ([]byte, error) {
	stream := jsonCfg.BorrowStream(nil)
	defer jsonCfg.ReturnStream(stream)

	stream.WriteObjectStart()
	for i, e := range r.entries {
		if i > 0 {
			stream.WriteMore()
		}
		stream.WriteObjectField(e.Task)
		stream.WriteVal(e.Result)
	}
	stream.WriteObjectEnd()
	if stream.Error != nil {
		return nil, stream.Error
	}

	out := make([]byte, len(stream.Buffer()))
	copy(out, stream.Buffer())
	return out, nil
}
