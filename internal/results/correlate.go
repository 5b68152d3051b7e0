// internal/results/correlate.go
package results

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/xkilldash9x/fintel-cli/api/schemas"
)

// MatchReason records which predicate attributed an event to a task.
type MatchReason string

const (
	// MatchTaskID is an exact task id equality.
	MatchTaskID MatchReason = "task_id"
	// MatchAgentRole is a normalized agent_role equality.
	MatchAgentRole MatchReason = "agent_role"
	// MatchTaskName is a normalized task_name equality after stripping a
	// leading "task_" prefix.
	MatchTaskName MatchReason = "task_name"
	// MatchDisplayName is an alphanumeric-folded agent name equality.
	MatchDisplayName MatchReason = "display_name"
)

// TaskRef identifies one task for event attribution.
type TaskRef struct {
	// Task is the task key from the trace, e.g. "risk_assessment".
	Task string
	// TaskID is the node-assigned id, when the workflow carries nodes.
	TaskID string
	// AgentName is the node-configured agent name, when present.
	AgentName string
	// DisplayName is the human-facing name the report will print.
	DisplayName string
}

// MatchedEvent pairs an attributed event with the predicate that claimed it.
// Predicates carry no priority: the first of the fixed order that matches is
// recorded, and one event may attach to several tasks when their identities
// overlap.
type MatchedEvent struct {
	Event  schemas.TimelineEvent
	Reason MatchReason
}

// roleSeparators collapses hyphen and whitespace runs when normalizing roles.
var roleSeparators = regexp.MustCompile(`[-\s]+`)

// normalizeRole lowers a role or task name and folds separator runs to
// underscores, so "Risk Assessment" and "risk-assessment" compare equal.
func normalizeRole(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return roleSeparators.ReplaceAllString(s, "_")
}

// alnumFold lowers a name and strips everything but letters and digits, so
// "Risk Assessor" and "risk_assessor" compare equal.
func alnumFold(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// match reports whether the event belongs to the task, and under which
// predicate. Predicates run in a fixed order: task id, agent role, task
// name, display name.
func (ref TaskRef) match(ev schemas.TimelineEvent) (MatchReason, bool) {
	if ref.TaskID != "" && ev.TaskID == ref.TaskID {
		return MatchTaskID, true
	}
	role := normalizeRole(ref.Task)
	if role != "" {
		if ev.AgentRole != "" && normalizeRole(ev.AgentRole) == role {
			return MatchAgentRole, true
		}
		if ev.TaskName != "" && strings.TrimPrefix(normalizeRole(ev.TaskName), "task_") == role {
			return MatchTaskName, true
		}
	}
	if name := alnumFold(ev.AgentName); name != "" {
		if name == alnumFold(ref.DisplayName) || name == alnumFold(ref.AgentName) {
			return MatchDisplayName, true
		}
	}
	return "", false
}

// externalToolCall reports whether the event is a real outbound tool call:
// an agent_tool_call that is not internal and not a control tool.
func externalToolCall(ev schemas.TimelineEvent) bool {
	return ev.EventType == schemas.EventAgentToolCall &&
		!ev.Internal &&
		!strings.HasPrefix(ev.ToolName, schemas.ControlToolPrefix)
}

// CorrelateToolCalls attributes timeline events to a task. The primary pass
// collects external tool calls; when it yields nothing, a fallback pass
// collects tool_result events with their inputs blanked, since results do
// not carry the original call arguments. Event order is preserved and no
// deduplication is applied.
func CorrelateToolCalls(events []schemas.TimelineEvent, ref TaskRef) []MatchedEvent {
	var matched []MatchedEvent
	for _, ev := range events {
		if !externalToolCall(ev) {
			continue
		}
		if reason, ok := ref.match(ev); ok {
			matched = append(matched, MatchedEvent{Event: ev, Reason: reason})
		}
	}
	if len(matched) > 0 {
		return matched
	}
	for _, ev := range events {
		if ev.EventType != schemas.EventToolResult {
			continue
		}
		if reason, ok := ref.match(ev); ok {
			ev.ToolInput = nil
			matched = append(matched, MatchedEvent{Event: ev, Reason: reason})
		}
	}
	return matched
}

// ExternalToolCalls filters the full history down to real outbound calls,
// for the data-quality tally.
func ExternalToolCalls(events []schemas.TimelineEvent) []schemas.TimelineEvent {
	var calls []schemas.TimelineEvent
	for _, ev := range events {
		if externalToolCall(ev) {
			calls = append(calls, ev)
		}
	}
	return calls
}

// ToolCallRecords renders matched events as report tool-call records.
func ToolCallRecords(matched []MatchedEvent) []schemas.ToolCallRecord {
	if len(matched) == 0 {
		return nil
	}
	records := make([]schemas.ToolCallRecord, 0, len(matched))
	for _, m := range matched {
		records = append(records, schemas.ToolCallRecord{
			Tool:    m.Event.ToolName,
			Input:   m.Event.ToolInput,
			Output:  m.Event.ToolOutput,
			Preview: OutputPreview(m.Event.ToolOutput),
		})
	}
	return records
}

// OutputPreview renders a bounded preview of a tool output. Absent outputs
// and outputs that cannot be stringified get fixed placeholder text.
func OutputPreview(output any) string {
	if output == nil {
		return schemas.PreviewNoOutput
	}
	text, ok := stringifyOutput(output)
	if !ok {
		return schemas.PreviewUnavailable
	}
	return truncateRunes(text, schemas.PreviewLimit)
}

func stringifyOutput(output any) (string, bool) {
	if s, ok := output.(string); ok {
		return s, true
	}
	encoded, err := json.Marshal(output)
	if err != nil {
		return "", false
	}
	return string(encoded), true
}

// truncateRunes bounds s to limit runes, ellipsis included in the budget.
func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}
