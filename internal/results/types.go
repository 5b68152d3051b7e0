// internal/results/types.go
package results

import (
	"github.com/xkilldash9x/fintel-cli/api/schemas"
)

// InputKind discriminates the two shapes the pipeline accepts.
type InputKind string

const (
	// InputText is a raw markdown-flavored producer document.
	InputText InputKind = "text"
	// InputState is a decoded workflow-state snapshot.
	InputState InputKind = "state"
)

// Input is the discriminated pipeline input. Construct it with TextInput or
// StateInput; the zero value builds the same report as an empty state.
type Input struct {
	Kind  InputKind
	Text  string
	State *schemas.WorkflowState
}

// TextInput wraps a raw producer document.
func TextInput(text string) Input {
	return Input{Kind: InputText, Text: text}
}

// StateInput wraps a structured workflow state.
func StateInput(state *schemas.WorkflowState) Input {
	return Input{Kind: InputState, State: state}
}

// Options configures report assembly. The zero value is valid.
type Options struct {
	// ProviderLabel names the upstream model provider in cross-agent
	// commentary when set.
	ProviderLabel string

	// RoleNames overrides the display name for individual task keys.
	RoleNames map[string]string
}

// NormalizedResult is the canonical finding shape extracted from a loose
// result payload. Fields the payload does not carry hold their documented
// defaults: sentiment "neutral", confidence 0.5, everything else empty.
type NormalizedResult struct {
	Ticker         string
	Sentiment      string
	Confidence     float64
	KeyInsights    []string
	MarketAnalysis string
	Recommendation string
	Risk           string

	// TimeSeries is carried opaquely when the payload includes one.
	TimeSeries any
}
