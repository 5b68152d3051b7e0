package schemas

// -- Report Schemas --

// Report is the canonical record produced by the normalization pipeline.
// It is the single shape the presentation layer consumes, regardless of
// whether the pipeline was fed raw markdown text or structured workflow
// state. Every field has a deterministic default, so the record is
// structurally complete even for minimal input.
type Report struct {
	// ExecutiveSummary is the headline sentence (or section) of the report.
	ExecutiveSummary string `json:"executive_summary"`

	// AgentFindings holds one entry per logical agent, in task order.
	// Empty (never nil) when the input was raw text.
	AgentFindings []AgentFinding `json:"agent_findings"`

	// FailedAgents lists display names of agents whose retry blocks ended
	// in a failed status. Always empty in the structured-input path.
	FailedAgents []string `json:"failed_agents"`

	// KeyFindings carries the bullet entries of the "Key Findings" section.
	// Populated only in the raw-text path.
	KeyFindings []string `json:"key_findings,omitempty"`

	// Recommendation carries the "Investment Recommendation" section text.
	// Populated only in the raw-text path.
	Recommendation string `json:"recommendation,omitempty"`

	// ActionableRecommendations holds action items in source order.
	ActionableRecommendations []string `json:"actionable_recommendations"`

	RiskAssessment     string `json:"risk_assessment"`
	CrossAgentInsights string `json:"cross_agent_insights"`

	// ConfidenceLevel is always within [0,1].
	ConfidenceLevel float64 `json:"confidence_level"`

	DataQualityNote string `json:"data_quality_note"`

	// RetryAnalysis is nil when the document had no retry section.
	RetryAnalysis *RetryAnalysis `json:"retry_analysis,omitempty"`

	ExecutionTrace ExecutionTrace `json:"execution_trace"`

	// RawResult is the original result payload, carried through verbatim
	// (prior to any enhanced_result unwrapping).
	RawResult any `json:"raw_result,omitempty"`
}

// AgentFinding is the structured per-agent result record.
type AgentFinding struct {
	AgentName      string           `json:"agent_name"`
	Specialization string           `json:"specialization,omitempty"`
	Summary        string           `json:"summary"`
	Insights       []string         `json:"insights,omitempty"`
	ToolCalls      []ToolCallRecord `json:"tool_calls,omitempty"`
}

// ToolCallRecord captures one external action taken by an agent.
// Input and Output are opaque; Preview is a display string derived from
// Output, never longer than PreviewLimit characters.
type ToolCallRecord struct {
	Tool    string `json:"tool"`
	Input   any    `json:"input,omitempty"`
	Output  any    `json:"output,omitempty"`
	Preview string `json:"preview"`
}

// PreviewLimit bounds ToolCallRecord.Preview, in runes.
const PreviewLimit = 140

// Preview fallbacks for outputs that cannot be displayed.
const (
	PreviewNoOutput    = "No output"          // output was absent/null
	PreviewUnavailable = "Output unavailable" // output failed to stringify
)

// ExecutionTrace records how the report came to be: the originating
// query, the raw agent invocations as supplied by the producer, and the
// declared analysis duration when the document carried one.
type ExecutionTrace struct {
	Query            string `json:"query"`
	AgentInvocations []any  `json:"agent_invocations"`
	AnalysisTime     string `json:"analysis_time,omitempty"`
}
