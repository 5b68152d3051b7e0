// internal/results/builder.go
package results

import (
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/fintel-cli/api/schemas"
	"github.com/xkilldash9x/fintel-cli/internal/markup"
)

const noToolsNote = "No external tools were invoked."

// defaultRoleNames maps well-known task keys to display names. Operator
// config may override individual entries; unknown keys humanize.
var defaultRoleNames = map[string]string{
	schemas.RoleMarketAnalysis: "Market Analyst",
	schemas.RoleRiskAssessment: "Risk Assessor",
	schemas.RoleFinalSynthesis: "Investment Advisor",
	schemas.RoleRecommendation: "Investment Advisor",
}

// synthesisRoles get the clause-assembled summary instead of a field pick.
var synthesisRoles = map[string]struct{}{
	schemas.RoleFinalSynthesis: {},
	schemas.RoleRecommendation: {},
}

// Builder assembles canonical reports from either input shape. It is
// stateless apart from its options and safe for concurrent use.
type Builder struct {
	logger *zap.Logger
	opts   Options
}

// NewBuilder returns a report builder. A nil logger is replaced with a nop.
func NewBuilder(logger *zap.Logger, opts Options) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{logger: logger.Named("report_builder"), opts: opts}
}

// Build produces a structurally complete report. It never fails: every
// extraction degrades to a documented default.
func (b *Builder) Build(input Input) *schemas.Report {
	if input.Kind == InputText {
		return b.buildFromText(input.Text)
	}
	return b.buildFromState(input.State)
}

func (b *Builder) buildFromState(state *schemas.WorkflowState) *schemas.Report {
	if state == nil {
		state = &schemas.WorkflowState{}
	}
	payload := state.Payload()

	invocations := state.AgentInvocations
	if invocations == nil {
		invocations = []any{}
	}

	report := &schemas.Report{
		ExecutiveSummary:          b.summarize(payload),
		AgentFindings:             []schemas.AgentFinding{},
		FailedAgents:              []string{},
		ActionableRecommendations: []string{},
		ConfidenceLevel:           0.5,
		RawResult:                 payload,
		ExecutionTrace: schemas.ExecutionTrace{
			Query:            state.Query,
			AgentInvocations: invocations,
		},
	}

	if norm, ok := Normalize(payload); ok {
		report.ConfidenceLevel = norm.Confidence
		report.RiskAssessment = norm.Risk
		if norm.Recommendation != "" {
			report.ActionableRecommendations = []string{MapRecommendation(norm.Recommendation)}
		}
	}

	if state.Trace != nil {
		for _, entry := range state.Trace.TaskResults.Entries() {
			report.AgentFindings = append(report.AgentFindings, b.taskFinding(state, entry.Task, entry.Result))
		}
	}

	report.CrossAgentInsights = b.crossAgentInsight(report.AgentFindings)
	report.DataQualityNote = dataQualityNote(state.EventHistory)
	return report
}

// taskFinding builds one agent finding from a trace entry and attributes
// the task's tool events to it.
func (b *Builder) taskFinding(state *schemas.WorkflowState, task string, result any) schemas.AgentFinding {
	finding := schemas.AgentFinding{
		AgentName:      b.displayName(task),
		Specialization: humanizeTask(task),
	}
	_, synthesis := synthesisRoles[task]

	if payload, ok := asPayload(result); ok {
		if synthesis {
			finding.Summary = b.synthesisSummary(payload)
		} else {
			finding.Summary = textField(payload, "analysis_summary", "risk_summary", "recommendation", "market_analysis")
			finding.Insights = listField(payload, "key_insights", "risk_factors")
		}
	} else {
		finding.Summary = asText(result)
		if finding.Summary == "" && synthesis {
			finding.Summary = "Analysis completed"
		}
	}

	ref := TaskRef{Task: task, DisplayName: finding.AgentName}
	if node := state.Node(task); node != nil {
		ref.TaskID = node.ID
		ref.AgentName = node.AgentName
	}
	matched := CorrelateToolCalls(state.EventHistory, ref)
	for _, m := range matched {
		b.logger.Debug("attributed tool event",
			zap.String("task", task),
			zap.String("tool", m.Event.ToolName),
			zap.String("reason", string(m.Reason)))
	}
	finding.ToolCalls = ToolCallRecords(matched)
	return finding
}

// synthesisSummary summarizes a synthesis-role payload: clause assembly,
// then an explicit summary field, then the recommendation alone, then a
// fixed completion sentence.
func (b *Builder) synthesisSummary(payload map[string]any) string {
	if summary := clauseSummary(payload); summary != "" {
		return summary
	}
	if summary := textField(payload, "summary"); summary != "" {
		return summary
	}
	if rec := textField(payload, "recommendation"); rec != "" {
		return rec
	}
	return "Analysis completed"
}

// clauseSummary assembles up to four optional clauses from the payload.
// Each clause appears only when its source field exists and is force
// terminated with a period; clauses are space-joined. Empty when no field
// applies.
func clauseSummary(payload map[string]any) string {
	var clauses []string

	if rec := textField(payload, recommendationAliases...); rec != "" {
		clauses = append(clauses, ensurePeriod("Recommendation: "+MapRecommendation(rec)))
	}
	if sentiment := textField(payload, sentimentAliases...); sentiment != "" {
		clause := "Sentiment: " + titleCase(sentiment)
		if conf, ok := confidenceField(payload, confidenceAliases...); ok {
			clause = fmt.Sprintf("%s (%d%%)", clause, int(math.Round(conf*100)))
		}
		clauses = append(clauses, ensurePeriod(clause))
	}
	if insights := listField(payload, insightAliases...); len(insights) > 0 {
		if len(insights) > 2 {
			insights = insights[:2]
		}
		clauses = append(clauses, ensurePeriod("Key insights: "+strings.Join(insights, ", ")))
	}
	if risk := textField(payload, riskAliases...); risk != "" {
		clauses = append(clauses, ensurePeriod("Top risks: "+risk))
	}
	return strings.Join(clauses, " ")
}

// summarize derives the executive summary from the raw result payload.
func (b *Builder) summarize(payload any) string {
	switch v := payload.(type) {
	case nil:
		return ""
	case string:
		return v
	case map[string]any:
		if summary := clauseSummary(v); summary != "" {
			return summary
		}
		if analysis := textField(v, marketAnalysisAliases...); analysis != "" {
			return analysis
		}
		if content := textField(v, "content"); content != "" {
			return content
		}
		if pretty, err := json.MarshalIndent(v, "", "  "); err == nil {
			return string(pretty)
		}
		return fmt.Sprint(v)
	default:
		if encoded, err := json.MarshalIndent(v, "", "  "); err == nil {
			return string(encoded)
		}
		return fmt.Sprint(v)
	}
}

// crossAgentInsight writes the cross-agent commentary: a base sentence
// naming the contributing agents, then a consensus sentence driven by a
// crude substring heuristic over the summaries.
func (b *Builder) crossAgentInsight(findings []schemas.AgentFinding) string {
	provider := strings.TrimSpace(b.opts.ProviderLabel)
	if len(findings) == 0 {
		if provider != "" {
			return fmt.Sprintf("Analysis completed using %s.", provider)
		}
		return "Analysis completed."
	}

	names := make([]string, 0, len(findings))
	consensus := true
	for _, f := range findings {
		names = append(names, f.AgentName)
		if !strings.Contains(strings.ToLower(f.Summary), "positive") {
			consensus = false
		}
	}
	base := "Analysis completed by " + strings.Join(names, " and ")
	if provider != "" {
		base += " using " + provider
	}
	base += "."
	if consensus {
		return base + " All agents converged on a positive outlook."
	}
	return base + " Agent perspectives were mixed, offering a balanced assessment."
}

// dataQualityNote tallies real outbound tool calls across the whole run.
func dataQualityNote(events []schemas.TimelineEvent) string {
	calls := ExternalToolCalls(events)
	if len(calls) == 0 {
		return noToolsNote
	}
	var tools []string
	seen := map[string]struct{}{}
	for _, ev := range calls {
		if _, dup := seen[ev.ToolName]; dup {
			continue
		}
		seen[ev.ToolName] = struct{}{}
		tools = append(tools, ev.ToolName)
	}
	return fmt.Sprintf("Tools used: %d calls across %d unique tools (%s).",
		len(calls), len(tools), strings.Join(tools, ", "))
}

func (b *Builder) buildFromText(text string) *schemas.Report {
	doc := markup.ParseDocument(text)
	retry := markup.ExtractRetryAnalysis(doc.RetryLines())

	report := &schemas.Report{
		ExecutiveSummary:          doc.ExecutiveSummary(),
		AgentFindings:             []schemas.AgentFinding{},
		FailedAgents:              []string{},
		ActionableRecommendations: []string{},
		KeyFindings:               doc.KeyFindings(),
		Recommendation:            doc.Recommendation(),
		RiskAssessment:            doc.RiskAssessment(),
		CrossAgentInsights:        b.crossAgentInsight(nil),
		ConfidenceLevel:           doc.Confidence(),
		DataQualityNote:           noToolsNote,
		RetryAnalysis:             retry,
		ExecutionTrace: schemas.ExecutionTrace{
			Query:            doc.QueryAnalysis(),
			AgentInvocations: []any{},
			AnalysisTime:     doc.AnalysisTime(),
		},
	}
	if items := doc.ActionItems(); len(items) > 0 {
		report.ActionableRecommendations = items
	}
	if retry != nil {
		seen := map[string]struct{}{}
		for _, detail := range retry.Details {
			if detail.FinalStatus != schemas.FinalFailed {
				continue
			}
			if _, dup := seen[detail.AgentName]; dup {
				continue
			}
			seen[detail.AgentName] = struct{}{}
			report.FailedAgents = append(report.FailedAgents, detail.AgentName)
		}
	}
	return report
}

// displayName resolves the human-facing agent name for a task key.
func (b *Builder) displayName(task string) string {
	if name, ok := b.opts.RoleNames[task]; ok && name != "" {
		return name
	}
	if name, ok := defaultRoleNames[task]; ok {
		return name
	}
	return humanizeTask(task)
}

// humanizeTask turns "risk_assessment" into "Risk Assessment".
func humanizeTask(task string) string {
	return titleCase(strings.ReplaceAll(task, "_", " "))
}

// ensurePeriod terminates s with a period unless it already ends in
// sentence punctuation.
func ensurePeriod(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	switch s[len(s)-1] {
	case '.', '!', '?':
		return s
	}
	return s + "."
}
