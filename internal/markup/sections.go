// internal/markup/sections.go
package markup

import (
	"regexp"
	"strconv"
	"strings"
)

// defaultConfidence is reported when the document carries no confidence
// marker at all.
const defaultConfidence = 0.85

var (
	// confidenceRegex finds the first "confidence ... N" marker anywhere in
	// the document. N is read as a score out of ten.
	confidenceRegex = regexp.MustCompile(`(?i)confidence[^0-9]*(\d+)`)

	// analysisTimeRegex matches the literal duration marker the producer
	// appends to its reports.
	analysisTimeRegex = regexp.MustCompile(`\*\*Analysis Time:\*\*\s*([0-9]+(?:\.[0-9]+)?)\s*seconds`)
)

// Section name aliases, ordered by preference. Producer versions differ in
// whether they prefix headers with emoji, so lookups try each form in turn.
var (
	executiveSummaryAliases = []string{"Executive Summary", "📊 Fintel Analysis Report", "Fintel Analysis Report"}
	keyFindingsAliases      = []string{"Key Findings", "🔍 Key Findings"}
	recommendationAliases   = []string{"Investment Recommendation", "💡 Investment Recommendation", "Recommendation"}
	riskAssessmentAliases   = []string{"Risk Assessment", "⚠️ Risk Assessment"}
	actionItemsAliases      = []string{"Action Items", "✅ Action Items", "Next Steps"}
	queryAnalysisAliases    = []string{"Fintel Query Analysis", "Query Analysis", "🔎 Query Analysis"}

	retrySectionNames = []string{"🔄 Agent Adaptation & Retry Analysis", "🔄 Retry Analysis"}
)

// Document is a parsed producer report: the full classified line sequence
// plus a by-name section index. Construct it with ParseDocument; the zero
// value answers every lookup with its documented default.
type Document struct {
	raw      string
	lines    []Line
	sections map[string][]Line
}

// ParseDocument splits a markdown-flavored report into named sections. A
// level-2 or level-3 header opens a section named by its trimmed title; all
// following lines belong to it until the next header. Text before the first
// header is discarded. A repeated header name overwrites the earlier
// section's content entirely.
func ParseDocument(text string) *Document {
	doc := &Document{
		raw:      text,
		lines:    ClassifyAll(text),
		sections: make(map[string][]Line),
	}

	var name string
	var body []Line
	flush := func() {
		if name != "" && len(body) > 0 {
			doc.sections[name] = body
		}
	}

	for _, line := range doc.lines {
		if line.Kind == HeaderLine {
			flush()
			name = line.Title
			body = nil
			continue
		}
		if name != "" {
			body = append(body, line)
		}
	}
	flush()

	return doc
}

// Section returns the text of the first named section that exists, joined
// and trimmed, or "" when none of the names is present.
func (d *Document) Section(names ...string) string {
	for _, name := range names {
		if body, ok := d.sections[name]; ok {
			return joinLines(body)
		}
	}
	return ""
}

// Bullets returns the list-item entries of the first named section that
// exists, markers stripped. Non-bullet lines inside the section are ignored.
func (d *Document) Bullets(names ...string) []string {
	for _, name := range names {
		body, ok := d.sections[name]
		if !ok {
			continue
		}
		var items []string
		for _, line := range body {
			if line.Kind == BulletLine {
				items = append(items, line.Text)
			}
		}
		return items
	}
	return nil
}

// ExecutiveSummary returns the report's summary section text.
func (d *Document) ExecutiveSummary() string { return d.Section(executiveSummaryAliases...) }

// KeyFindings returns the key-findings bullet entries.
func (d *Document) KeyFindings() []string { return d.Bullets(keyFindingsAliases...) }

// Recommendation returns the investment-recommendation section text.
func (d *Document) Recommendation() string { return d.Section(recommendationAliases...) }

// RiskAssessment returns the risk-assessment section text.
func (d *Document) RiskAssessment() string { return d.Section(riskAssessmentAliases...) }

// ActionItems returns the action-item bullet entries.
func (d *Document) ActionItems() []string { return d.Bullets(actionItemsAliases...) }

// QueryAnalysis returns the query-analysis section text.
func (d *Document) QueryAnalysis() string { return d.Section(queryAnalysisAliases...) }

// Confidence scans the whole document for a confidence marker and converts
// it from a score out of ten to a [0,1] value, clamped. Documents without a
// marker report 0.85.
func (d *Document) Confidence() float64 {
	m := confidenceRegex.FindStringSubmatch(d.raw)
	if m == nil {
		return defaultConfidence
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return defaultConfidence
	}
	score := float64(n) / 10
	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	return score
}

// AnalysisTime returns the number from the "**Analysis Time:** N seconds"
// marker as a string, or "" when the marker is absent.
func (d *Document) AnalysisTime() string {
	m := analysisTimeRegex.FindStringSubmatch(d.raw)
	if m == nil {
		return ""
	}
	return m[1]
}

// RetryLines returns the raw line slice of the retry-analysis section, or
// nil when the document has none. The slice runs from the matched header
// (exclusive) to the next level-2 header or end of input, taken from the
// raw line sequence rather than the section index: agent blocks inside the
// retry section open with level-3 headers, which the index treats as
// section breaks.
func (d *Document) RetryLines() []Line {
	for _, name := range retrySectionNames {
		for i, line := range d.lines {
			if line.Kind != HeaderLine || line.Title != name {
				continue
			}
			end := len(d.lines)
			for j := i + 1; j < len(d.lines); j++ {
				if d.lines[j].Kind == HeaderLine && d.lines[j].Level == 2 {
					end = j
					break
				}
			}
			return d.lines[i+1 : end]
		}
	}
	return nil
}

func joinLines(body []Line) string {
	raw := make([]string, len(body))
	for i, line := range body {
		raw[i] = line.Raw
	}
	return strings.TrimSpace(strings.Join(raw, "\n"))
}
