// internal/markup/retry.go
package markup

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/xkilldash9x/fintel-cli/api/schemas"
)

// Fixed impact sentences for the retry aggregate, selected by whether any
// agent block ended successful.
const (
	impactRecovered = "Agents adapted to tool failures and recovered; analysis quality was maintained through retries."
	impactDegraded  = "Some agents could not recover from tool failures; parts of the analysis may be incomplete."
)

// attemptWindow bounds the look-ahead for an attempt's detail keys.
const attemptWindow = 9

var (
	// attemptRegex matches attempt markers like "**Attempt 2** ❌"; the tail
	// carries the outcome glyph.
	attemptRegex = regexp.MustCompile(`(?i)^\*\*Attempt\s+(\d+)\*\*\s*(.*)$`)

	// blockTitleRegex splits "Name (Specialization)" agent block titles.
	blockTitleRegex = regexp.MustCompile(`^(.*?)\s*\(([^)]*)\)\s*$`)

	firstIntRegex = regexp.MustCompile(`\d+`)
)

// retryBlock accumulates one agent block during the scan.
type retryBlock struct {
	agent          string
	specialization string
	tool           string
	totalAttempts  int
	finalStatus    schemas.FinalStatus
	strategy       string
	attempts       []schemas.RetryAttempt
}

// newRetryBlock opens a block from a level-3 header title. A title without a
// parenthesized specialization becomes the agent name verbatim. Final status
// starts pessimistic; only an explicit success marker upgrades it.
func newRetryBlock(title string) retryBlock {
	block := retryBlock{agent: strings.TrimSpace(title), finalStatus: schemas.FinalFailed}
	if m := blockTitleRegex.FindStringSubmatch(title); m != nil {
		block.agent = strings.TrimSpace(m[1])
		block.specialization = strings.TrimSpace(m[2])
	}
	return block
}

// complete reports whether the block identifies both an agent and a tool.
// Incomplete blocks are dropped at flush time.
func (b retryBlock) complete() bool {
	return b.agent != "" && b.tool != ""
}

func (b retryBlock) detail() schemas.RetryDetail {
	return schemas.RetryDetail{
		AgentName:          b.agent,
		Specialization:     b.specialization,
		Tool:               b.tool,
		TotalAttempts:      b.totalAttempts,
		FinalStatus:        b.finalStatus,
		Attempts:           b.attempts,
		AdaptationStrategy: b.strategy,
	}
}

// ExtractRetryAnalysis folds the retry section's classified lines into
// structured agent blocks and their aggregate. It returns nil when the slice
// is empty or yields no complete block, which callers treat as "no retry
// activity reported".
func ExtractRetryAnalysis(lines []Line) *schemas.RetryAnalysis {
	var details []schemas.RetryDetail
	var block retryBlock

	flush := func() {
		if block.complete() {
			details = append(details, block.detail())
		}
	}

	for i, line := range lines {
		if line.Kind == HeaderLine && line.Level == 3 {
			flush()
			block = newRetryBlock(line.Title)
			continue
		}

		// Attempt markers carry no colon, so they classify as plain lines
		// and are matched against the raw text.
		if m := attemptRegex.FindStringSubmatch(strings.TrimSpace(line.Raw)); m != nil {
			block.attempts = append(block.attempts, scanAttempt(m[1], m[2], lines[i+1:]))
			continue
		}

		if line.Kind != BoldKeyLine {
			continue
		}
		switch {
		case strings.EqualFold(line.Key, "Tool"):
			block.tool = stripMarkup(line.Value)
		case strings.EqualFold(line.Key, "Total Attempts"):
			if n := firstIntRegex.FindString(line.Value); n != "" {
				block.totalAttempts, _ = strconv.Atoi(n)
			}
		case strings.EqualFold(line.Key, "Final Status"):
			if successMarker(line.Value) {
				block.finalStatus = schemas.FinalSuccess
			} else {
				block.finalStatus = schemas.FinalFailed
			}
		case strings.EqualFold(line.Key, "Adaptation Strategy"):
			block.strategy = strings.TrimSpace(line.Value)
		}
	}
	flush()

	if len(details) == 0 {
		return nil
	}
	return aggregateRetry(details)
}

// scanAttempt builds one attempt record from its marker line and a bounded
// look-ahead over the following lines. The window ends at a blank line, at a
// bold key outside the attempt detail set, or after attemptWindow lines.
func scanAttempt(number, tail string, rest []Line) schemas.RetryAttempt {
	n, _ := strconv.Atoi(number)
	attempt := schemas.RetryAttempt{
		Number: n,
		Status: schemas.AttemptError,
		Input:  "N/A",
	}
	if successMarker(tail) {
		attempt.Status = schemas.AttemptSuccess
	}

	limit := attemptWindow
	if len(rest) < limit {
		limit = len(rest)
	}
	for _, line := range rest[:limit] {
		if line.Blank() {
			break
		}
		if line.Kind != BoldKeyLine {
			continue
		}
		value := strings.TrimSpace(line.Value)
		switch strings.ToLower(line.Key) {
		case "input":
			if value != "" {
				attempt.Input = value
			}
		case "error type":
			attempt.ErrorType = value
		case "error message":
			attempt.ErrorMessage = value
		case "received data":
			attempt.ReceivedData = value
		case "expected format":
			attempt.ExpectedFormat = value
		default:
			return attempt
		}
	}
	return attempt
}

// successMarker reports whether a status fragment indicates success, by
// glyph or by word.
func successMarker(s string) bool {
	return strings.Contains(s, "✅") || strings.Contains(strings.ToLower(s), "success")
}

// aggregateRetry summarizes the detail list: agents and error kinds
// deduplicated in first-appearance order, declared attempt totals summed,
// and the impact sentence chosen by the recovery outcome.
func aggregateRetry(details []schemas.RetryDetail) *schemas.RetryAnalysis {
	var agents, kinds, strategies []string
	seenAgents := make(map[string]bool)
	seenKinds := make(map[string]bool)
	seenStrategies := make(map[string]bool)
	total := 0
	recovered := false

	for _, d := range details {
		if !seenAgents[d.AgentName] {
			seenAgents[d.AgentName] = true
			agents = append(agents, d.AgentName)
		}
		total += d.TotalAttempts
		if d.FinalStatus == schemas.FinalSuccess {
			recovered = true
		}
		if s := strings.TrimSpace(d.AdaptationStrategy); s != "" && !seenStrategies[s] {
			seenStrategies[s] = true
			strategies = append(strategies, s)
		}
		for _, a := range d.Attempts {
			if a.Status != schemas.AttemptError {
				continue
			}
			kind := a.ErrorType
			if kind == "" {
				kind = schemas.UnknownErrorKind
			}
			if !seenKinds[kind] {
				seenKinds[kind] = true
				kinds = append(kinds, kind)
			}
		}
	}

	impact := impactDegraded
	if recovered {
		impact = impactRecovered
	}
	return &schemas.RetryAnalysis{
		AgentsEncounteringErrors: agents,
		ErrorTypes:               kinds,
		RetryAttempts:            total,
		AdaptationStrategies:     strategies,
		RecoverySuccessful:       recovered,
		SystemImpact:             impact,
		Details:                  details,
	}
}
