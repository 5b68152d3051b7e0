// internal/results/normalize.go
package results

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	jsonrepair "github.com/kaptinlin/jsonrepair"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// json mirrors encoding/json semantics, including lexically sorted map keys,
// so repeated marshals of the same report are byte identical.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Alias lists for the loosely named fields producers emit. Order matters:
// the first alias present in the payload wins.
var (
	tickerAliases         = []string{"ticker", "symbol", "ticker_symbol", "stock_symbol", "stock"}
	sentimentAliases      = []string{"sentiment", "overall_sentiment", "market_sentiment"}
	confidenceAliases     = []string{"confidence", "confidence_level", "confidence_score"}
	insightAliases        = []string{"key_insights", "insights", "highlights"}
	marketAnalysisAliases = []string{"market_analysis", "analysis", "market_summary"}
	recommendationAliases = []string{"recommendation", "investment_recommendation", "final_recommendation"}
	riskAliases           = []string{"risk_assessment", "risk", "risks", "risk_summary"}
	timeSeriesAliases     = []string{"time_series", "daily_time_series", "price_history"}
)

// Recommendation families. Unanchored because producers bury the verb
// inside longer phrases ("Strong Buy on momentum").
var (
	buyRegex  = regexp.MustCompile(`(?i)buy|accumulate|overweight`)
	holdRegex = regexp.MustCompile(`(?i)hold|neutral`)
	sellRegex = regexp.MustCompile(`(?i)sell|underperform|reduce`)
)

// Normalize coerces a loose result payload into the canonical finding shape.
// It reports false when the value is not a usable analysis payload: not an
// object (directly or via an embedded JSON string) or an object carrying none
// of the recognized analysis fields.
func Normalize(value any) (NormalizedResult, bool) {
	payload, ok := unwrapPayload(value)
	if !ok {
		return NormalizedResult{}, false
	}

	norm := NormalizedResult{
		Ticker:         textField(payload, tickerAliases...),
		MarketAnalysis: textField(payload, marketAnalysisAliases...),
		Recommendation: textField(payload, recommendationAliases...),
		Sentiment:      textField(payload, sentimentAliases...),
	}
	if norm.Ticker == "" && norm.MarketAnalysis == "" && norm.Recommendation == "" && norm.Sentiment == "" {
		return NormalizedResult{}, false
	}

	if norm.Sentiment == "" {
		norm.Sentiment = "neutral"
	}
	norm.Confidence = 0.5
	if conf, ok := confidenceField(payload, confidenceAliases...); ok {
		norm.Confidence = conf
	}
	norm.KeyInsights = listField(payload, insightAliases...)
	norm.Risk = textField(payload, riskAliases...)
	if ts, ok := lookup(payload, timeSeriesAliases...); ok {
		norm.TimeSeries = ts
	}
	return norm, true
}

// unwrapPayload resolves the value to the object holding the analysis fields.
// A single enhanced_result envelope is unwrapped when its payload decodes to
// an object; otherwise the outer object is used as is.
func unwrapPayload(value any) (map[string]any, bool) {
	payload, ok := asPayload(value)
	if !ok {
		return nil, false
	}
	if inner, ok := lookup(payload, "enhanced_result"); ok {
		if unwrapped, ok := asPayload(inner); ok {
			return unwrapped, true
		}
	}
	return payload, true
}

// asPayload accepts an object directly or embedded in a JSON string.
func asPayload(value any) (map[string]any, bool) {
	switch v := value.(type) {
	case map[string]any:
		return v, true
	case string:
		return decodeObjectString(v)
	default:
		return nil, false
	}
}

// decodeObjectString decodes a string to an object, first strictly and then
// through jsonrepair for the single-quoted, trailing-comma output some
// producers emit. Strings that do not resolve to an object are rejected.
func decodeObjectString(s string) (map[string]any, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(s), &decoded); err == nil {
		return decoded, decoded != nil
	}
	repaired, err := jsonrepair.JSONRepair(s)
	if err != nil {
		return nil, false
	}
	decoded = nil
	if err := json.Unmarshal([]byte(repaired), &decoded); err != nil {
		return nil, false
	}
	return decoded, decoded != nil
}

// lookup returns the first alias present in the payload. Exact key hits win;
// otherwise a case-insensitive scan runs, breaking ties between equal-fold
// keys by lexical order so map iteration never leaks into output.
func lookup(payload map[string]any, aliases ...string) (any, bool) {
	for _, alias := range aliases {
		if v, ok := payload[alias]; ok {
			return v, true
		}
		var folded []string
		for key := range payload {
			if strings.EqualFold(key, alias) {
				folded = append(folded, key)
			}
		}
		if len(folded) > 0 {
			sort.Strings(folded)
			return payload[folded[0]], true
		}
	}
	return nil, false
}

func textField(payload map[string]any, aliases ...string) string {
	v, ok := lookup(payload, aliases...)
	if !ok {
		return ""
	}
	return asText(v)
}

// asText renders scalar field values as trimmed text. Composite values and
// unsupported types yield the empty string.
func asText(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// listField coerces the first present alias into a string slice. Scalar
// strings become single-element lists; empty entries are skipped.
func listField(payload map[string]any, aliases ...string) []string {
	v, ok := lookup(payload, aliases...)
	if !ok {
		return nil
	}
	switch list := v.(type) {
	case []any:
		var out []string
		for _, item := range list {
			if text := asText(item); text != "" {
				out = append(out, text)
			}
		}
		return out
	case []string:
		var out []string
		for _, item := range list {
			if text := strings.TrimSpace(item); text != "" {
				out = append(out, text)
			}
		}
		return out
	case string:
		if text := strings.TrimSpace(list); text != "" {
			return []string{text}
		}
		return nil
	default:
		return nil
	}
}

func confidenceField(payload map[string]any, aliases ...string) (float64, bool) {
	v, ok := lookup(payload, aliases...)
	if !ok {
		return 0, false
	}
	return asConfidence(v)
}

// asConfidence parses a confidence value and clamps it to [0, 1].
func asConfidence(value any) (float64, bool) {
	var conf float64
	switch v := value.(type) {
	case float64:
		conf = v
	case int:
		conf = float64(v)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		conf = parsed
	default:
		return 0, false
	}
	if math.IsNaN(conf) {
		return 0, false
	}
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}
	return conf, true
}

// MapRecommendation folds a free-form recommendation phrase into one of the
// canonical Buy/Hold/Sell categories. The buy family is checked first, so a
// phrase matching several families lands in the earliest one. Unmatched
// phrases are title-cased and passed through.
func MapRecommendation(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	switch {
	case buyRegex.MatchString(raw):
		return "Buy"
	case holdRegex.MatchString(raw):
		return "Hold"
	case sellRegex.MatchString(raw):
		return "Sell"
	default:
		return titleCase(raw)
	}
}

// titleCase upper-cases the first letter of every word. A fresh Caser per
// call: cases.Caser values are not safe for concurrent use.
func titleCase(s string) string {
	return cases.Title(language.English).String(strings.TrimSpace(s))
}
