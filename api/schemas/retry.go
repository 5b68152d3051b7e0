package schemas

// -- Retry Analysis Schemas --

// AttemptStatus is the outcome of a single tool attempt.
type AttemptStatus string

const (
	AttemptSuccess AttemptStatus = "success"
	AttemptError   AttemptStatus = "error"
)

// FinalStatus is the declared outcome of a whole (agent, tool) retry block.
type FinalStatus string

const (
	FinalSuccess FinalStatus = "success"
	FinalFailed  FinalStatus = "failed"
)

// UnknownErrorKind is attributed to failed attempts that did not declare
// an explicit error type.
const UnknownErrorKind = "Unknown error"

// RetryAttempt is one attempt within a retry block, as declared in the
// source text. Attempt numbers are 1-based and not required to be
// contiguous. Immutable once parsed.
type RetryAttempt struct {
	Number int           `json:"number"`
	Status AttemptStatus `json:"status"`

	// Input is the declared tool input, "N/A" when the source omitted it.
	Input string `json:"input"`

	ErrorType      string `json:"error_type,omitempty"`
	ErrorMessage   string `json:"error_message,omitempty"`
	ReceivedData   string `json:"received_data,omitempty"`
	ExpectedFormat string `json:"expected_format,omitempty"`
}

// RetryDetail is one logical (agent, tool) block of the retry section.
type RetryDetail struct {
	AgentName      string `json:"agent_name"`
	Specialization string `json:"specialization,omitempty"`
	Tool           string `json:"tool"`

	// TotalAttempts is the count declared in the source text, which may
	// differ from len(Attempts) when the producer truncated the block.
	TotalAttempts int `json:"total_attempts"`

	FinalStatus FinalStatus    `json:"final_status"`
	Attempts    []RetryAttempt `json:"attempts"`

	AdaptationStrategy string `json:"adaptation_strategy,omitempty"`
}

// RetryAnalysis aggregates every RetryDetail parsed from a document.
type RetryAnalysis struct {
	// AgentsEncounteringErrors lists agent names in order of first
	// appearance, deduplicated.
	AgentsEncounteringErrors []string `json:"agents_encountering_errors"`

	// ErrorTypes lists distinct error kinds in order of first appearance.
	// Failed attempts without an explicit kind contribute UnknownErrorKind.
	ErrorTypes []string `json:"error_types"`

	// RetryAttempts is the sum of all declared total-attempt counts.
	RetryAttempts int `json:"retry_attempts"`

	AdaptationStrategies []string `json:"adaptation_strategies"`

	// RecoverySuccessful is true when any detail ended with FinalSuccess.
	RecoverySuccessful bool `json:"recovery_successful"`

	// SystemImpact is one of exactly two fixed sentences, chosen by
	// RecoverySuccessful.
	SystemImpact string `json:"system_impact"`

	Details []RetryDetail `json:"details"`
}
