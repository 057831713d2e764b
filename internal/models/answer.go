package models

// Confidence levels for an answer, ordered strongest first.
const (
	ConfidenceHigh    = "high"
	ConfidenceMedium  = "medium"
	ConfidenceLow     = "low"
	ConfidenceVeryLow = "very_low"
)

// ValidationResult is the outcome of answer validation against sources.
type ValidationResult struct {
	IsValid         bool     `json:"is_valid"`
	ConfidenceScore float64  `json:"confidence_score"`
	Issues          []string `json:"issues,omitempty"`
	Warnings        []string `json:"warnings,omitempty"`
	GroundingScore  float64  `json:"grounding_score"`
}

// Claim is a single factual statement extracted from an answer.
type Claim struct {
	Text     string  `json:"text"`
	Verified bool    `json:"verified"`
	Overlap  float64 `json:"overlap"`
}

// FactCheckResult is the outcome of claim verification against sources.
type FactCheckResult struct {
	Score            float64 `json:"score"`
	ClaimsChecked    int     `json:"claims_checked"`
	ClaimsVerified   int     `json:"claims_verified"`
	UnverifiedClaims []Claim `json:"unverified_claims,omitempty"`
}

// ConfidenceComponents breaks the composite confidence into its parts.
type ConfidenceComponents struct {
	Retrieval  float64 `json:"retrieval"`
	Validation float64 `json:"validation"`
	FactCheck  float64 `json:"fact_check"`
	Sources    float64 `json:"sources"`
}

// ConfidenceIndicator is the user-facing confidence summary for an answer.
type ConfidenceIndicator struct {
	Overall     float64              `json:"overall"`
	Level       string               `json:"level"`
	Color       string               `json:"color"`
	Description string               `json:"description"`
	Components  ConfidenceComponents `json:"components"`
}

// Escalation describes a recommended handoff to a human agent.
type Escalation struct {
	ShouldEscalate bool     `json:"should_escalate"`
	Urgency        string   `json:"urgency,omitempty"`
	Department     string   `json:"department,omitempty"`
	Reasons        []string `json:"reasons,omitempty"`
}

// Answer is the final result of processing one query.
type Answer struct {
	Response          string              `json:"response"`
	ConversationID    string              `json:"conversation_id"`
	QueryType         string              `json:"query_type"`
	Sources           []Source            `json:"sources,omitempty"`
	Confidence        ConfidenceIndicator `json:"confidence"`
	FollowUpQuestions []string            `json:"follow_up_questions,omitempty"`
	Analysis          *QueryAnalysis      `json:"analysis,omitempty"`
	Escalation        *Escalation         `json:"escalation,omitempty"`
}
