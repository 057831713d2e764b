package models

// Query intents recognized by the understanding analyzer.
const (
	IntentFactualLookup         = "factual_lookup"
	IntentProcedural            = "procedural"
	IntentComparison            = "comparison"
	IntentAnalytical            = "analytical"
	IntentSummarization         = "summarization"
	IntentListEnumeration       = "list_enumeration"
	IntentSpecificValue         = "specific_value"
	IntentOpinionRecommendation = "opinion_recommendation"
	IntentGeneralInquiry        = "general_inquiry"
)

// Follow-up reference types, highest priority first.
const (
	ReferencePronoun              = "pronoun_reference"
	ReferenceExplicitContinuation = "explicit_continuation"
	ReferenceImplicitContinuation = "implicit_continuation"
)

// Ambiguity severities.
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityLow    = "low"
)

// Ambiguity types.
const (
	AmbiguityVagueTerms        = "vague_terms"
	AmbiguityUnclearReference  = "unclear_reference"
	AmbiguityTooBrief          = "too_brief"
	AmbiguityMultipleQuestions = "multiple_questions"
	AmbiguityComplexLogic      = "complex_logic"
)

// IntentInfo is the result of intent classification.
type IntentInfo struct {
	Primary    string         `json:"primary_intent"`
	All        []string       `json:"all_intents"`
	Confidence float64        `json:"confidence"`
	Scores     map[string]int `json:"intent_scores,omitempty"`
}

// MultiDocumentInfo is the result of multi-document scope detection.
type MultiDocumentInfo struct {
	IsMultiDocument bool    `json:"is_multi_document"`
	ExplicitMulti   bool    `json:"explicit_multi"`
	IsComparison    bool    `json:"is_comparison"`
	Confidence      float64 `json:"confidence"`
}

// FollowUpInfo is the result of follow-up detection.
type FollowUpInfo struct {
	IsFollowUp    bool      `json:"is_follow_up"`
	Confidence    float64   `json:"confidence"`
	ReferenceType string    `json:"reference_type,omitempty"`
	HasPronouns   bool      `json:"has_pronouns"`
	RecentContext []Message `json:"-"`
}

// Ambiguity is one ambiguity finding within a query.
type Ambiguity struct {
	Type      string   `json:"type"`
	Severity  string   `json:"severity"`
	Terms     []string `json:"terms,omitempty"`
	WordCount int      `json:"word_count,omitempty"`
	Count     int      `json:"count,omitempty"`
}

// AmbiguityInfo aggregates ambiguity findings for a query.
type AmbiguityInfo struct {
	IsAmbiguous        bool        `json:"is_ambiguous"`
	NeedsClarification bool        `json:"needs_clarification"`
	Ambiguities        []Ambiguity `json:"ambiguities,omitempty"`
	Severity           string      `json:"severity"`
}

// Entities holds terms extracted from a single query.
type Entities struct {
	Numbers        []string `json:"numbers,omitempty"`
	PotentialNames []string `json:"potential_document_names,omitempty"`
	QuotedPhrases  []string `json:"quoted_phrases,omitempty"`
	Dates          []string `json:"dates,omitempty"`
	TechnicalTerms []string `json:"technical_terms,omitempty"`
}

// Empty reports whether no entities were extracted.
func (e Entities) Empty() bool {
	return len(e.Numbers) == 0 && len(e.PotentialNames) == 0 &&
		len(e.QuotedPhrases) == 0 && len(e.Dates) == 0 && len(e.TechnicalTerms) == 0
}

// QueryAnalysis is the full, ephemeral analysis of one incoming query.
// It is a pure function of (query, history, document count) and is never
// stored beyond the request except as optional message metadata.
type QueryAnalysis struct {
	OriginalQuery       string            `json:"original_query"`
	EnhancedQuery       string            `json:"enhanced_query"`
	Intent              IntentInfo        `json:"intent"`
	MultiDocument       MultiDocumentInfo `json:"multi_document"`
	FollowUp            FollowUpInfo      `json:"follow_up"`
	Ambiguity           AmbiguityInfo     `json:"ambiguity"`
	Entities            Entities          `json:"entities"`
	NeedsClarification  bool              `json:"needs_clarification"`
	ClarificationPrompt string            `json:"clarification_prompt,omitempty"`
}

// HistoryEntities holds entities extracted from conversation history,
// categorized and capped.
type HistoryEntities struct {
	Documents []string `json:"documents,omitempty"`
	Topics    []string `json:"topics,omitempty"`
	Values    []string `json:"values,omitempty"`
	Dates     []string `json:"dates,omitempty"`
}

// References holds reference markers detected in the current query.
type References struct {
	HasReferences   bool     `json:"has_references"`
	Pronouns        []string `json:"pronouns,omitempty"`
	Demonstratives  []string `json:"demonstratives,omitempty"`
	VagueReferences []string `json:"vague_references,omitempty"`
}

// ConversationContext is the structured context derived from a bounded
// window of conversation history. It is rebuilt per query.
type ConversationContext struct {
	RecentMessages     []Message       `json:"-"`
	RelevantMessages   []Message       `json:"-"`
	Topics             []string        `json:"topics,omitempty"`
	Entities           HistoryEntities `json:"entities"`
	QuestionsAsked     []string        `json:"questions_asked,omitempty"`
	References         References      `json:"references"`
	ResolvedContext    string          `json:"resolved_context"`
	ContextSummary     string          `json:"context_summary"`
	MessageCount       int             `json:"message_count"`
	NeedsSummarization bool            `json:"needs_summarization"`
}
