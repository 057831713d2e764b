package answer

import (
	"strings"

	"github.com/hyperdocs/kotae/internal/models"
)

// Completion token budgets by question shape.
const (
	tokensYesNo           = 50
	tokensSimpleFact      = 100
	tokensDefinition      = 150
	tokensExplanation     = 250
	tokensHowTo           = 300
	tokensComparison      = 350
	tokensTroubleshooting = 400
)

var yesNoStarters = []string{
	"is ", "are ", "am ", "was ", "were ", "do ", "does ", "did ",
	"can ", "could ", "will ", "would ", "should ", "has ", "have ",
	"may ", "might ",
}

var simpleFactPatterns = []string{
	"what is the ", "what are the ", "when is ", "when does ",
	"where is ", "who is ", "which is ", "how much ", "how many ",
}

var definitionPatterns = []string{"what does", "define", "meaning of", "what is"}

var howToPatterns = []string{"how to", "how do i", "how can i", "steps to", "guide to"}

var comparisonWords = []string{
	"compare", "difference", "versus", "vs", "better than", "similar to", "contrast",
}

var troubleshootingWords = []string{
	"not working", "broken", "error", "problem", "issue", "fix",
	"troubleshoot", "resolve", "doesn't work", "won't work",
}

// determineMaxTokens picks a completion budget from the question shape,
// falling back to the detected intent for anything unmatched.
func determineMaxTokens(query string, analysis models.QueryAnalysis) int {
	q := strings.ToLower(query)

	for _, starter := range yesNoStarters {
		if strings.HasPrefix(q, starter) {
			return tokensYesNo
		}
	}
	if containsAny(q, simpleFactPatterns) {
		return tokensSimpleFact
	}
	if containsAny(q, definitionPatterns) {
		return tokensDefinition
	}
	if containsAny(q, howToPatterns) {
		return tokensHowTo
	}
	if containsAny(q, comparisonWords) {
		return tokensComparison
	}
	if containsAny(q, troubleshootingWords) {
		return tokensTroubleshooting
	}

	switch analysis.Intent.Primary {
	case models.IntentFactualLookup, models.IntentSpecificValue:
		return tokensSimpleFact
	case models.IntentProcedural:
		return tokensHowTo
	case models.IntentComparison:
		return tokensComparison
	}
	return tokensExplanation
}

// lengthInstruction produces the prompt suffix that enforces brevity
// proportional to the token budget.
func lengthInstruction(maxTokens int) string {
	switch {
	case maxTokens <= 100:
		return "\n\nIMPORTANT: Keep your response brief and direct - maximum 2-3 sentences. Answer the specific question asked without elaboration."
	case maxTokens <= 200:
		return "\n\nIMPORTANT: Keep your response concise - maximum 4-5 sentences. Be specific and to the point."
	case maxTokens <= 300:
		return "\n\nIMPORTANT: Provide a focused response in 1-2 short paragraphs. Include only essential information."
	default:
		return "\n\nIMPORTANT: Provide a clear, well-structured response. Be thorough but avoid unnecessary verbosity."
	}
}

func containsAny(text string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}
