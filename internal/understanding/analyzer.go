// Package understanding performs deterministic, regex-driven analysis of
// incoming queries: intent classification, multi-document detection,
// follow-up detection, ambiguity detection, and entity extraction.
package understanding

import (
	"fmt"
	"strings"

	"github.com/hyperdocs/kotae/internal/models"
	"github.com/hyperdocs/kotae/pkg/utils"
)

// Analyzer analyzes queries. It is stateless and safe for concurrent use.
type Analyzer struct{}

// NewAnalyzer creates a new Analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Analyze runs the full analysis over one query. It is a pure function of
// the query, the conversation history, and the organization's document
// count; empty or malformed queries are treated as valid short queries.
func (a *Analyzer) Analyze(query string, history []models.Message, availableDocuments int) models.QueryAnalysis {
	intent := a.ClassifyIntent(query)
	multiDoc := a.DetectMultiDocument(query, availableDocuments)
	followUp := a.DetectFollowUp(query, history)
	ambiguity := a.DetectAmbiguity(query, history)
	entities := a.ExtractEntities(query)

	analysis := models.QueryAnalysis{
		OriginalQuery:      query,
		EnhancedQuery:      query,
		Intent:             intent,
		MultiDocument:      multiDoc,
		FollowUp:           followUp,
		Ambiguity:          ambiguity,
		Entities:           entities,
		NeedsClarification: ambiguity.NeedsClarification,
	}

	if ambiguity.NeedsClarification {
		analysis.ClarificationPrompt = clarificationPrompt(ambiguity)
	} else if followUp.IsFollowUp {
		analysis.EnhancedQuery = resolveFollowUpContext(query, history)
	}

	return analysis
}

// ClassifyIntent scores the query against the intent table. Ties are
// broken by table order.
func (a *Analyzer) ClassifyIntent(query string) models.IntentInfo {
	queryLower := strings.ToLower(query)

	var all []string
	scores := make(map[string]int)
	for _, entry := range intentTable {
		for _, pattern := range entry.patterns {
			if pattern.MatchString(queryLower) {
				if scores[entry.name] == 0 {
					all = append(all, entry.name)
				}
				scores[entry.name]++
			}
		}
	}

	if len(all) == 0 {
		return models.IntentInfo{
			Primary:    models.IntentGeneralInquiry,
			All:        []string{models.IntentGeneralInquiry},
			Confidence: 0.5,
		}
	}

	primary := ""
	best := 0
	for _, entry := range intentTable {
		if score := scores[entry.name]; score > best {
			primary = entry.name
			best = score
		}
	}

	return models.IntentInfo{
		Primary:    primary,
		All:        all,
		Confidence: utils.Clamp(float64(best)/3, 0, 1),
		Scores:     scores,
	}
}

// DetectMultiDocument reports whether the query spans multiple documents.
func (a *Analyzer) DetectMultiDocument(query string, availableDocuments int) models.MultiDocumentInfo {
	queryLower := strings.ToLower(query)

	explicitMulti := anyMatch(multiDocPatterns, queryLower)
	isComparison := strings.Contains(queryLower, "compare") || strings.Contains(queryLower, "versus")

	docMentions := len(docMentionPattern.FindAllString(queryLower, -1))
	hasMultipleRefs := docMentions > 1 || strings.Contains(queryLower, " and ")

	requiresMultiple := explicitMulti ||
		(isComparison && availableDocuments > 1) ||
		hasMultipleRefs

	confidence := 0.5
	if explicitMulti {
		confidence = 0.9
	} else if isComparison {
		confidence = 0.7
	}

	return models.MultiDocumentInfo{
		IsMultiDocument: requiresMultiple,
		ExplicitMulti:   explicitMulti,
		IsComparison:    isComparison,
		Confidence:      confidence,
	}
}

// DetectFollowUp reports whether the query continues a prior exchange.
// Without history there is nothing to follow up on.
func (a *Analyzer) DetectFollowUp(query string, history []models.Message) models.FollowUpInfo {
	if len(history) == 0 {
		return models.FollowUpInfo{}
	}

	queryLower := strings.ToLower(query)

	hasFollowUpWords := anyMatch(followUpPatterns, queryLower)
	hasPronouns := anyMatch(pronounPatterns, queryLower)
	isShort := len(strings.Fields(query)) < 5

	startsWithQuestion := false
	for _, qw := range questionWords {
		if strings.HasPrefix(queryLower, qw) {
			startsWithQuestion = true
			break
		}
	}
	isIncomplete := !startsWithQuestion && strings.Contains(query, "?")

	isFollowUp := hasFollowUpWords || (hasPronouns && isShort) || isIncomplete

	info := models.FollowUpInfo{
		IsFollowUp:    isFollowUp,
		HasPronouns:   hasPronouns,
		RecentContext: models.LastN(history, 3),
	}
	if isFollowUp {
		switch {
		case hasPronouns:
			info.ReferenceType = models.ReferencePronoun
		case hasFollowUpWords:
			info.ReferenceType = models.ReferenceExplicitContinuation
		case isIncomplete:
			info.ReferenceType = models.ReferenceImplicitContinuation
		}
	}
	switch {
	case hasFollowUpWords:
		info.Confidence = 0.9
	case hasPronouns && isShort:
		info.Confidence = 0.8
	case isIncomplete:
		info.Confidence = 0.6
	}

	return info
}

// DetectAmbiguity flags vague terms, unclear references, brevity,
// multiple questions, and conjoined AND/OR logic.
func (a *Analyzer) DetectAmbiguity(query string, history []models.Message) models.AmbiguityInfo {
	queryLower := strings.ToLower(query)
	var ambiguities []models.Ambiguity

	var vagueFound []string
	for _, term := range vagueTerms {
		if m := term.match(queryLower); m != "" {
			vagueFound = append(vagueFound, m)
		}
	}
	if len(vagueFound) > 0 {
		ambiguities = append(ambiguities, models.Ambiguity{
			Type:     models.AmbiguityVagueTerms,
			Terms:    vagueFound,
			Severity: models.SeverityMedium,
		})
	}

	// Pronouns with almost no history to resolve them against.
	if anyMatch(pronounPatterns, queryLower) && len(history) < 2 {
		ambiguities = append(ambiguities, models.Ambiguity{
			Type:     models.AmbiguityUnclearReference,
			Severity: models.SeverityHigh,
		})
	}

	wordCount := len(strings.Fields(query))
	if wordCount < 3 {
		ambiguities = append(ambiguities, models.Ambiguity{
			Type:      models.AmbiguityTooBrief,
			WordCount: wordCount,
			Severity:  models.SeverityMedium,
		})
	}

	if questionMarks := strings.Count(query, "?"); questionMarks > 1 {
		ambiguities = append(ambiguities, models.Ambiguity{
			Type:     models.AmbiguityMultipleQuestions,
			Count:    questionMarks,
			Severity: models.SeverityLow,
		})
	}

	if strings.Contains(queryLower, " and ") && strings.Contains(queryLower, " or ") {
		ambiguities = append(ambiguities, models.Ambiguity{
			Type:     models.AmbiguityComplexLogic,
			Severity: models.SeverityMedium,
		})
	}

	needsClarification := false
	for _, amb := range ambiguities {
		if amb.Severity == models.SeverityHigh {
			needsClarification = true
			break
		}
	}

	severity := models.SeverityLow
	if needsClarification {
		severity = models.SeverityHigh
	} else if len(ambiguities) > 0 {
		severity = models.SeverityMedium
	}

	return models.AmbiguityInfo{
		IsAmbiguous:        len(ambiguities) > 0,
		NeedsClarification: needsClarification,
		Ambiguities:        ambiguities,
		Severity:           severity,
	}
}

// clarificationPrompt builds a human-readable clarification question
// keyed to the first recognized ambiguity type.
func clarificationPrompt(info models.AmbiguityInfo) string {
	for _, amb := range info.Ambiguities {
		switch amb.Type {
		case models.AmbiguityUnclearReference:
			return "I notice you're referring to something, but I'm not sure what you're asking about. Could you please provide more details or rephrase your question?"
		case models.AmbiguityVagueTerms:
			return fmt.Sprintf("I'd like to help, but your question contains some vague terms (%s). Could you be more specific about what you're looking for?", strings.Join(amb.Terms, ", "))
		case models.AmbiguityTooBrief:
			return "Your question is quite brief. Could you provide more context or details so I can give you a better answer?"
		}
	}
	return "I want to make sure I understand your question correctly. Could you please provide more details or rephrase it?"
}

// resolveFollowUpContext prefixes the query with a compact summary of
// the last few turns so retrieval sees the implied subject.
func resolveFollowUpContext(query string, history []models.Message) string {
	if len(history) == 0 {
		return query
	}

	var parts []string
	for _, msg := range models.LastN(history, 3) {
		switch msg.Role {
		case models.RoleUser:
			parts = append(parts, "Previously asked: "+msg.Content)
		case models.RoleAssistant:
			if first := utils.FirstSentence(msg.Content, 0); first != "" {
				parts = append(parts, "Previously answered: "+first)
			}
		}
	}

	return fmt.Sprintf("[Context: %s] | Current question: %s", strings.Join(parts, " | "), query)
}
