// Package quality validates answers against their sources and produces
// explainable confidence indicators.
package quality

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hyperdocs/kotae/internal/models"
)

var (
	valueWithUnitPattern = regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?\s*(?:GB|MB|KB|%|dollars?|\$|€)`)
	entityRunPattern     = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\b`)
	listItemPattern      = regexp.MustCompile(`\b\d+[.)]\s`)
	bulletPattern        = regexp.MustCompile(`\n\s*[-*•]\s`)
	stepPattern          = regexp.MustCompile(`\b(?:step|first|second|third|then|next|finally)\b`)

	negationPatterns = compilePatterns(
		`\bnot\b`, `\bno\b`, `\bnever\b`, `\bdoesn't\b`,
		`\bdon't\b`, `\bisn't\b`, `\baren't\b`, `\bwasn't\b`,
	)

	hedgePhrases = []string{
		"i think", "i believe", "it seems", "it appears",
		"probably", "possibly", "might be", "could be",
		"it's likely", "perhaps",
	}

	uncertaintyLevels = []struct {
		level      string
		indicators []string
	}{
		{"high", []string{"not sure", "uncertain", "unclear", "cannot determine", "insufficient information"}},
		{"medium", []string{"may", "might", "could", "possibly", "perhaps", "it seems"}},
		{"low", []string{"likely", "probably", "appears to"}},
	}
)

func compilePatterns(exprs ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		compiled = append(compiled, regexp.MustCompile(expr))
	}
	return compiled
}

// Validator checks answer quality against retrieved sources. Stateless
// and safe for concurrent use.
type Validator struct{}

// NewValidator creates a new Validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate runs the multiplicative quality checks over a response. The
// score starts at 1.0 and shrinks with each failed check: empty response
// x0.1 (and invalid), hallucinated values x0.8, grounding overlap as a
// direct factor, unsupported negations x0.7, incompleteness factor, and
// highly uncertain language x0.9.
func (v *Validator) Validate(response string, sources []models.Source, query, queryIntent string) models.ValidationResult {
	result := models.ValidationResult{
		IsValid:         true,
		ConfidenceScore: 1.0,
	}

	if len(strings.TrimSpace(response)) < 10 {
		result.IsValid = false
		result.Issues = append(result.Issues, "Response too short or empty")
		result.ConfidenceScore *= 0.1
		return result
	}

	hallucinated, hallucinationWarnings := checkHallucinations(response, sources)
	result.Warnings = append(result.Warnings, hallucinationWarnings...)
	if hallucinated {
		result.ConfidenceScore *= 0.8
	}

	result.GroundingScore = groundingScore(response, sources)
	result.ConfidenceScore *= result.GroundingScore
	if result.GroundingScore < 0.3 {
		result.Warnings = append(result.Warnings, "Response may not be well-grounded in sources")
	}

	if hasUnsupportedNegations(response, sources) {
		result.Warnings = append(result.Warnings, "Response contains negations not clearly supported by sources")
		result.ConfidenceScore *= 0.7
	}

	completeness := completenessScore(response, query, queryIntent)
	result.ConfidenceScore *= completeness
	if completeness < 0.5 {
		result.Warnings = append(result.Warnings, "Response may be incomplete")
	}

	if detectUncertainty(response) == "high" {
		result.ConfidenceScore *= 0.9
	}

	return result
}

// checkHallucinations flags numeric values with units that do not appear
// in any source, and reports hedge phrases as warnings.
func checkHallucinations(response string, sources []models.Source) (bool, []string) {
	var warnings []string
	hallucinated := false

	if values := valueWithUnitPattern.FindAllString(response, -1); len(values) > 0 {
		sourceText := combinedSourceText(sources)
		for _, value := range values {
			if !strings.Contains(sourceText, value) {
				warnings = append(warnings, fmt.Sprintf("Numeric value %q not found in sources", value))
				hallucinated = true
			}
		}
	}

	responseLower := strings.ToLower(response)
	for _, phrase := range hedgePhrases {
		if strings.Contains(responseLower, phrase) {
			warnings = append(warnings, fmt.Sprintf("Contains uncertain language: %q", phrase))
		}
	}

	return hallucinated, warnings
}

// groundingScore measures word overlap between the response and the
// source previews, normalized by response vocabulary and capped at 1.0.
func groundingScore(response string, sources []models.Source) float64 {
	if len(sources) == 0 {
		return 0
	}

	responseWords := wordSet(strings.ToLower(response))
	if len(responseWords) == 0 {
		return 0
	}

	totalOverlap := 0
	for _, source := range sources {
		sourceWords := wordSet(strings.ToLower(source.Preview))
		for word := range responseWords {
			if sourceWords[word] {
				totalOverlap++
			}
		}
	}

	score := float64(totalOverlap) / float64(len(responseWords))
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// hasUnsupportedNegations reports whether the response negates something
// while no source preview contains a negation of its own.
func hasUnsupportedNegations(response string, sources []models.Source) bool {
	if len(sources) == 0 {
		return false
	}

	responseLower := strings.ToLower(response)
	responseNegates := false
	for _, pattern := range negationPatterns {
		if pattern.MatchString(responseLower) {
			responseNegates = true
			break
		}
	}
	if !responseNegates {
		return false
	}

	sourceText := strings.ToLower(combinedSourceText(sources))
	for _, pattern := range negationPatterns {
		if pattern.MatchString(sourceText) {
			return false
		}
	}
	return true
}

// completenessScore checks intent-specific expectations: comparisons
// should mention both compared entities, enumerations should contain
// list markers, procedures should contain step language. Terse answers
// to short questions are lightly penalized.
func completenessScore(response, query, queryIntent string) float64 {
	score := 1.0
	queryLower := strings.ToLower(query)

	switch queryIntent {
	case models.IntentComparison:
		if strings.Contains(queryLower, "compare") || strings.Contains(queryLower, "versus") {
			entities := entityRunPattern.FindAllString(query, -1)
			if len(entities) >= 2 {
				mentions := 0
				for _, entity := range entities[:2] {
					if strings.Contains(response, entity) {
						mentions++
					}
				}
				score = float64(mentions) / 2.0
			}
		}
	case models.IntentListEnumeration:
		items := len(listItemPattern.FindAllString(response, -1)) + len(bulletPattern.FindAllString(response, -1))
		if items < 2 {
			score *= 0.7
		}
	case models.IntentProcedural:
		steps := len(stepPattern.FindAllString(strings.ToLower(response), -1))
		if steps < 2 {
			score *= 0.8
		}
	}

	if len(strings.Fields(query)) < 10 && len(strings.Fields(response)) < 30 {
		score *= 0.9
	}

	return score
}

// detectUncertainty returns the strongest uncertainty level expressed in
// the response, or "none".
func detectUncertainty(response string) string {
	responseLower := strings.ToLower(response)
	for _, entry := range uncertaintyLevels {
		for _, indicator := range entry.indicators {
			if strings.Contains(responseLower, indicator) {
				return entry.level
			}
		}
	}
	return "none"
}

func combinedSourceText(sources []models.Source) string {
	previews := make([]string, 0, len(sources))
	for _, source := range sources {
		previews = append(previews, source.Preview)
	}
	return strings.Join(previews, " ")
}

func wordSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, word := range strings.Fields(text) {
		set[word] = true
	}
	return set
}
