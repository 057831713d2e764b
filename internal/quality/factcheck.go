package quality

import (
	"regexp"
	"strings"

	"github.com/hyperdocs/kotae/internal/models"
)

var (
	sentenceSplitPattern = regexp.MustCompile(`[.!?]+`)
	digitRunPattern      = regexp.MustCompile(`\d+`)
	factualVerbPattern   = regexp.MustCompile(`\b(?:is|are|has|have|contains|includes)\b`)
)

// FactCheck extracts up to 5 factual claims from the response and
// verifies each against the combined source previews by word overlap. A
// claim with more than 30% overlap counts as verified; every unverified
// claim multiplies the score by 0.9, and the score is finally scaled by
// the verified ratio.
func (v *Validator) FactCheck(response string, sources []models.Source) models.FactCheckResult {
	claims := extractClaims(response)
	sourceWords := wordSet(strings.ToLower(combinedSourceText(sources)))

	result := models.FactCheckResult{
		Score:         1.0,
		ClaimsChecked: len(claims),
	}

	for _, claim := range claims {
		overlap := claimOverlap(claim, sourceWords)
		if overlap > 0.3 {
			result.ClaimsVerified++
			continue
		}
		result.UnverifiedClaims = append(result.UnverifiedClaims, models.Claim{
			Text:    claim,
			Overlap: overlap,
		})
		result.Score *= 0.9
	}

	if len(claims) > 0 {
		result.Score *= float64(result.ClaimsVerified) / float64(len(claims))
	}

	return result
}

// extractClaims splits the response into sentences and keeps those that
// look factual: long enough, not questions, and carrying numbers or
// copular verbs. At most 5 claims are checked.
func extractClaims(response string) []string {
	var claims []string
	for _, sentence := range sentenceSplitPattern.Split(response, -1) {
		sentence = strings.TrimSpace(sentence)
		if len(sentence) < 10 || strings.Contains(sentence, "?") {
			continue
		}
		if digitRunPattern.MatchString(sentence) || factualVerbPattern.MatchString(strings.ToLower(sentence)) {
			claims = append(claims, sentence)
		}
		if len(claims) == 5 {
			break
		}
	}
	return claims
}

func claimOverlap(claim string, sourceWords map[string]bool) float64 {
	claimWords := wordSet(strings.ToLower(claim))
	if len(claimWords) == 0 {
		return 0
	}

	overlap := 0
	for word := range claimWords {
		if sourceWords[word] {
			overlap++
		}
	}
	return float64(overlap) / float64(len(claimWords))
}
