package quality

import "github.com/hyperdocs/kotae/internal/models"

// Confidence level thresholds; lower bounds are inclusive.
const (
	highConfidenceThreshold   = 0.80
	mediumConfidenceThreshold = 0.60
	lowConfidenceThreshold    = 0.40
)

// ConfidenceIndicator combines retrieval strength, validation quality,
// fact-check confidence, and source count into one explainable score.
// Weights: retrieval 0.35, validation 0.25, fact-check 0.30, sources
// 0.10. Five or more sources saturate the source component.
func (v *Validator) ConfidenceIndicator(retrievalConfidence float64, validation models.ValidationResult, factCheck models.FactCheckResult, sourceCount int) models.ConfidenceIndicator {
	sourceScore := float64(sourceCount) / 5.0
	if sourceScore > 1.0 {
		sourceScore = 1.0
	}

	overall := retrievalConfidence*0.35 +
		validation.ConfidenceScore*0.25 +
		factCheck.Score*0.30 +
		sourceScore*0.10

	level, color, description := confidenceLevel(overall)

	return models.ConfidenceIndicator{
		Overall:     overall,
		Level:       level,
		Color:       color,
		Description: description,
		Components: models.ConfidenceComponents{
			Retrieval:  retrievalConfidence,
			Validation: validation.ConfidenceScore,
			FactCheck:  factCheck.Score,
			Sources:    sourceScore,
		},
	}
}

// FixedConfidence builds an indicator for paths that bypass scoring,
// such as general queries and keyword-only fallbacks.
func FixedConfidence(overall float64) models.ConfidenceIndicator {
	level, color, description := confidenceLevel(overall)
	return models.ConfidenceIndicator{
		Overall:     overall,
		Level:       level,
		Color:       color,
		Description: description,
	}
}

func confidenceLevel(overall float64) (level, color, description string) {
	switch {
	case overall >= highConfidenceThreshold:
		return models.ConfidenceHigh, "green", "High confidence - Well-supported by sources"
	case overall >= mediumConfidenceThreshold:
		return models.ConfidenceMedium, "yellow", "Medium confidence - Moderately supported"
	case overall >= lowConfidenceThreshold:
		return models.ConfidenceLow, "orange", "Low confidence - Limited source support"
	default:
		return models.ConfidenceVeryLow, "red", "Very low confidence - Insufficient evidence"
	}
}
