package retrieval

import (
	"regexp"
	"strings"
)

const (
	minChunks = 3
	maxChunks = 15
)

var (
	complexityQuestionWords   = []string{"what", "when", "where", "who", "why", "how", "which"}
	complexityComparisonWords = []string{"compare", "difference", "versus", "vs", "better", "worse", "contrast"}

	digitPattern = regexp.MustCompile(`\d`)
)

// AnalyzeComplexity scores a query's retrieval demands from surface
// features alone.
func AnalyzeComplexity(query string) Complexity {
	queryLower := strings.ToLower(query)
	wordCount := len(strings.Fields(query))

	isQuestion := strings.Contains(query, "?")
	for _, qw := range complexityQuestionWords {
		if strings.HasPrefix(queryLower, qw) {
			isQuestion = true
			break
		}
	}

	isComparison := false
	for _, cw := range complexityComparisonWords {
		if strings.Contains(queryLower, cw) {
			isComparison = true
			break
		}
	}

	isMultipart := strings.Contains(queryLower, " and ") ||
		strings.Contains(queryLower, " or ") ||
		strings.Count(query, "?") > 1

	isSpecific := digitPattern.MatchString(query) ||
		strings.ContainsAny(query, `"'`) ||
		wordCount <= 5

	score := 0
	if isQuestion {
		score++
	}
	if isComparison {
		score += 2
	}
	if isMultipart {
		score += 2
	}
	if wordCount > 15 {
		score++
	}
	if !isSpecific {
		score++
	}

	level := ComplexityLow
	if score >= 4 {
		level = ComplexityHigh
	} else if score >= 2 {
		level = ComplexityMedium
	}

	return Complexity{
		Level:        level,
		Score:        score,
		WordCount:    wordCount,
		IsQuestion:   isQuestion,
		IsComparison: isComparison,
		IsMultipart:  isMultipart,
		IsSpecific:   isSpecific,
	}
}

// AdaptiveParameters maps complexity onto retrieval knobs: complex
// queries fetch more chunks at a looser threshold with more keyword
// influence, simple ones fewer and stricter.
func AdaptiveParameters(complexity Complexity) Parameters {
	var params Parameters
	switch complexity.Level {
	case ComplexityHigh:
		params = Parameters{TopK: maxChunks, SimilarityThreshold: 0.35, KeywordWeight: 0.3}
	case ComplexityMedium:
		params = Parameters{TopK: 8, SimilarityThreshold: 0.4, KeywordWeight: 0.25}
	default:
		params = Parameters{TopK: 5, SimilarityThreshold: 0.5, KeywordWeight: 0.2}
	}

	if complexity.IsComparison {
		params.TopK = min(params.TopK+3, maxChunks)
	}
	if complexity.IsMultipart {
		params.TopK = min(params.TopK+2, maxChunks)
	}
	if complexity.IsSpecific {
		params.SimilarityThreshold += 0.1
	}

	return params
}
