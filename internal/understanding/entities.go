package understanding

import (
	"regexp"

	"github.com/hyperdocs/kotae/internal/models"
)

var (
	numberPattern    = regexp.MustCompile(`\b\d+(?:\.\d+)?\b`)
	capitalizedRun   = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\b`)
	quotedPattern    = regexp.MustCompile(`["']([^"']+)["']`)
	datePattern      = regexp.MustCompile(`\b\d{1,2}[-/]\d{1,2}[-/]\d{2,4}\b`)
	technicalPattern = regexp.MustCompile(`\b[a-z]+[A-Z][a-zA-Z]*\b|\b\w+[-_]\w+\b`)
)

// ExtractEntities pulls numbers, candidate document names, quoted phrases,
// dates, and technical tokens out of the raw query.
func (a *Analyzer) ExtractEntities(query string) models.Entities {
	var quoted []string
	for _, match := range quotedPattern.FindAllStringSubmatch(query, -1) {
		quoted = append(quoted, match[1])
	}

	return models.Entities{
		Numbers:        numberPattern.FindAllString(query, -1),
		PotentialNames: capitalizedRun.FindAllString(query, -1),
		QuotedPhrases:  quoted,
		Dates:          datePattern.FindAllString(query, -1),
		TechnicalTerms: technicalPattern.FindAllString(query, -1),
	}
}
