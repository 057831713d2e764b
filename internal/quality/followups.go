package quality

import (
	"fmt"

	"github.com/hyperdocs/kotae/internal/models"
)

// GenerateFollowUps proposes up to 5 follow-up questions based on the
// query intent, the sources that backed the answer, and the entities
// seen in the conversation.
func (v *Validator) GenerateFollowUps(queryIntent string, sources []models.Source, entities models.HistoryEntities) []string {
	var followUps []string

	switch queryIntent {
	case models.IntentFactualLookup:
		if len(entities.Topics) > 0 {
			topic := entities.Topics[0]
			followUps = append(followUps,
				fmt.Sprintf("Tell me more about %s", topic),
				fmt.Sprintf("What are the key features of %s?", topic),
				fmt.Sprintf("How does %s compare to alternatives?", topic),
			)
		}
	case models.IntentComparison:
		if len(entities.Topics) >= 2 {
			followUps = append(followUps,
				"What are the pros and cons of each?",
				"Which one is better for my specific needs?",
				"Are there other alternatives to consider?",
			)
		}
	case models.IntentProcedural:
		followUps = append(followUps,
			"What are the common challenges with this process?",
			"Are there any prerequisites I should know about?",
			"Can you provide more details on any specific step?",
		)
	case models.IntentAnalytical:
		followUps = append(followUps,
			"What are the implications of this?",
			"Are there any related considerations?",
			"What supporting evidence exists for this?",
		)
	}

	followUps = append(followUps, sourceFollowUps(sources)...)

	if len(entities.Documents) > 0 {
		followUps = append(followUps, fmt.Sprintf("What other information is in %s?", entities.Documents[0]))
	}
	if len(entities.Values) > 0 {
		followUps = append(followUps, "Can you explain these numbers in more context?")
	}

	return dedupeStrings(followUps, 5)
}

func sourceFollowUps(sources []models.Source) []string {
	var documents []string
	seen := make(map[string]bool)
	for _, source := range sources {
		if source.DocumentName != "" && !seen[source.DocumentName] {
			seen[source.DocumentName] = true
			documents = append(documents, source.DocumentName)
		}
	}

	var followUps []string
	if len(documents) > 1 {
		followUps = append(followUps, fmt.Sprintf("What else does %s discuss?", documents[0]))
	}
	if len(documents) > 0 {
		followUps = append(followUps, "Are there other relevant documents I should review?")
	}
	return followUps
}

func dedupeStrings(values []string, max int) []string {
	seen := make(map[string]bool, len(values))
	var out []string
	for _, value := range values {
		if seen[value] {
			continue
		}
		seen[value] = true
		out = append(out, value)
		if len(out) == max {
			break
		}
	}
	return out
}
