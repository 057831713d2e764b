package convctx

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hyperdocs/kotae/internal/models"
	"github.com/hyperdocs/kotae/pkg/utils"
)

var (
	referencePronouns       = []string{"it", "its", "they", "them", "their", "he", "she", "him", "her"}
	referenceDemonstratives = []string{"this", "that", "these", "those", "the same", "such"}
	vagueReferences         = []string{"the document", "the file", "the previous", "earlier", "mentioned", "above"}

	wordPatternCache = buildWordPatterns(append(append([]string{}, referencePronouns...), referenceDemonstratives...))
)

func buildWordPatterns(words []string) map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp, len(words))
	for _, word := range words {
		patterns[word] = regexp.MustCompile(`\b` + word + `\b`)
	}
	return patterns
}

// DetectReferences scans the query for pronouns, demonstratives, and
// vague references that point back into the conversation.
func DetectReferences(query string) models.References {
	queryLower := strings.ToLower(query)
	var refs models.References

	for _, pronoun := range referencePronouns {
		if wordPatternCache[pronoun].MatchString(queryLower) {
			refs.Pronouns = append(refs.Pronouns, pronoun)
			refs.HasReferences = true
		}
	}
	for _, demo := range referenceDemonstratives {
		if wordPatternCache[demo].MatchString(queryLower) {
			refs.Demonstratives = append(refs.Demonstratives, demo)
			refs.HasReferences = true
		}
	}
	for _, vague := range vagueReferences {
		if strings.Contains(queryLower, vague) {
			refs.VagueReferences = append(refs.VagueReferences, vague)
			refs.HasReferences = true
		}
	}

	return refs
}

// resolveReferences expands the query with whatever the references most
// likely point at. Vague references take precedence over pronoun and
// demonstrative resolution: when both apply, the recent-context rewrite
// replaces the document rewrite.
func resolveReferences(query string, messages []models.Message, entities models.HistoryEntities, refs models.References) string {
	if !refs.HasReferences || len(messages) < 2 {
		return query
	}

	resolved := query

	if (len(refs.Pronouns) > 0 || len(refs.Demonstratives) > 0) && len(entities.Documents) > 0 {
		latestDoc := entities.Documents[len(entities.Documents)-1]
		resolved = fmt.Sprintf("[Referring to: %s] %s", latestDoc, query)
	}

	if len(refs.VagueReferences) > 0 {
		var parts []string
		for _, msg := range models.LastN(messages, 3) {
			switch msg.Role {
			case models.RoleUser:
				parts = append(parts, "User previously asked: "+msg.Content)
			case models.RoleAssistant:
				parts = append(parts, "Assistant replied: "+utils.FirstSentence(msg.Content, 100))
			}
		}
		resolved = fmt.Sprintf("[Previous context: %s] Current question: %s", strings.Join(parts, " | "), query)
	}

	return resolved
}

// EnhanceQuery merges the resolved context back into the query, adding
// document hints when the history mentions specific documents.
func EnhanceQuery(query string, ctx models.ConversationContext) string {
	if !ctx.References.HasReferences {
		return query
	}

	enhanced := ctx.ResolvedContext
	if enhanced == "" {
		enhanced = query
	}

	if len(ctx.Entities.Documents) > 0 {
		hint := "Documents: " + strings.Join(capSlice(ctx.Entities.Documents, 2), ", ")
		enhanced = fmt.Sprintf("%s [Context: %s]", enhanced, hint)
	}

	return enhanced
}
