package convctx

import (
	"strings"

	"github.com/hyperdocs/kotae/internal/models"
	"github.com/hyperdocs/kotae/pkg/utils"
)

// SlidingWindow returns the most recent messages that fit in the token
// budget, walking backwards from the newest. The current query's own
// tokens count against the budget.
func (b *Builder) SlidingWindow(messages []models.Message, currentQuery string, maxTokens int) []models.Message {
	if maxTokens <= 0 {
		maxTokens = b.maxTokens
	}

	used := utils.EstimateTokens(currentQuery)
	cut := len(messages)
	for i := len(messages) - 1; i >= 0; i-- {
		msgTokens := utils.EstimateTokens(messages[i].Content)
		if used+msgTokens > maxTokens {
			break
		}
		used += msgTokens
		cut = i
	}

	return messages[cut:]
}

// BuildForIntent builds the structured context and selects the message
// window by query intent: follow-ups lean on the newest turns, analytical
// and comparison queries get the widest budgeted window, simple lookups
// need almost none.
func (b *Builder) BuildForIntent(messages []models.Message, currentQuery, intent string) models.ConversationContext {
	ctx := b.Build(messages, currentQuery)

	switch {
	case ctx.References.HasReferences:
		ctx.RelevantMessages = models.LastN(messages, 5)
	case intent == models.IntentComparison || intent == models.IntentAnalytical:
		ctx.RelevantMessages = b.SlidingWindow(messages, currentQuery, 0)
	case intent == models.IntentFactualLookup || intent == models.IntentSpecificValue:
		ctx.RelevantMessages = models.LastN(messages, 3)
	default:
		ctx.RelevantMessages = models.LastN(messages, 7)
	}

	return ctx
}

// PrepareForLLM flattens the structured context into a prompt-ready
// string. Empty sections are omitted.
func PrepareForLLM(ctx models.ConversationContext, includeSummary bool) string {
	var parts []string

	if includeSummary && ctx.ContextSummary != "" {
		parts = append(parts, "Conversation Summary: "+ctx.ContextSummary)
	}

	if len(ctx.QuestionsAsked) > 0 {
		recent := ctx.QuestionsAsked
		if len(recent) > 3 {
			recent = recent[len(recent)-3:]
		}
		parts = append(parts, "Recent questions: "+strings.Join(recent, " | "))
	}

	var entityParts []string
	if len(ctx.Entities.Documents) > 0 {
		entityParts = append(entityParts, "documents: "+strings.Join(ctx.Entities.Documents, ", "))
	}
	if len(ctx.Entities.Topics) > 0 {
		entityParts = append(entityParts, "topics: "+strings.Join(ctx.Entities.Topics, ", "))
	}
	if len(ctx.Entities.Values) > 0 {
		entityParts = append(entityParts, "values: "+strings.Join(ctx.Entities.Values, ", "))
	}
	if len(ctx.Entities.Dates) > 0 {
		entityParts = append(entityParts, "dates: "+strings.Join(ctx.Entities.Dates, ", "))
	}
	if len(entityParts) > 0 {
		parts = append(parts, "Referenced: "+strings.Join(entityParts, " | "))
	}

	if ctx.References.HasReferences {
		parts = append(parts, "Context resolution: "+ctx.ResolvedContext)
	}

	return strings.Join(parts, "\n\n")
}
