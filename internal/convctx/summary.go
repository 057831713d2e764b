package convctx

import (
	"context"
	"fmt"
	"strings"

	"github.com/hyperdocs/kotae/internal/models"
	"github.com/hyperdocs/kotae/pkg/utils"
)

const summarySystemPrompt = "You are a conversation summarizer. Create brief, informative summaries."

const summaryPromptTemplate = `Summarize this conversation in 2-3 sentences, focusing on:
1. Main topics discussed
2. Key information provided
3. Current context

Conversation:
%s

Summary:`

// Generator produces free-form text from a system prompt and a user
// message. Implemented by the LLM client.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userMessage string) (string, error)
}

// Summarize condenses a long conversation into a few sentences. It
// delegates to the generator when one is available and falls back to an
// extractive summary when the generator is nil or fails. Conversations
// shorter than 5 messages produce no summary.
func (b *Builder) Summarize(ctx context.Context, messages []models.Message, gen Generator) string {
	if len(messages) < 5 {
		return ""
	}

	if gen != nil {
		var lines []string
		for _, msg := range messages {
			lines = append(lines, strings.ToUpper(msg.Role)+": "+msg.Content)
		}
		prompt := fmt.Sprintf(summaryPromptTemplate, strings.Join(lines, "\n\n"))
		if summary, err := gen.Generate(ctx, summarySystemPrompt, prompt); err == nil {
			return summary
		}
	}

	return extractiveSummary(messages)
}

// extractiveSummary pairs the last user question with the first sentence
// of the last assistant reply.
func extractiveSummary(messages []models.Message) string {
	var lastQuestion, lastPoint string
	for _, msg := range messages {
		switch msg.Role {
		case models.RoleUser:
			lastQuestion = msg.Content
		case models.RoleAssistant:
			lastPoint = utils.FirstSentence(msg.Content, 150)
		}
	}

	var parts []string
	if lastQuestion != "" {
		parts = append(parts, "User asked about: "+clip(lastQuestion, 100))
	}
	if lastPoint != "" {
		parts = append(parts, "Key information: "+clip(lastPoint, 100))
	}
	return strings.Join(parts, ". ")
}

func clip(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
