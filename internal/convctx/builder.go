// Package convctx builds structured conversation context from message
// history: topics, entities, reference resolution, sliding windows, and
// summarization policy.
package convctx

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hyperdocs/kotae/internal/models"
)

const (
	// DefaultMaxMessages bounds the recent-message window.
	DefaultMaxMessages = 10
	// DefaultMaxTokens bounds the sliding-window token budget.
	DefaultMaxTokens = 4000
	// DefaultSummaryTrigger is the history length past which the
	// conversation should be summarized.
	DefaultSummaryTrigger = 15
)

var (
	topicPattern    = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\b`)
	quotedPattern   = regexp.MustCompile(`["']([^"']+)["']`)
	docNamePattern  = regexp.MustCompile(`(?i)\b(?:document|file|report|paper|article)[\s:]+"?([^".,;]+)"?`)
	valuePattern    = regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?\s*(?:GB|MB|KB|%|dollars?|euros?|\$|€)`)
	histDatePattern = regexp.MustCompile(`\b(?:\d{1,2}[-/]\d{1,2}[-/]\d{2,4}|\d{4})\b`)
)

// Builder derives per-query conversation context. It holds only
// configuration and is safe for concurrent use.
type Builder struct {
	maxMessages    int
	maxTokens      int
	summaryTrigger int
}

// Option configures a Builder.
type Option func(*Builder)

// WithWindow overrides the recent-message count and token budget.
// Non-positive values leave the corresponding default in place.
func WithWindow(maxMessages, maxTokens int) Option {
	return func(b *Builder) {
		if maxMessages > 0 {
			b.maxMessages = maxMessages
		}
		if maxTokens > 0 {
			b.maxTokens = maxTokens
		}
	}
}

// WithSummaryTrigger overrides the history length past which the
// conversation should be summarized. Non-positive values are ignored.
func WithSummaryTrigger(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.summaryTrigger = n
		}
	}
}

// NewBuilder creates a Builder with the default limits.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		maxMessages:    DefaultMaxMessages,
		maxTokens:      DefaultMaxTokens,
		summaryTrigger: DefaultSummaryTrigger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build assembles the structured context for the current query from the
// full message history. Only the last maxMessages messages are mined.
func (b *Builder) Build(messages []models.Message, currentQuery string) models.ConversationContext {
	recent := models.LastN(messages, b.maxMessages)

	topics := extractTopics(recent)
	entities := extractHistoryEntities(recent)
	references := DetectReferences(currentQuery)

	return models.ConversationContext{
		RecentMessages:     recent,
		Topics:             topics,
		Entities:           entities,
		QuestionsAsked:     extractQuestions(recent),
		References:         references,
		ResolvedContext:    resolveReferences(currentQuery, recent, entities, references),
		ContextSummary:     buildContextSummary(recent, topics, entities),
		MessageCount:       len(recent),
		NeedsSummarization: len(messages) > b.summaryTrigger,
	}
}

// extractTopics collects capitalized runs and quoted terms from user
// messages, deduplicated in first-seen order and capped at 10.
func extractTopics(messages []models.Message) []string {
	var topics []string
	seen := make(map[string]bool)
	add := func(topic string) {
		if topic != "" && !seen[topic] {
			seen[topic] = true
			topics = append(topics, topic)
		}
	}

	for _, msg := range messages {
		if msg.Role != models.RoleUser {
			continue
		}
		for _, match := range topicPattern.FindAllString(msg.Content, -1) {
			add(match)
		}
		for _, match := range quotedPattern.FindAllStringSubmatch(strings.ToLower(msg.Content), -1) {
			add(match[1])
		}
	}

	if len(topics) > 10 {
		topics = topics[:10]
	}
	return topics
}

// extractHistoryEntities categorizes document names, values with units,
// and dates seen anywhere in the window. Each category is deduplicated
// in first-seen order and capped at 5.
func extractHistoryEntities(messages []models.Message) models.HistoryEntities {
	var entities models.HistoryEntities

	for _, msg := range messages {
		for _, match := range docNamePattern.FindAllStringSubmatch(msg.Content, -1) {
			entities.Documents = appendUnique(entities.Documents, strings.TrimSpace(match[1]))
		}
		for _, match := range valuePattern.FindAllString(msg.Content, -1) {
			entities.Values = appendUnique(entities.Values, match)
		}
		for _, match := range histDatePattern.FindAllString(msg.Content, -1) {
			entities.Dates = appendUnique(entities.Dates, match)
		}
	}

	entities.Documents = capSlice(entities.Documents, 5)
	entities.Values = capSlice(entities.Values, 5)
	entities.Dates = capSlice(entities.Dates, 5)
	return entities
}

// extractQuestions returns the last 5 user messages containing a "?".
func extractQuestions(messages []models.Message) []string {
	var questions []string
	for _, msg := range messages {
		if msg.Role == models.RoleUser && strings.Contains(msg.Content, "?") {
			questions = append(questions, msg.Content)
		}
	}
	if len(questions) > 5 {
		questions = questions[len(questions)-5:]
	}
	return questions
}

// buildContextSummary assembles a compact pipe-delimited summary of the
// window for prompt injection.
func buildContextSummary(messages []models.Message, topics []string, entities models.HistoryEntities) string {
	if len(messages) == 0 {
		return ""
	}

	userCount := 0
	for _, msg := range messages {
		if msg.Role == models.RoleUser {
			userCount++
		}
	}

	parts := []string{fmt.Sprintf("%d questions asked", userCount)}
	if len(topics) > 0 {
		parts = append(parts, "Topics discussed: "+strings.Join(capSlice(topics, 3), ", "))
	}
	if len(entities.Documents) > 0 {
		parts = append(parts, "Documents referenced: "+strings.Join(capSlice(entities.Documents, 2), ", "))
	}
	if len(entities.Values) > 0 {
		parts = append(parts, "Values mentioned: "+strings.Join(capSlice(entities.Values, 2), ", "))
	}

	return strings.Join(parts, " | ")
}

func appendUnique(slice []string, value string) []string {
	if value == "" {
		return slice
	}
	for _, existing := range slice {
		if existing == value {
			return slice
		}
	}
	return append(slice, value)
}

func capSlice(slice []string, max int) []string {
	if len(slice) > max {
		return slice[:max]
	}
	return slice
}
