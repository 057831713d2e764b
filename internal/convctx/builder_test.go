package convctx

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hyperdocs/kotae/internal/models"
)

func historyFixture() []models.Message {
	return []models.Message{
		{Role: models.RoleUser, Content: "How much storage does the Pro Plan include?"},
		{Role: models.RoleAssistant, Content: "The Pro Plan includes 50 GB of storage. Details are in the pricing file: specs-2024."},
		{Role: models.RoleUser, Content: "And what about the Enterprise tier?"},
	}
}

func TestBuildStructuredContext(t *testing.T) {
	builder := NewBuilder()
	ctx := builder.Build(historyFixture(), "does it include backups?")

	if ctx.MessageCount != 3 {
		t.Errorf("message_count = %d, want 3", ctx.MessageCount)
	}
	if ctx.NeedsSummarization {
		t.Error("short history must not need summarization")
	}

	foundTopic := false
	for _, topic := range ctx.Topics {
		if topic == "Pro Plan" {
			foundTopic = true
		}
	}
	if !foundTopic {
		t.Errorf("topics = %v, want Pro Plan present", ctx.Topics)
	}

	if len(ctx.Entities.Documents) != 1 || ctx.Entities.Documents[0] != "specs-2024" {
		t.Errorf("documents = %v, want [specs-2024]", ctx.Entities.Documents)
	}
	if len(ctx.Entities.Values) != 1 || ctx.Entities.Values[0] != "50 GB" {
		t.Errorf("values = %v, want [50 GB]", ctx.Entities.Values)
	}
	if len(ctx.Entities.Dates) != 1 || ctx.Entities.Dates[0] != "2024" {
		t.Errorf("dates = %v, want [2024]", ctx.Entities.Dates)
	}

	if len(ctx.QuestionsAsked) != 2 {
		t.Errorf("questions = %v, want 2 entries", ctx.QuestionsAsked)
	}

	if !ctx.References.HasReferences {
		t.Fatal("expected pronoun reference")
	}
	want := "[Referring to: specs-2024] does it include backups?"
	if ctx.ResolvedContext != want {
		t.Errorf("resolved_context = %q, want %q", ctx.ResolvedContext, want)
	}

	if !strings.Contains(ctx.ContextSummary, "2 questions asked") {
		t.Errorf("context_summary = %q, want question count", ctx.ContextSummary)
	}
	if !strings.Contains(ctx.ContextSummary, "Documents referenced: specs-2024") {
		t.Errorf("context_summary = %q, want document reference", ctx.ContextSummary)
	}
}

func TestVagueReferenceOutranksDocumentRewrite(t *testing.T) {
	builder := NewBuilder()

	// Both a pronoun and a vague reference are present; the recent-context
	// rewrite must win over the document rewrite.
	ctx := builder.Build(historyFixture(), "what does it say in the document?")

	if !strings.HasPrefix(ctx.ResolvedContext, "[Previous context: ") {
		t.Errorf("resolved_context = %q, want previous-context rewrite", ctx.ResolvedContext)
	}
	if !strings.HasSuffix(ctx.ResolvedContext, "Current question: what does it say in the document?") {
		t.Errorf("resolved_context = %q", ctx.ResolvedContext)
	}
}

func TestReferencesNotResolvedWithoutHistory(t *testing.T) {
	builder := NewBuilder()
	query := "what does it mean?"

	ctx := builder.Build([]models.Message{{Role: models.RoleUser, Content: "hi"}}, query)

	if !ctx.References.HasReferences {
		t.Fatal("expected reference detection")
	}
	if ctx.ResolvedContext != query {
		t.Errorf("resolved_context = %q, want untouched query", ctx.ResolvedContext)
	}
}

func TestNeedsSummarizationTrigger(t *testing.T) {
	builder := NewBuilder()

	messages := make([]models.Message, 16)
	for i := range messages {
		messages[i] = models.Message{Role: models.RoleUser, Content: "q"}
	}

	ctx := builder.Build(messages, "next")
	if !ctx.NeedsSummarization {
		t.Error("16 messages must trigger summarization")
	}
	if ctx.MessageCount != DefaultMaxMessages {
		t.Errorf("message_count = %d, want capped at %d", ctx.MessageCount, DefaultMaxMessages)
	}
}

func TestBuilderOptions(t *testing.T) {
	builder := NewBuilder(WithWindow(2, 500), WithSummaryTrigger(3))

	messages := make([]models.Message, 4)
	for i := range messages {
		messages[i] = models.Message{Role: models.RoleUser, Content: "q"}
	}

	ctx := builder.Build(messages, "next")
	if ctx.MessageCount != 2 {
		t.Errorf("message_count = %d, want capped at 2", ctx.MessageCount)
	}
	if !ctx.NeedsSummarization {
		t.Error("4 messages must trigger summarization with a trigger of 3")
	}

	defaults := NewBuilder(WithWindow(0, 0), WithSummaryTrigger(0))
	if defaults.maxMessages != DefaultMaxMessages || defaults.maxTokens != DefaultMaxTokens || defaults.summaryTrigger != DefaultSummaryTrigger {
		t.Error("non-positive overrides must leave defaults in place")
	}
}

func TestDetectReferences(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantRefs  bool
		wantField string
	}{
		{"pronoun", "when does it expire", true, "pronouns"},
		{"demonstrative", "is that included", true, "demonstratives"},
		{"vague", "as mentioned earlier", true, "vague"},
		{"clean query", "what is the warranty period", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectReferences(tt.query)
			if got.HasReferences != tt.wantRefs {
				t.Fatalf("has_references = %v, want %v", got.HasReferences, tt.wantRefs)
			}
			switch tt.wantField {
			case "pronouns":
				if len(got.Pronouns) == 0 {
					t.Error("expected pronouns")
				}
			case "demonstratives":
				if len(got.Demonstratives) == 0 {
					t.Error("expected demonstratives")
				}
			case "vague":
				if len(got.VagueReferences) == 0 {
					t.Error("expected vague references")
				}
			}
		})
	}
}

func TestSlidingWindow(t *testing.T) {
	builder := NewBuilder()
	messages := []models.Message{
		{Content: strings.Repeat("a", 40)},
		{Content: strings.Repeat("b", 16)},
		{Content: strings.Repeat("c", 12)},
	}

	// Query costs 2 tokens, budget is 10: the newest two messages (3 and
	// 4 tokens) fit, the oldest (10 tokens) does not.
	got := builder.SlidingWindow(messages, "12345678", 10)

	if len(got) != 2 {
		t.Fatalf("window size = %d, want 2", len(got))
	}
	if got[0].Content[0] != 'b' || got[1].Content[0] != 'c' {
		t.Errorf("window kept wrong messages")
	}
}

func TestBuildForIntentWindows(t *testing.T) {
	builder := NewBuilder()
	messages := make([]models.Message, 8)
	for i := range messages {
		messages[i] = models.Message{Role: models.RoleUser, Content: "question"}
	}

	tests := []struct {
		name      string
		query     string
		intent    string
		wantCount int
	}{
		{"references win", "tell me about it", models.IntentFactualLookup, 5},
		{"factual lookup", "what is the warranty", models.IntentFactualLookup, 3},
		{"specific value", "what is the warranty", models.IntentSpecificValue, 3},
		{"general inquiry", "summarize pricing", models.IntentGeneralInquiry, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := builder.BuildForIntent(messages, tt.query, tt.intent)
			if len(ctx.RelevantMessages) != tt.wantCount {
				t.Errorf("relevant messages = %d, want %d", len(ctx.RelevantMessages), tt.wantCount)
			}
		})
	}
}

func TestPrepareForLLM(t *testing.T) {
	ctx := models.ConversationContext{
		ContextSummary:  "2 questions asked",
		QuestionsAsked:  []string{"q1?", "q2?", "q3?", "q4?"},
		Entities:        models.HistoryEntities{Documents: []string{"specs-2024"}},
		References:      models.References{HasReferences: true},
		ResolvedContext: "[Referring to: specs-2024] does it expire?",
	}

	got := PrepareForLLM(ctx, true)

	if !strings.Contains(got, "Conversation Summary: 2 questions asked") {
		t.Errorf("missing summary: %q", got)
	}
	if !strings.Contains(got, "Recent questions: q2? | q3? | q4?") {
		t.Errorf("missing last three questions: %q", got)
	}
	if !strings.Contains(got, "documents: specs-2024") {
		t.Errorf("missing entities: %q", got)
	}
	if !strings.Contains(got, "Context resolution: [Referring to: specs-2024]") {
		t.Errorf("missing resolution: %q", got)
	}

	if got := PrepareForLLM(models.ConversationContext{}, true); got != "" {
		t.Errorf("empty context produced %q", got)
	}
}

type fakeGenerator struct {
	out string
	err error
}

func (f *fakeGenerator) Generate(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	return f.out, f.err
}

func TestSummarize(t *testing.T) {
	builder := NewBuilder()
	messages := []models.Message{
		{Role: models.RoleUser, Content: "first question?"},
		{Role: models.RoleAssistant, Content: "First answer. With detail."},
		{Role: models.RoleUser, Content: "second question?"},
		{Role: models.RoleAssistant, Content: "Second answer sentence. Trailing text."},
		{Role: models.RoleUser, Content: "third question?"},
	}

	t.Run("short conversation yields nothing", func(t *testing.T) {
		if got := builder.Summarize(context.Background(), messages[:4], &fakeGenerator{out: "s"}); got != "" {
			t.Errorf("got %q, want empty", got)
		}
	})

	t.Run("generator output preferred", func(t *testing.T) {
		got := builder.Summarize(context.Background(), messages, &fakeGenerator{out: "generated summary"})
		if got != "generated summary" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("extractive fallback on error", func(t *testing.T) {
		got := builder.Summarize(context.Background(), messages, &fakeGenerator{err: errors.New("down")})
		if !strings.Contains(got, "User asked about: third question?") {
			t.Errorf("fallback = %q", got)
		}
		if !strings.Contains(got, "Key information: Second answer sentence") {
			t.Errorf("fallback = %q", got)
		}
	})

	t.Run("nil generator uses fallback", func(t *testing.T) {
		got := builder.Summarize(context.Background(), messages, nil)
		if !strings.Contains(got, "User asked about") {
			t.Errorf("fallback = %q", got)
		}
	})
}

func TestEnhanceQuery(t *testing.T) {
	withRefs := models.ConversationContext{
		References:      models.References{HasReferences: true},
		ResolvedContext: "[Referring to: specs-2024] does it expire?",
		Entities:        models.HistoryEntities{Documents: []string{"specs-2024", "faq", "extra"}},
	}

	got := EnhanceQuery("does it expire?", withRefs)
	want := "[Referring to: specs-2024] does it expire? [Context: Documents: specs-2024, faq]"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	plain := models.ConversationContext{}
	if got := EnhanceQuery("what is the warranty", plain); got != "what is the warranty" {
		t.Errorf("got %q, want unchanged query", got)
	}
}
