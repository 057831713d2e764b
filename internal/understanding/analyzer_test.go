package understanding

import (
	"strings"
	"testing"

	"github.com/hyperdocs/kotae/internal/models"
)

func TestClassifyIntent(t *testing.T) {
	analyzer := NewAnalyzer()

	tests := []struct {
		name           string
		query          string
		wantPrimary    string
		wantConfidence float64
	}{
		{"factual lookup", "What is the refund policy?", models.IntentFactualLookup, 1.0 / 3},
		{"procedural", "How do I configure the process with these instructions?", models.IntentProcedural, 1.0},
		{"comparison", "Compare plan A versus plan B", models.IntentComparison, 2.0 / 3},
		{"specific value wins on score", "How do I find the price and the cost?", models.IntentSpecificValue, 2.0 / 3},
		{"no match falls back to general inquiry", "Tell me everything", models.IntentGeneralInquiry, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := analyzer.ClassifyIntent(tt.query)
			if got.Primary != tt.wantPrimary {
				t.Errorf("primary = %q, want %q", got.Primary, tt.wantPrimary)
			}
			if got.Confidence != tt.wantConfidence {
				t.Errorf("confidence = %v, want %v", got.Confidence, tt.wantConfidence)
			}
		})
	}
}

func TestClassifyIntentTieBreaksByTableOrder(t *testing.T) {
	analyzer := NewAnalyzer()

	// "define" scores factual_lookup, "steps" scores procedural; the
	// earlier table entry must win the tie.
	got := analyzer.ClassifyIntent("define the steps")
	if got.Primary != models.IntentFactualLookup {
		t.Errorf("primary = %q, want %q", got.Primary, models.IntentFactualLookup)
	}
	if len(got.All) != 2 {
		t.Errorf("all intents = %v, want 2 entries", got.All)
	}
}

func TestDetectMultiDocument(t *testing.T) {
	analyzer := NewAnalyzer()

	tests := []struct {
		name           string
		query          string
		documents      int
		wantMulti      bool
		wantConfidence float64
	}{
		{"explicit phrase", "search across all documents", 1, true, 0.9},
		{"comparison with multiple docs", "plan A versus plan B", 3, true, 0.7},
		{"comparison with single doc", "plan A versus plan B", 1, false, 0.7},
		{"single document query", "what is the warranty period", 5, false, 0.5},
		{"conjunction references", "the invoice and the receipt", 2, true, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := analyzer.DetectMultiDocument(tt.query, tt.documents)
			if got.IsMultiDocument != tt.wantMulti {
				t.Errorf("is_multi_document = %v, want %v", got.IsMultiDocument, tt.wantMulti)
			}
			if got.Confidence != tt.wantConfidence {
				t.Errorf("confidence = %v, want %v", got.Confidence, tt.wantConfidence)
			}
		})
	}
}

func TestDetectFollowUp(t *testing.T) {
	analyzer := NewAnalyzer()
	history := []models.Message{
		{Role: models.RoleUser, Content: "What is the refund policy?"},
		{Role: models.RoleAssistant, Content: "Refunds are accepted within 30 days."},
	}

	t.Run("no history means no follow-up", func(t *testing.T) {
		got := analyzer.DetectFollowUp("what about it?", nil)
		if got.IsFollowUp || got.Confidence != 0 {
			t.Errorf("got %+v, want zero follow-up", got)
		}
	})

	tests := []struct {
		name           string
		query          string
		wantType       string
		wantConfidence float64
	}{
		{"explicit continuation", "What about exchanges?", models.ReferenceExplicitContinuation, 0.9},
		{"pronoun outranks explicit words", "Tell me more about it", models.ReferencePronoun, 0.9},
		{"short pronoun query", "does it expire?", models.ReferencePronoun, 0.8},
		{"incomplete question", "and the shipping cost?", models.ReferenceImplicitContinuation, 0.6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := analyzer.DetectFollowUp(tt.query, history)
			if !got.IsFollowUp {
				t.Fatalf("expected follow-up for %q", tt.query)
			}
			if got.ReferenceType != tt.wantType {
				t.Errorf("reference_type = %q, want %q", got.ReferenceType, tt.wantType)
			}
			if got.Confidence != tt.wantConfidence {
				t.Errorf("confidence = %v, want %v", got.Confidence, tt.wantConfidence)
			}
		})
	}
}

func TestDetectAmbiguity(t *testing.T) {
	analyzer := NewAnalyzer()
	longHistory := []models.Message{
		{Role: models.RoleUser, Content: "first"},
		{Role: models.RoleAssistant, Content: "second"},
	}

	t.Run("pronoun without history needs clarification", func(t *testing.T) {
		got := analyzer.DetectAmbiguity("what does it mean?", nil)
		if !got.NeedsClarification {
			t.Fatal("expected needs_clarification")
		}
		if got.Severity != models.SeverityHigh {
			t.Errorf("severity = %q, want high", got.Severity)
		}
	})

	t.Run("pronoun with history is fine", func(t *testing.T) {
		got := analyzer.DetectAmbiguity("what does it mean?", longHistory)
		if got.NeedsClarification {
			t.Error("unexpected needs_clarification")
		}
	})

	t.Run("vague terms flagged", func(t *testing.T) {
		got := analyzer.DetectAmbiguity("where is the stuff about billing", longHistory)
		if !got.IsAmbiguous {
			t.Fatal("expected ambiguity")
		}
		if got.Ambiguities[0].Type != models.AmbiguityVagueTerms {
			t.Errorf("type = %q, want vague_terms", got.Ambiguities[0].Type)
		}
		if got.Ambiguities[0].Terms[0] != "stuff" {
			t.Errorf("terms = %v, want [stuff]", got.Ambiguities[0].Terms)
		}
	})

	t.Run("thing followed by is not vague", func(t *testing.T) {
		got := analyzer.DetectAmbiguity("explain what the thing is called here", longHistory)
		for _, amb := range got.Ambiguities {
			if amb.Type == models.AmbiguityVagueTerms {
				t.Errorf("unexpected vague_terms: %v", amb.Terms)
			}
		}
	})

	t.Run("too brief", func(t *testing.T) {
		got := analyzer.DetectAmbiguity("refund policy", longHistory)
		if !got.IsAmbiguous || got.Ambiguities[0].Type != models.AmbiguityTooBrief {
			t.Errorf("got %+v, want too_brief", got.Ambiguities)
		}
		if got.NeedsClarification {
			t.Error("too_brief alone must not force clarification")
		}
	})

	t.Run("multiple questions and complex logic", func(t *testing.T) {
		got := analyzer.DetectAmbiguity("is shipping free? and is pickup free or paid?", longHistory)
		types := make(map[string]bool)
		for _, amb := range got.Ambiguities {
			types[amb.Type] = true
		}
		if !types[models.AmbiguityMultipleQuestions] || !types[models.AmbiguityComplexLogic] {
			t.Errorf("got types %v, want multiple_questions and complex_logic", types)
		}
	})
}

func TestExtractEntities(t *testing.T) {
	analyzer := NewAnalyzer()

	got := analyzer.ExtractEntities(`Does the Annual Report mention "dark mode" for kube-proxy or camelCase tokens from 12/31/2024?`)

	if len(got.QuotedPhrases) != 1 || got.QuotedPhrases[0] != "dark mode" {
		t.Errorf("quoted = %v, want [dark mode]", got.QuotedPhrases)
	}
	foundReport := false
	for _, name := range got.PotentialNames {
		if name == "Annual Report" {
			foundReport = true
		}
	}
	if !foundReport {
		t.Errorf("potential names = %v, want Annual Report present", got.PotentialNames)
	}
	if len(got.Dates) != 1 || got.Dates[0] != "12/31/2024" {
		t.Errorf("dates = %v, want [12/31/2024]", got.Dates)
	}
	wantTech := map[string]bool{"kube-proxy": false, "camelCase": false}
	for _, term := range got.TechnicalTerms {
		if _, ok := wantTech[term]; ok {
			wantTech[term] = true
		}
	}
	for term, seen := range wantTech {
		if !seen {
			t.Errorf("technical terms = %v, missing %q", got.TechnicalTerms, term)
		}
	}
}

func TestAnalyzeRewritesFollowUp(t *testing.T) {
	analyzer := NewAnalyzer()
	history := []models.Message{
		{Role: models.RoleUser, Content: "What is the refund policy?"},
		{Role: models.RoleAssistant, Content: "Refunds are accepted within 30 days. See section 4 for details."},
	}

	got := analyzer.Analyze("What about exchanges?", history, 2)

	if !got.FollowUp.IsFollowUp {
		t.Fatal("expected follow-up")
	}
	if got.NeedsClarification {
		t.Fatal("unexpected clarification")
	}
	if !strings.HasPrefix(got.EnhancedQuery, "[Context: Previously asked: What is the refund policy?") {
		t.Errorf("enhanced query = %q", got.EnhancedQuery)
	}
	if !strings.Contains(got.EnhancedQuery, "Previously answered: Refunds are accepted within 30 days") {
		t.Errorf("enhanced query missing assistant context: %q", got.EnhancedQuery)
	}
	if !strings.HasSuffix(got.EnhancedQuery, "| Current question: What about exchanges?") {
		t.Errorf("enhanced query = %q", got.EnhancedQuery)
	}
}

func TestAnalyzeClarificationBlocksRewrite(t *testing.T) {
	analyzer := NewAnalyzer()
	history := []models.Message{
		{Role: models.RoleUser, Content: "hello"},
	}

	got := analyzer.Analyze("what about it?", history, 1)

	if !got.NeedsClarification {
		t.Fatal("expected clarification")
	}
	if got.EnhancedQuery != got.OriginalQuery {
		t.Errorf("query must not be rewritten when clarification is needed, got %q", got.EnhancedQuery)
	}
	if got.ClarificationPrompt == "" {
		t.Error("expected a clarification prompt")
	}
}
