package answer

import (
	"math"
	"strings"
	"testing"

	"github.com/hyperdocs/kotae/internal/models"
)

func TestCheckRelevance(t *testing.T) {
	withDocs := []models.Document{{ID: "doc1", Filename: "policies.pdf"}}

	tests := []struct {
		name         string
		query        string
		org          *models.OrgSnapshot
		wantRelevant bool
		wantCategory string
	}{
		{
			name:         "no domain and no documents is unrestricted",
			query:        "tell me a joke",
			org:          &models.OrgSnapshot{ID: "acme", Name: "Acme Corp"},
			wantRelevant: true,
			wantCategory: categoryUnrestricted,
		},
		{
			name:         "mentioning the organization always passes",
			query:        "does acme corp sponsor cooking shows?",
			org:          &models.OrgSnapshot{ID: "acme", Name: "Acme Corp", Documents: withDocs},
			wantRelevant: true,
			wantCategory: categoryOrgSpecific,
		},
		{
			name:         "clearly off-topic query is rejected",
			query:        "tell me a joke or story about dating and the weather",
			org:          &models.OrgSnapshot{ID: "acme", Name: "Acme Corp", Documents: withDocs},
			wantRelevant: false,
			wantCategory: categoryOffTopic,
		},
		{
			name:         "direct domain term match",
			query:        "do you offer travel insurance for families?",
			org:          &models.OrgSnapshot{ID: "acme", Name: "Acme Corp", Domain: "insurance"},
			wantRelevant: true,
			wantCategory: categoryDomain,
		},
		{
			name:         "related vocabulary alone falls through to business",
			query:        "I must file a claim for my car",
			org:          &models.OrgSnapshot{ID: "acme", Name: "Acme Corp", Industry: "insurance"},
			wantRelevant: true,
			wantCategory: categoryBusiness,
		},
		{
			name:         "business indicators point at documents",
			query:        "summarize the leave policy please",
			org:          &models.OrgSnapshot{ID: "acme", Name: "Acme Corp", Documents: withDocs},
			wantRelevant: true,
			wantCategory: categoryDocument,
		},
		{
			name:         "plain business query passes without indicators",
			query:        "I need help with my recent complaint",
			org:          &models.OrgSnapshot{ID: "acme", Name: "Acme Corp", Documents: withDocs},
			wantRelevant: true,
			wantCategory: categoryBusiness,
		},
		{
			name:         "partly off-topic query with nothing else is rejected",
			query:        "recommend a movie about dating",
			org:          &models.OrgSnapshot{ID: "acme", Name: "Acme Corp", Domain: "banking"},
			wantRelevant: false,
			wantCategory: categoryUnrelated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := checkRelevance(tt.query, tt.org)
			if check.Relevant != tt.wantRelevant {
				t.Errorf("Relevant = %v, want %v (reason %q)", check.Relevant, tt.wantRelevant, check.Reason)
			}
			if check.Category != tt.wantCategory {
				t.Errorf("Category = %q, want %q", check.Category, tt.wantCategory)
			}
			if check.Confidence <= 0 || check.Confidence > 1 {
				t.Errorf("Confidence = %v, want within (0, 1]", check.Confidence)
			}
		})
	}
}

func TestCalculateOffTopicScore(t *testing.T) {
	tests := []struct {
		query string
		want  float64
	}{
		{"what is the refund policy", 0},
		{"what is the weather today", 1.0 / 3.0},
		{"tell me a joke about the weather", 2.0 / 3.0},
		{"tell me a joke or story about dating and the weather", 1},
	}
	for _, tt := range tests {
		if got := calculateOffTopicScore(tt.query); got != tt.want {
			t.Errorf("calculateOffTopicScore(%q) = %v, want %v", tt.query, got, tt.want)
		}
	}
}

func TestDomainRelevanceScoring(t *testing.T) {
	score, matched := domainRelevance("do you offer pet insurance and health insurance", "insurance", "")
	if math.Abs(score-0.8) > 1e-9 {
		t.Errorf("direct match score = %v, want 0.8", score)
	}
	if matched != "insurance" {
		t.Errorf("matched term = %q, want insurance", matched)
	}

	score, _ = domainRelevance("how do i check my savings account", "banking", "")
	if score != 0.6 {
		t.Errorf("related vocabulary score = %v, want 0.6", score)
	}

	score, _ = domainRelevance("random unrelated text", "banking", "")
	if score != 0.4 {
		t.Errorf("unmatched score = %v, want 0.4", score)
	}
}

func TestOffTopicResponseMentionsDomain(t *testing.T) {
	org := &models.OrgSnapshot{ID: "acme", Name: "Acme Corp", Domain: "insurance"}
	resp := offTopicResponse(org, relevanceCheck{Category: categoryOffTopic})
	if !strings.Contains(resp, "Acme Corp") || !strings.Contains(resp, "insurance") {
		t.Errorf("response = %q, want organization and domain named", resp)
	}

	bare := offTopicResponse(&models.OrgSnapshot{ID: "acme"}, relevanceCheck{Category: categoryUnrelated})
	if !strings.Contains(bare, "our organization") {
		t.Errorf("response = %q, want generic organization fallback", bare)
	}
}
