package answer

import (
	"fmt"
	"strings"

	"github.com/hyperdocs/kotae/internal/models"
)

// Relevance categories reported by checkRelevance.
const (
	categoryUnrestricted = "unrestricted"
	categoryOrgSpecific  = "organization_specific"
	categoryOffTopic     = "off_topic"
	categoryDomain       = "domain_specific"
	categoryDocument     = "document_based"
	categoryBusiness     = "general_business"
	categoryUnrelated    = "unrelated"
)

// offTopicKeywords groups vocabulary that signals a query outside any
// business domain. A query counts a group at most once.
var offTopicKeywords = [][]string{
	{"weather", "recipe", "cooking", "sports", "entertainment", "celebrity", "movie", "music", "game"},
	{"personal advice", "dating", "relationship", "health diagnosis", "medical advice"},
	{"joke", "story", "poem", "creative writing", "roleplay"},
}

// domainRelatedTerms maps a domain keyword to everyday vocabulary that
// implies the query belongs to that domain.
var domainRelatedTerms = map[string][]string{
	"banking":    {"account", "loan", "credit", "debit", "transfer", "payment", "savings"},
	"insurance":  {"policy", "claim", "coverage", "premium", "benefit"},
	"healthcare": {"appointment", "doctor", "patient", "medical", "treatment", "diagnosis"},
	"retail":     {"product", "order", "purchase", "shipping", "return", "refund"},
	"technology": {"software", "app", "system", "feature", "bug", "update"},
	"education":  {"course", "student", "class", "enrollment", "grade", "assignment"},
}

// businessIndicators are query words suggesting the question could be
// answered from business documents.
var businessIndicators = map[string]bool{
	"what": true, "how": true, "when": true, "where": true, "who": true,
	"which": true, "price": true, "cost": true, "hours": true,
	"location": true, "service": true, "product": true, "policy": true,
	"process": true, "procedure": true, "requirement": true, "form": true,
	"application": true, "contact": true,
}

// relevanceCheck is the outcome of gating a query against an
// organization's domain.
type relevanceCheck struct {
	Relevant   bool
	Confidence float64
	Reason     string
	Category   string
}

// checkRelevance decides whether a query belongs to the organization's
// domain before any retrieval or generation runs. Organizations without
// a configured domain and without documents are unrestricted.
func checkRelevance(query string, org *models.OrgSnapshot) relevanceCheck {
	queryLower := strings.ToLower(query)
	orgName := strings.ToLower(org.Name)
	domain := strings.ToLower(org.Domain)
	industry := strings.ToLower(org.Industry)
	hasDomainContext := domain != "" || industry != ""

	if !hasDomainContext && len(org.Documents) == 0 {
		return relevanceCheck{
			Relevant:   true,
			Confidence: 0.5,
			Reason:     "No domain restrictions configured",
			Category:   categoryUnrestricted,
		}
	}

	if orgName != "" && strings.Contains(queryLower, orgName) {
		return relevanceCheck{
			Relevant:   true,
			Confidence: 0.9,
			Reason:     "Query mentions organization name",
			Category:   categoryOrgSpecific,
		}
	}

	offTopicScore := calculateOffTopicScore(queryLower)
	if offTopicScore > 0.7 {
		return relevanceCheck{
			Relevant:   false,
			Confidence: offTopicScore,
			Reason:     "Query appears unrelated to business domain",
			Category:   categoryOffTopic,
		}
	}

	if hasDomainContext {
		score, matched := domainRelevance(queryLower, domain, industry)
		if score > 0.6 {
			return relevanceCheck{
				Relevant:   true,
				Confidence: score,
				Reason:     fmt.Sprintf("Query relates to %s", matched),
				Category:   categoryDomain,
			}
		}
	}

	if len(org.Documents) > 0 {
		if score := documentRelevance(queryLower); score > 0.5 {
			return relevanceCheck{
				Relevant:   true,
				Confidence: score,
				Reason:     "Query may be answerable from uploaded documents",
				Category:   categoryDocument,
			}
		}
	}

	if offTopicScore < 0.4 {
		return relevanceCheck{
			Relevant:   true,
			Confidence: 0.6,
			Reason:     "Query appears business-related",
			Category:   categoryBusiness,
		}
	}

	return relevanceCheck{
		Relevant:   false,
		Confidence: 0.7,
		Reason:     "Query does not appear related to organization",
		Category:   categoryUnrelated,
	}
}

// calculateOffTopicScore is the fraction of off-topic keyword groups the
// query touches.
func calculateOffTopicScore(queryLower string) float64 {
	matched := 0
	for _, group := range offTopicKeywords {
		for _, keyword := range group {
			if strings.Contains(queryLower, keyword) {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(offTopicKeywords))
}

// domainRelevance scores the query against the organization's
// comma-separated domain and industry lists. Direct term mentions score
// 0.7 plus 0.1 per match; related vocabulary scores 0.6.
func domainRelevance(queryLower, domain, industry string) (float64, string) {
	var terms []string
	for _, raw := range strings.Split(domain+","+industry, ",") {
		if term := strings.TrimSpace(raw); term != "" {
			terms = append(terms, term)
		}
	}
	if len(terms) == 0 {
		return 0.5, "general"
	}

	matches := 0
	matchedTerm := ""
	for _, term := range terms {
		if strings.Contains(queryLower, term) {
			matches++
			matchedTerm = term
		}
	}
	if matches > 0 {
		score := 0.7 + float64(matches)*0.1
		if score > 1.0 {
			score = 1.0
		}
		return score, matchedTerm
	}

	for _, term := range terms {
		if termsRelated(queryLower, term) {
			return 0.6, term
		}
	}
	return 0.4, "general"
}

// termsRelated reports whether the query uses vocabulary associated with
// the domain term.
func termsRelated(queryLower, domainTerm string) bool {
	for domainKey, related := range domainRelatedTerms {
		if !strings.Contains(domainTerm, domainKey) {
			continue
		}
		for _, term := range related {
			if strings.Contains(queryLower, term) {
				return true
			}
		}
	}
	return false
}

// documentRelevance estimates whether the query could be answered from
// uploaded documents, from the count of business-indicator words.
func documentRelevance(queryLower string) float64 {
	count := 0
	for _, word := range strings.Fields(queryLower) {
		if businessIndicators[word] {
			count++
		}
	}
	if count > 0 {
		score := 0.5 + float64(count)*0.1
		if score > 0.9 {
			score = 0.9
		}
		return score
	}
	return 0.3
}

// offTopicResponse is the canned reply for queries the relevance gate
// rejected, steering the user back to the organization's domain.
func offTopicResponse(org *models.OrgSnapshot, check relevanceCheck) string {
	orgName := org.Name
	if orgName == "" {
		orgName = "our organization"
	}
	if check.Category == categoryOffTopic {
		if org.Domain != "" {
			return fmt.Sprintf("I'm a customer support assistant for %s, specializing in %s. "+
				"I'm here to help with questions related to our services and products. "+
				"How can I assist you with %s-related inquiries?", orgName, org.Domain, org.Domain)
		}
		return fmt.Sprintf("I'm a customer support assistant for %s. "+
			"I'm here to help with questions about our organization, services, and products. "+
			"Is there something specific about %s I can help you with?", orgName, orgName)
	}
	return fmt.Sprintf("I'm here to assist with questions about %s. "+
		"Could you please clarify how I can help you with our services?", orgName)
}
