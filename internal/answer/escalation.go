package answer

import (
	"strings"

	"github.com/hyperdocs/kotae/internal/models"
)

const escalationConfidenceFloor = 0.4

var specificInfoIndicators = []string{
	"my account", "my order", "my payment", "my subscription",
	"invoice", "transaction", "reference number", "order number",
}

var complaintWords = []string{
	"complaint", "complain", "unhappy", "disappointed", "frustrated",
	"angry", "terrible", "horrible", "worst", "unacceptable",
	"not satisfied", "poor service", "bad experience", "manager",
	"supervisor", "escalate",
}

var billingWords = []string{
	"refund", "charge", "charged", "billing", "payment", "invoice",
	"overcharged", "incorrect charge", "cancel subscription",
	"money back", "unauthorized",
}

var legalWords = []string{
	"legal", "lawyer", "attorney", "sue", "lawsuit", "court",
	"gdpr", "privacy violation", "data breach", "comply", "regulation",
}

var securityWords = []string{
	"hacked", "hack", "unauthorized access", "locked out",
	"cannot login", "can't access", "password reset", "security",
	"suspicious activity", "fraud", "stolen",
}

var technicalWords = []string{
	"integration", "api", "configuration", "setup", "not working",
	"error code", "system down", "technical problem",
}

// evaluateEscalation decides whether the query should be handed to a
// human agent, with an urgency and a suggested department. High-urgency
// categories override the department picked by earlier checks.
func evaluateEscalation(query string, confidence float64, sources []models.Source, analysis models.QueryAnalysis) *models.Escalation {
	q := strings.ToLower(query)
	var reasons []string
	urgency := "low"
	department := "general_support"

	if confidence < escalationConfidenceFloor {
		reasons = append(reasons, "Low confidence in automated response")
		urgency = "medium"
	}
	if len(sources) == 0 && containsAny(q, specificInfoIndicators) {
		reasons = append(reasons, "No relevant information available")
		urgency = "medium"
	}
	if containsAny(q, complaintWords) {
		reasons = append(reasons, "Customer complaint detected")
		urgency = "high"
		department = "customer_relations"
	}
	if containsAny(q, billingWords) {
		reasons = append(reasons, "Billing or refund request")
		urgency = "high"
		department = "billing"
	}
	if containsAny(q, legalWords) {
		reasons = append(reasons, "Legal or compliance matter")
		urgency = "high"
		department = "legal"
	}
	if containsAny(q, securityWords) {
		reasons = append(reasons, "Security or account access issue")
		urgency = "high"
		department = "security"
	}
	if containsAny(q, technicalWords) && urgency != "high" {
		reasons = append(reasons, "Complex technical issue")
		urgency = "medium"
		department = "technical_support"
	}

	if len(reasons) == 0 {
		return &models.Escalation{ShouldEscalate: false}
	}
	return &models.Escalation{
		ShouldEscalate: true,
		Urgency:        urgency,
		Department:     department,
		Reasons:        reasons,
	}
}
