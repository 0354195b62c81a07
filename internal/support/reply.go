package support

import (
	"fmt"
	"strings"

	"github.com/ashureev/support-chat/internal/domain"
)

const needMoreInfoReply = "Please describe the issue."

const escalationRequest = "To help resolve faster, please provide:\n" +
	"1) Exact error text\n" +
	"2) When it started\n" +
	"3) Screenshot (if available)\n" +
	"4) Device/browser/app version\n" +
	"5) Impact (how many users / blocked task)"

// formatSteps renders steps as a numbered list.
func formatSteps(steps []string) string {
	if len(steps) == 0 {
		return "No steps available."
	}
	lines := make([]string, len(steps))
	for i, s := range steps {
		lines[i] = fmt.Sprintf("%d. %s", i+1, s)
	}
	return strings.Join(lines, "\n")
}

func selfServeReply(issue *domain.Issue, score float64) string {
	return fmt.Sprintf("✅ Found a known fix: %s — %s (match %.2f)\n\n", issue.ID, issue.Title, score) +
		"Step-by-step:\n" + formatSteps(issue.ResolutionSteps) + "\n\n" +
		"Validate:\n" + formatSteps(issue.ValidationSteps) + "\n\n" +
		"If it’s still not working, reply with the exact error text (and screenshot if possible)."
}

func escalationReply(ticketID string, score float64) string {
	return fmt.Sprintf("🆕 I couldn’t find an exact match (best match %.2f).\n", score) +
		fmt.Sprintf("I created a support ticket: %s\n\n", ticketID) +
		escalationRequest
}

// TicketID derives the escalation ticket identifier from a session ID:
// CASE- followed by everything after the last '-'.
func TicketID(sessionID string) string {
	suffix := sessionID
	if i := strings.LastIndex(sessionID, "-"); i >= 0 {
		suffix = sessionID[i+1:]
	}
	return "CASE-" + suffix
}
