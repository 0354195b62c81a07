// Package support implements the support chat pipeline: session tracking,
// knowledge base matching and reply assembly.
package support

import (
	"github.com/ashureev/support-chat/internal/domain"
)

// ChatRequest is an inbound customer message.
type ChatRequest struct {
	SessionID  *string        `json:"session_id,omitempty"`
	CustomerID *string        `json:"customer_id,omitempty"`
	Message    *string        `json:"message"`
	Context    map[string]any `json:"context,omitempty"`
}

// ChatResponse is the reply to a ChatRequest.
type ChatResponse struct {
	SessionID      string        `json:"session_id"`
	Status         domain.Status `json:"status"`
	Reply          string        `json:"reply"`
	MatchedIssueID string        `json:"matched_issue_id,omitempty"`
	MatchScore     float64       `json:"match_score"`
}
