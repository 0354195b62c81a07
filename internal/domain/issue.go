// Package domain contains core domain types for the support chat service.
package domain

import "strings"

// Issue is a knowledge-base record describing a known problem and its fix.
type Issue struct {
	ID              string   `json:"issue_id"`
	Title           string   `json:"title"`
	ProductArea     string   `json:"product_area"`
	Keywords        []string `json:"symptoms_keywords"`
	Tags            []string `json:"tags"`
	ResolutionSteps []string `json:"resolution_steps"`
	ValidationSteps []string `json:"validation_steps"`
}

// SearchText returns the text fields the matcher scores against:
// title, product area, keywords and tags, space separated.
func (i *Issue) SearchText() string {
	return strings.Join([]string{
		i.Title,
		i.ProductArea,
		strings.Join(i.Keywords, " "),
		strings.Join(i.Tags, " "),
	}, " ")
}
