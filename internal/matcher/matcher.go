// Package matcher scores free-text messages against knowledge-base issues
// by keyword overlap.
package matcher

import (
	"regexp"
	"strings"

	"github.com/ashureev/support-chat/internal/domain"
)

const (
	// DefaultThreshold is the minimum score treated as a confident match.
	DefaultThreshold = 0.22
	// DefaultFloor is the minimum denominator used to dampen short queries.
	DefaultFloor = 6
)

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// Tokenize lowercases text and returns its alphanumeric runs.
func Tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

func tokenSet(text string) map[string]struct{} {
	tokens := Tokenize(text)
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// Result is the outcome of matching one message against a set of issues.
type Result struct {
	Issue     *domain.Issue
	Score     float64
	Confident bool
}

// Matcher selects the best-scoring issue for a message.
type Matcher struct {
	Threshold float64
	Floor     int
}

// New creates a Matcher with the default threshold and floor.
func New() *Matcher {
	return &Matcher{Threshold: DefaultThreshold, Floor: DefaultFloor}
}

// Score returns |query ∩ issue| / max(Floor, |query|) over token sets.
func (m *Matcher) Score(query string, issue *domain.Issue) float64 {
	return m.score(tokenSet(query), issue)
}

func (m *Matcher) score(q map[string]struct{}, issue *domain.Issue) float64 {
	if len(q) == 0 {
		return 0
	}
	e := tokenSet(issue.SearchText())
	if len(e) == 0 {
		return 0
	}

	overlap := 0
	for t := range q {
		if _, ok := e[t]; ok {
			overlap++
		}
	}
	return float64(overlap) / float64(max(m.Floor, len(q)))
}

// Best returns the issue with the strictly highest score. Ties keep the
// earliest issue; if every score is zero no issue is returned.
func (m *Matcher) Best(query string, issues []domain.Issue) (*domain.Issue, float64) {
	q := tokenSet(query)

	var best *domain.Issue
	bestScore := 0.0
	for i := range issues {
		s := m.score(q, &issues[i])
		if s > bestScore {
			best = &issues[i]
			bestScore = s
		}
	}
	return best, bestScore
}

// Match runs Best and applies the confidence threshold.
func (m *Matcher) Match(query string, issues []domain.Issue) Result {
	issue, score := m.Best(query, issues)
	return Result{
		Issue:     issue,
		Score:     score,
		Confident: issue != nil && score >= m.Threshold,
	}
}
