package matcher

import (
	"strings"
	"testing"

	"github.com/ashureev/support-chat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleIssues() []domain.Issue {
	return []domain.Issue{
		{
			ID:          "KB-001",
			Title:       "Login loop after password reset",
			ProductArea: "Accounts",
			Keywords:    []string{"login", "loop", "password", "reset"},
			Tags:        []string{"auth"},
		},
		{
			ID:          "KB-002",
			Title:       "Invoice PDF export",
			ProductArea: "Billing",
			Keywords:    []string{"invoice", "pdf", "export", "broken"},
			Tags:        []string{"billing"},
		},
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"lowercases", "PDF Export", []string{"pdf", "export"}},
		{"splits on punctuation", "can't log-in (v2.1)!", []string{"can", "t", "log", "in", "v2", "1"}},
		{"empty", "", nil},
		{"only punctuation", "?!.,", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.in))
		})
	}
}

func TestScoreInvoiceScenario(t *testing.T) {
	m := New()
	issues := sampleIssues()

	score := m.Score("my invoice pdf export is broken", &issues[1])
	assert.InDelta(t, 4.0/6.0, score, 1e-12)
}

func TestScoreUsesQueryLengthAboveFloor(t *testing.T) {
	m := New()
	issues := sampleIssues()

	// 8 unique tokens, 4 of them in the corpus.
	score := m.Score("invoice pdf export broken one two three four", &issues[1])
	assert.InDelta(t, 0.5, score, 1e-12)
}

func TestScoreDeduplicatesQueryTokens(t *testing.T) {
	m := New()
	issues := sampleIssues()

	assert.Equal(t, m.Score("invoice", &issues[1]), m.Score("invoice invoice INVOICE", &issues[1]))
}

func TestScoreEmptyInputs(t *testing.T) {
	m := New()
	issues := sampleIssues()

	assert.Zero(t, m.Score("   ", &issues[0]))
	assert.Zero(t, m.Score("login", &domain.Issue{ID: "empty"}))
}

func TestScoreIsBounded(t *testing.T) {
	m := New()
	issue := domain.Issue{Title: strings.Repeat("alpha beta gamma delta epsilon zeta eta theta ", 3)}

	for _, q := range []string{
		"alpha",
		"alpha beta gamma delta epsilon zeta",
		"alpha beta gamma delta epsilon zeta eta theta",
		"alpha alpha alpha unrelated",
	} {
		s := m.Score(q, &issue)
		assert.GreaterOrEqual(t, s, 0.0, q)
		assert.LessOrEqual(t, s, 1.0, q)
	}
	assert.Equal(t, 1.0, m.Score("alpha beta gamma delta epsilon zeta eta theta", &issue))
}

func TestBestPicksHighestAndKeepsFirstOnTie(t *testing.T) {
	m := New()
	issues := []domain.Issue{
		{ID: "A", Keywords: []string{"sync"}},
		{ID: "B", Keywords: []string{"sync"}},
		{ID: "C", Keywords: []string{"sync", "calendar"}},
	}

	best, score := m.Best("sync", issues)
	require.NotNil(t, best)
	assert.Equal(t, "A", best.ID)
	assert.InDelta(t, 1.0/6.0, score, 1e-12)

	best, _ = m.Best("calendar sync", issues)
	require.NotNil(t, best)
	assert.Equal(t, "C", best.ID)
}

func TestBestNoOverlap(t *testing.T) {
	best, score := New().Best("asdfqwerty nonsense gibberish", sampleIssues())
	assert.Nil(t, best)
	assert.Zero(t, score)
}

func TestMatchThreshold(t *testing.T) {
	m := New()
	issues := sampleIssues()

	res := m.Match("my invoice pdf export is broken", issues)
	require.True(t, res.Confident)
	assert.Equal(t, "KB-002", res.Issue.ID)

	// One overlapping token: 1/6 < 0.22.
	res = m.Match("invoice", issues)
	assert.False(t, res.Confident)
	require.NotNil(t, res.Issue)
	assert.Equal(t, "KB-002", res.Issue.ID)

	// Exactly at the threshold is accepted.
	m.Threshold = 1.0 / 6.0
	assert.True(t, m.Match("invoice", issues).Confident)
}

func TestMatchCustomFloor(t *testing.T) {
	m := &Matcher{Threshold: DefaultThreshold, Floor: 1}
	issues := sampleIssues()

	res := m.Match("invoice", issues)
	assert.True(t, res.Confident)
	assert.Equal(t, 1.0, res.Score)
}

func TestMatchIsDeterministic(t *testing.T) {
	m := New()
	issues := sampleIssues()

	first := m.Match("password reset login loop", issues)
	for i := 0; i < 10; i++ {
		got := m.Match("password reset login loop", issues)
		assert.Equal(t, first.Score, got.Score)
		assert.Equal(t, first.Issue.ID, got.Issue.ID)
	}
}
