package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValid(t *testing.T) {
	text := "```json\n" + `{"topics": ["government regulation & policy", "Unknown Topic", "Government Regulation & Policy"],
"summary": "  One. Two. Three.  ", "relevance_score": 0.75}` + "\n```"

	cls, err := Parse(text, vocabulary)
	require.NoError(t, err)
	assert.Equal(t, []string{"Government Regulation & Policy"}, cls.Topics, "normalized single topic")
	assert.Equal(t, "One. Two. Three.", cls.Summary)
	assert.Equal(t, 0.75, cls.Relevance)
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"not json", "I think this is relevant"},
		{"empty", ""},
		{"missing score", `{"topics": ["Startups & Ecosystem"], "summary": "x"}`},
		{"score above one", `{"topics": ["Startups & Ecosystem"], "summary": "x", "relevance_score": 1.5}`},
		{"negative score", `{"topics": ["Startups & Ecosystem"], "summary": "x", "relevance_score": -0.1}`},
		{"no vocabulary topics", `{"topics": ["Sports"], "summary": "x", "relevance_score": 0.9}`},
		{"no topics", `{"topics": [], "summary": "x", "relevance_score": 0.9}`},
		{"empty summary", `{"topics": ["Startups & Ecosystem"], "summary": " ", "relevance_score": 0.9}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.text, vocabulary)
			assert.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}

func TestParseBoundaryScores(t *testing.T) {
	for _, text := range []string{
		`{"topics": ["Startups & Ecosystem"], "summary": "x", "relevance_score": 0}`,
		`{"topics": ["Startups & Ecosystem"], "summary": "x", "relevance_score": 1}`,
	} {
		_, err := Parse(text, vocabulary)
		assert.NoError(t, err, text)
	}
}
