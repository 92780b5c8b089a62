package classify

import (
	"fmt"
	"strings"

	"github.com/TobiSchelling/TechBrief/internal/llm"
)

// Classification is the validated model verdict for one candidate.
type Classification struct {
	Topics    []string
	Summary   string
	Relevance float64
}

type rawClassification struct {
	Topics         []string `json:"topics"`
	Summary        string   `json:"summary"`
	RelevanceScore *float64 `json:"relevance_score"`
}

// Parse decodes a model answer. Topics outside vocabulary are dropped and
// the rest are normalized to the vocabulary's spelling. The answer is
// rejected with ErrMalformedResponse when no topic survives, the summary is
// empty, or the relevance score is missing or outside [0, 1].
func Parse(text string, vocabulary []string) (*Classification, error) {
	var raw rawClassification
	if err := llm.DecodeJSON(text, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if raw.RelevanceScore == nil {
		return nil, fmt.Errorf("%w: missing relevance_score", ErrMalformedResponse)
	}
	score := *raw.RelevanceScore
	if score < 0 || score > 1 {
		return nil, fmt.Errorf("%w: relevance_score %v outside [0, 1]", ErrMalformedResponse, score)
	}

	summary := strings.TrimSpace(raw.Summary)
	if summary == "" {
		return nil, fmt.Errorf("%w: empty summary", ErrMalformedResponse)
	}

	topics := matchVocabulary(raw.Topics, vocabulary)
	if len(topics) == 0 {
		return nil, fmt.Errorf("%w: no topics from vocabulary in %v", ErrMalformedResponse, raw.Topics)
	}

	return &Classification{Topics: topics, Summary: summary, Relevance: score}, nil
}

func matchVocabulary(topics, vocabulary []string) []string {
	canonical := make(map[string]string, len(vocabulary))
	for _, v := range vocabulary {
		canonical[strings.ToLower(strings.TrimSpace(v))] = v
	}

	var out []string
	seen := make(map[string]struct{})
	for _, t := range topics {
		v, ok := canonical[strings.ToLower(strings.TrimSpace(t))]
		if !ok {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
