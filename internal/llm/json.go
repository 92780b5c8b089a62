package llm

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrEmptyResponse is returned by DecodeJSON for blank model output.
var ErrEmptyResponse = errors.New("empty response")

// DecodeJSON unmarshals a model's JSON answer into v. Markdown code fences and
// prose around the outermost object are ignored.
func DecodeJSON(text string, v any) error {
	text = strings.TrimSpace(stripFences(text))
	if text == "" {
		return ErrEmptyResponse
	}

	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start >= 0 && end > start {
		text = text[start : end+1]
	}
	return json.Unmarshal([]byte(text), v)
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	end := len(lines)
	for i := len(lines) - 1; i > 0; i-- {
		if strings.TrimSpace(lines[i]) == "```" {
			end = i
			break
		}
	}
	return strings.Join(lines[1:end], "\n")
}
