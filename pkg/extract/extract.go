// Package extract pulls JSON payloads out of free-form model replies.
// Models wrap structured output in code fences, prose, or both; the
// helpers here strip that wrapping down to something json.Unmarshal can
// work with.
package extract

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	fenceOpen  = regexp.MustCompile("(?m)^```[a-zA-Z0-9]*")
	fenceClose = regexp.MustCompile("\\s*```$")
)

// StripCodeFence removes a surrounding triple-backtick fence, including an
// optional language tag, leaving the interior text.
func StripCodeFence(text string) string {
	cleaned := fenceOpen.ReplaceAllString(text, "")
	cleaned = fenceClose.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}

// FirstJSONObject returns the span from the first '{' to the last '}' in
// text. If no such span exists, the trimmed input is returned unchanged.
func FirstJSONObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(text[start : end+1])
}

// Decode unmarshals a model reply into v, trying progressively more
// aggressive cleanup: the raw text, then the fence-stripped text, then the
// first JSON object span. Returns the last unmarshal error if nothing
// parses.
func Decode(raw string, v any) error {
	candidate := strings.TrimSpace(raw)
	err := json.Unmarshal([]byte(candidate), v)
	if err == nil {
		return nil
	}

	candidate = StripCodeFence(candidate)
	if unmarshalErr := json.Unmarshal([]byte(candidate), v); unmarshalErr == nil {
		return nil
	}

	candidate = FirstJSONObject(candidate)
	return json.Unmarshal([]byte(candidate), v)
}
