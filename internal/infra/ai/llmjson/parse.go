// Package llmjson turns raw model completions into JSON values.
package llmjson

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	"github.com/hjson/hjson-go/v4"

	"github.com/bryanwahyu/rfp-manager/internal/domain/ai"
)

// Parse strips code fences, parses the completion and unwraps arrays to their
// first element. Clean JSON is returned exactly as encoding/json decodes it.
// Text that is not valid JSON goes through lenient fallbacks only when it holds
// a closed object or array; truncated output is ai.ErrMalformedResponse.
func Parse(raw string) (any, error) {
	text := strings.TrimSpace(StripFences(raw))
	if text == "" {
		return nil, fmt.Errorf("%w: blank completion", ai.ErrMalformedResponse)
	}

	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		recovered, ok := recoverJSON(text)
		if !ok {
			return nil, fmt.Errorf("%w: %v", ai.ErrMalformedResponse, err)
		}
		v = recovered
	}

	if arr, ok := v.([]any); ok {
		if len(arr) == 0 {
			return nil, ai.ErrEmptyResponse
		}
		return arr[0], nil
	}
	return v, nil
}

// StripFences removes markdown code fence delimiters.
func StripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```JSON", "")
	return strings.ReplaceAll(s, "```", "")
}

func recoverJSON(text string) (any, bool) {
	inner := outermost(text)
	if !closed(inner) {
		return nil, false
	}
	if inner != text {
		var v any
		if json.Unmarshal([]byte(inner), &v) == nil {
			return v, true
		}
		text = inner
	}

	// hjson accepts unquoted keys, comments and trailing commas
	var h any
	if hjson.Unmarshal([]byte(text), &h) == nil {
		if v, ok := normalize(h); ok {
			return v, true
		}
	}

	repaired, err := jsonrepair.RepairJSON(text)
	if err != nil {
		return nil, false
	}
	var v any
	if json.Unmarshal([]byte(repaired), &v) != nil {
		return nil, false
	}
	return v, isContainer(v)
}

// outermost returns the span from the first '{' or '[' to the last '}' or ']'.
func outermost(s string) string {
	start := strings.IndexAny(s, "{[")
	end := strings.LastIndexAny(s, "}]")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

// closed reports whether every bracket in s outside string literals is
// matched, so a completion cut off mid-object is never repaired into data.
func closed(s string) bool {
	if s == "" {
		return false
	}
	var stack []byte
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			stack = append(stack, c)
		case '}', ']':
			if len(stack) == 0 {
				return false
			}
			open := stack[len(stack)-1]
			if (c == '}' && open != '{') || (c == ']' && open != '[') {
				return false
			}
			stack = stack[:len(stack)-1]
		}
	}
	return len(stack) == 0 && !inString
}

func normalize(v any) (any, bool) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	var out any
	if json.Unmarshal(b, &out) != nil {
		return nil, false
	}
	return out, isContainer(out)
}

func isContainer(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return true
	}
	return false
}
