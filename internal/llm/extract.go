package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractionError reports a failure to locate or parse structured data inside
// a model response. Callers treat it as a stage failure subject to the stage's
// fallback policy.
type ExtractionError struct {
	Reason string
	Raw    string // The raw model output, truncated for logging
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("structured output extraction failed: %s", e.Reason)
}

const rawSnippetLen = 200

func extractionErr(reason, raw string) *ExtractionError {
	if len(raw) > rawSnippetLen {
		raw = raw[:rawSnippetLen]
	}
	return &ExtractionError{Reason: reason, Raw: raw}
}

// ExtractJSON locates the first balanced JSON object or array inside raw model
// output and unmarshals it into v. Markdown code fences around the payload are
// tolerated, as is prose before and after it.
func ExtractJSON(raw string, v any) error {
	payload, err := firstJSONValue(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return extractionErr(fmt.Sprintf("invalid JSON: %v", err), raw)
	}
	return nil
}

// firstJSONValue scans for the first '{' or '[' and returns the substring up
// to its balanced closing delimiter, skipping delimiters inside strings.
func firstJSONValue(raw string) (string, error) {
	s := stripFences(raw)

	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return "", extractionErr("no JSON object or array found", raw)
	}

	open := s[start]
	var closer byte = '}'
	if open == '[' {
		closer = ']'
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
			// String contents never affect nesting.
		case c == open:
			depth++
		case c == closer:
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}
	return "", extractionErr("unbalanced JSON delimiters", raw)
}

// stripFences removes a surrounding markdown code fence if present.
func stripFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return s
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	// Drop an optional language tag on the fence line.
	if idx := strings.IndexByte(trimmed, '\n'); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return trimmed
}
