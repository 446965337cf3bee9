package plan

import (
	"bytes"
	"encoding/json"
	"strings"

	"evai/internal/core"
)

// Body is a decoded plan response: top-level keys mapped to their raw,
// unmodified JSON values.
type Body map[string]json.RawMessage

// Decode parses model output text as a single JSON object. Surrounding
// whitespace and one Markdown code fence are tolerated. Any other deviation
// fails with core.ErrMalformedResponse and no body.
func Decode(text string) (Body, error) {
	const op = "plan.decode"

	payload := stripFence(strings.TrimSpace(text))
	if payload == "" {
		return nil, core.Malformed(op, nil, "empty response")
	}
	if payload[0] != '{' {
		return nil, core.Malformed(op, nil, "response is not a JSON object (starts with %q)", preview(payload))
	}

	var body Body
	if err := json.Unmarshal([]byte(payload), &body); err != nil {
		return nil, core.Malformed(op, err, "response is not valid JSON")
	}
	if body == nil {
		return nil, core.Malformed(op, nil, "response is not a JSON object")
	}
	return body, nil
}

// stripFence removes a single ```json ... ``` (or bare ```) wrapper.
func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	inner := s[3 : len(s)-3]
	if nl := strings.IndexByte(inner, '\n'); nl >= 0 {
		lang := strings.TrimSpace(inner[:nl])
		if lang == "" || strings.EqualFold(lang, "json") {
			inner = inner[nl+1:]
		}
	} else if rest, ok := strings.CutPrefix(inner, "json"); ok {
		inner = rest
	}
	return strings.TrimSpace(inner)
}

func preview(s string) string {
	const limit = 16
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}

// Has reports whether key is present with a non-null value.
func (b Body) Has(key string) bool {
	v, ok := b[key]
	return ok && !bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}
