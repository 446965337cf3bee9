package grounding

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize_MixedChunks(t *testing.T) {
	raw := json.RawMessage(`[
		{"web": {"uri": "https://nfpa.org/70", "title": "NFPA 70"}},
		{"maps": {"uri": "https://maps.google.com/?cid=1", "title": "EV Garage",
			"placeAnswerSources": {"reviewSnippets": [
				{"uri": "https://maps.google.com/review/1", "title": "Great shop"},
				{"uri": "https://maps.google.com/review/2", "title": "Fast"}
			]}}},
		{"retrievedContext": {"text": "no link here"}},
		"not an object"
	]`)

	got := Normalize(raw)

	assert.Equal(t, []Citation{
		{URI: "https://nfpa.org/70", Title: "NFPA 70"},
		{URI: "https://maps.google.com/?cid=1", Title: "EV Garage"},
	}, got)
}

func TestNormalize_WebWinsOverMaps(t *testing.T) {
	raw := json.RawMessage(`[{"web": {"uri": "https://a", "title": "A"}, "maps": {"uri": "https://b", "title": "B"}}]`)
	assert.Equal(t, []Citation{{URI: "https://a", Title: "A"}}, Normalize(raw))
}

func TestNormalize_FallsBackWhenWebHasNoURI(t *testing.T) {
	raw := json.RawMessage(`[{"web": {"title": "orphan"}, "maps": {"uri": "https://b", "title": "B"}}]`)
	assert.Equal(t, []Citation{{URI: "https://b", Title: "B"}}, Normalize(raw))
}

func TestNormalize_DropsUnusable(t *testing.T) {
	cases := map[string]string{
		"empty uri":       `[{"web": {"uri": "", "title": "x"}}]`,
		"numeric uri":     `[{"web": {"uri": 42, "title": "x"}}]`,
		"web not object":  `[{"web": "https://x"}]`,
		"null entry":      `[null]`,
		"nested array":    `[[{"web": {"uri": "https://x"}}]]`,
		"empty array":     `[]`,
		"not an array":    `{"web": {"uri": "https://x"}}`,
		"invalid json":    `[{"web":`,
		"no input at all": ``,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Empty(t, Normalize(json.RawMessage(raw)))
		})
	}
}

func TestNormalize_MissingTitleIsEmpty(t *testing.T) {
	got := Normalize(json.RawMessage(`[{"web": {"uri": "https://x"}}]`))
	assert.Equal(t, []Citation{{URI: "https://x"}}, got)
}
