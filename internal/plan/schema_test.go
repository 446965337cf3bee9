package plan

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestSchema_TopLevel(t *testing.T) {
	s := Schema()

	assert.Equal(t, genai.TypeObject, s.Type)
	assert.Equal(t,
		[]string{"summary", "vehicle", "drivetrain", "battery", "safety", "bom", "laborHours", "cost"},
		s.Required)
	assert.Len(t, s.Properties, 8)
	assert.NotContains(t, s.Properties, "citations")
	assert.NotContains(t, s.Properties, "detections")
}

func TestSchema_EnumsAndOptionalFields(t *testing.T) {
	s := Schema()

	assert.Equal(t, []string{"LFP", "NMC", "LTO"}, s.Properties["battery"].Properties["chemistry"].Enum)

	risk := s.Properties["safety"].Properties["risks"].Items
	assert.Equal(t, []string{"LOW", "MEDIUM", "HIGH"}, risk.Properties["severity"].Enum)

	cost := s.Properties["cost"]
	assert.Contains(t, cost.Properties, "overhead")
	assert.NotContains(t, cost.Required, "overhead")

	assert.Equal(t, genai.TypeInteger, s.Properties["vehicle"].Properties["year"].Type)
}

func TestSchema_FreshValuePerCall(t *testing.T) {
	a := Schema()
	a.Required = nil
	a.Properties["summary"].Type = genai.TypeNumber

	b := Schema()
	assert.Len(t, b.Required, 8)
	assert.Equal(t, genai.TypeString, b.Properties["summary"].Type)
}

func TestSchemaJSON(t *testing.T) {
	data, err := SchemaJSON()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "OBJECT", decoded["type"])
	assert.Contains(t, decoded, "properties")
}
