package plan

import (
	"encoding/json"

	"google.golang.org/genai"
)

// Schema returns the response schema sent with every plan request. A fresh
// value is built per call so callers may not mutate a shared instance.
//
// Only the fields the model is asked to produce are described. vin,
// detections, wiring and export are part of ConversionPlan but are never
// requested.
func Schema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"summary": {Type: genai.TypeString, Description: "A human-readable summary of the conversion plan."},
			"vehicle": object(
				props{"make": str(), "model": str(), "year": {Type: genai.TypeInteger}},
				"make", "model", "year",
			),
			"drivetrain": object(
				props{"motor": str(), "inverter": str(), "gearRatio": num()},
				"motor", "inverter", "gearRatio",
			),
			"battery": object(
				props{
					"chemistry":    enum(chemistryNames()...),
					"voltage":      num(),
					"capacity_kWh": num(),
					"packLayout":   str(),
				},
				"chemistry", "voltage", "capacity_kWh", "packLayout",
			),
			"safety": object(
				props{
					"standards": array(str()),
					"risks": array(object(
						props{"code": str(), "severity": enum(severityNames()...), "remediation": str()},
						"code", "severity", "remediation",
					)),
				},
				"standards", "risks",
			),
			"bom": array(object(
				props{"sku": str(), "qty": num(), "unitCost": num(), "description": str()},
				"sku", "qty", "unitCost", "description",
			)),
			"laborHours": num(),
			"cost": object(
				props{"parts": num(), "labor": num(), "overhead": num(), "total": num()},
				"parts", "labor", "total",
			),
		},
		PropertyOrdering: []string{"summary", "vehicle", "drivetrain", "battery", "safety", "bom", "laborHours", "cost"},
		Required:         []string{"summary", "vehicle", "drivetrain", "battery", "safety", "bom", "laborHours", "cost"},
	}
}

// SchemaJSON renders Schema as indented JSON, the form the REST transport
// sends as responseSchema.
func SchemaJSON() ([]byte, error) {
	return json.MarshalIndent(Schema(), "", "  ")
}

type props map[string]*genai.Schema

func object(properties props, required ...string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeObject, Properties: properties, Required: required}
}

func array(items *genai.Schema) *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Items: items}
}

func str() *genai.Schema { return &genai.Schema{Type: genai.TypeString} }
func num() *genai.Schema { return &genai.Schema{Type: genai.TypeNumber} }

func enum(values ...string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Format: "enum", Enum: values}
}

func chemistryNames() []string {
	out := make([]string, len(Chemistries))
	for i, c := range Chemistries {
		out[i] = string(c)
	}
	return out
}

func severityNames() []string {
	out := make([]string, len(Severities))
	for i, s := range Severities {
		out[i] = string(s)
	}
	return out
}
