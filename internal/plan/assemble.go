package plan

import (
	"encoding/json"
	"math"

	"evai/internal/grounding"
)

// Assemble builds a ConversionPlan from a decoded body and its citations.
// It never fails: a value that cannot be read as its field's type is left
// absent, and validation is a separate step (see Validate). Assemble is pure;
// the same inputs always give structurally equal plans.
func Assemble(body Body, citations []grounding.Citation) *ConversionPlan {
	f := fields(body)
	p := &ConversionPlan{
		Summary:    f.str("summary"),
		LaborHours: f.num("laborHours"),
		Wiring:     f.strs("wiring"),
	}

	if v, ok := f.object("vehicle"); ok {
		p.Vehicle = &Vehicle{
			VIN:   v.str("vin"),
			Make:  v.str("make"),
			Model: v.str("model"),
			Year:  v.integer("year"),
		}
	}
	if d, ok := f.object("drivetrain"); ok {
		p.Drivetrain = &Drivetrain{
			Motor:     d.str("motor"),
			Inverter:  d.str("inverter"),
			GearRatio: d.num("gearRatio"),
		}
	}
	if b, ok := f.object("battery"); ok {
		p.Battery = &Battery{
			Chemistry:   Chemistry(b.str("chemistry")),
			Voltage:     b.num("voltage"),
			CapacityKWh: b.num("capacity_kWh"),
			PackLayout:  b.str("packLayout"),
		}
	}
	if s, ok := f.object("safety"); ok {
		p.Safety = &Safety{Standards: s.strs("standards")}
		if risks, ok := s.objects("risks"); ok {
			p.Safety.Risks = make([]SafetyRisk, 0, len(risks))
			for _, r := range risks {
				p.Safety.Risks = append(p.Safety.Risks, SafetyRisk{
					Code:        r.str("code"),
					Severity:    Severity(r.str("severity")),
					Remediation: r.str("remediation"),
				})
			}
		}
	}
	if items, ok := f.objects("bom"); ok {
		p.BOM = make([]BOMItem, 0, len(items))
		for _, it := range items {
			p.BOM = append(p.BOM, BOMItem{
				SKU:         it.str("sku"),
				Qty:         it.num("qty"),
				UnitCost:    it.num("unitCost"),
				Description: it.str("description"),
			})
		}
	}
	if c, ok := f.object("cost"); ok {
		p.Cost = &Cost{
			Parts:    c.num("parts"),
			Labor:    c.num("labor"),
			Overhead: c.num("overhead"),
			Total:    c.num("total"),
		}
	}
	if dets, ok := f.objects("detections"); ok {
		p.Detections = make([]Detection, 0, len(dets))
		for _, d := range dets {
			p.Detections = append(p.Detections, Detection{
				Label:      d.str("label"),
				Confidence: d.num("confidence"),
				Geometry:   d.raw("geometry"),
			})
		}
	}
	if e, ok := f.object("export"); ok {
		p.Export = &Export{PDFURI: e.str("pdfUri"), JSONURI: e.str("jsonUri")}
	}

	if len(citations) > 0 {
		p.Citations = append([]grounding.Citation(nil), citations...)
	}
	return p
}

// fields is a JSON object split one level deep.
type fields map[string]json.RawMessage

func (f fields) object(key string) (fields, bool) {
	raw, ok := f[key]
	if !ok {
		return nil, false
	}
	var out fields
	if err := json.Unmarshal(raw, &out); err != nil || out == nil {
		return nil, false
	}
	return out, true
}

// objects reads an array and keeps only its object elements.
func (f fields) objects(key string) ([]fields, bool) {
	raw, ok := f[key]
	if !ok {
		return nil, false
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil || elems == nil {
		return nil, false
	}
	out := make([]fields, 0, len(elems))
	for _, e := range elems {
		var obj fields
		if json.Unmarshal(e, &obj) == nil && obj != nil {
			out = append(out, obj)
		}
	}
	return out, true
}

func (f fields) str(key string) string {
	var s string
	if raw, ok := f[key]; ok && json.Unmarshal(raw, &s) == nil {
		return s
	}
	return ""
}

// strs reads an array of strings, skipping non-string and null elements. A present
// array always yields a non-nil slice.
func (f fields) strs(key string) []string {
	raw, ok := f[key]
	if !ok {
		return nil
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil || elems == nil {
		return nil
	}
	out := make([]string, 0, len(elems))
	for _, e := range elems {
		var s *string
		if json.Unmarshal(e, &s) == nil && s != nil {
			out = append(out, *s)
		}
	}
	return out
}

func (f fields) num(key string) *float64 {
	raw, ok := f[key]
	if !ok {
		return nil
	}
	var n *float64
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil
	}
	return n
}

// integer accepts any JSON number with an integral value (2019 or 2019.0).
func (f fields) integer(key string) *int {
	n := f.num(key)
	if n == nil || *n != math.Trunc(*n) || math.Abs(*n) > math.MaxInt32 {
		return nil
	}
	i := int(*n)
	return &i
}

func (f fields) raw(key string) json.RawMessage {
	raw, ok := f[key]
	if !ok || string(raw) == "null" {
		return nil
	}
	return append(json.RawMessage(nil), raw...)
}
