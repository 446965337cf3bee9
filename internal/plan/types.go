// Package plan defines the EV conversion plan document and the steps that
// turn raw model output into one: decode, assemble, validate.
package plan

import (
	"encoding/json"

	"evai/internal/grounding"
)

// Chemistry is a battery cell chemistry.
type Chemistry string

const (
	ChemistryLFP Chemistry = "LFP"
	ChemistryNMC Chemistry = "NMC"
	ChemistryLTO Chemistry = "LTO"
)

// Chemistries lists the accepted battery chemistries in schema order.
var Chemistries = []Chemistry{ChemistryLFP, ChemistryNMC, ChemistryLTO}

// Severity grades a safety risk.
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// Severities lists the accepted risk severities in schema order.
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh}

// ConversionPlan is the structured proposal produced per plan request.
// Sections and numbers are pointers so a field the model omitted (or sent
// with the wrong type) stays distinguishable from a real zero.
type ConversionPlan struct {
	Summary    string      `json:"summary" yaml:"summary"`
	Vehicle    *Vehicle    `json:"vehicle,omitempty" yaml:"vehicle,omitempty"`
	Detections []Detection `json:"detections,omitempty" yaml:"detections,omitempty"`
	Drivetrain *Drivetrain `json:"drivetrain,omitempty" yaml:"drivetrain,omitempty"`
	Battery    *Battery    `json:"battery,omitempty" yaml:"battery,omitempty"`
	Wiring     []string    `json:"wiring,omitempty" yaml:"wiring,omitempty"`
	Safety     *Safety     `json:"safety,omitempty" yaml:"safety,omitempty"`
	BOM        []BOMItem   `json:"bom" yaml:"bom"`
	LaborHours *float64    `json:"laborHours,omitempty" yaml:"laborHours,omitempty"`
	Cost       *Cost       `json:"cost,omitempty" yaml:"cost,omitempty"`
	Export     *Export     `json:"export,omitempty" yaml:"export,omitempty"`

	Citations []grounding.Citation `json:"citations,omitempty" yaml:"citations,omitempty"`
}

type Vehicle struct {
	VIN   string `json:"vin,omitempty" yaml:"vin,omitempty"`
	Make  string `json:"make" yaml:"make"`
	Model string `json:"model" yaml:"model"`
	Year  *int   `json:"year,omitempty" yaml:"year,omitempty"`
}

// Detection is an object the model located in the vehicle image.
type Detection struct {
	Label      string          `json:"label" yaml:"label"`
	Confidence *float64        `json:"confidence,omitempty" yaml:"confidence,omitempty"`
	Geometry   json.RawMessage `json:"geometry,omitempty" yaml:"-"`
}

type Drivetrain struct {
	Motor     string   `json:"motor" yaml:"motor"`
	Inverter  string   `json:"inverter" yaml:"inverter"`
	GearRatio *float64 `json:"gearRatio,omitempty" yaml:"gearRatio,omitempty"`
}

type Battery struct {
	Chemistry   Chemistry `json:"chemistry" yaml:"chemistry"`
	Voltage     *float64  `json:"voltage,omitempty" yaml:"voltage,omitempty"`
	CapacityKWh *float64  `json:"capacity_kWh,omitempty" yaml:"capacity_kWh,omitempty"`
	PackLayout  string    `json:"packLayout" yaml:"packLayout"`
}

// Safety groups the applicable standards and identified risks. A nil slice
// means the model never sent the list; an empty one means it sent [].
type Safety struct {
	Standards []string     `json:"standards" yaml:"standards"`
	Risks     []SafetyRisk `json:"risks" yaml:"risks"`
}

// SafetyRisk keeps the order the model listed it in; there is no ranking.
type SafetyRisk struct {
	Code        string   `json:"code" yaml:"code"`
	Severity    Severity `json:"severity" yaml:"severity"`
	Remediation string   `json:"remediation" yaml:"remediation"`
}

type BOMItem struct {
	SKU         string   `json:"sku" yaml:"sku"`
	Qty         *float64 `json:"qty,omitempty" yaml:"qty,omitempty"`
	UnitCost    *float64 `json:"unitCost,omitempty" yaml:"unitCost,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
}

// LineTotal returns qty * unitCost. ok is false when either is absent.
func (b BOMItem) LineTotal() (total float64, ok bool) {
	if b.Qty == nil || b.UnitCost == nil {
		return 0, false
	}
	return *b.Qty * *b.UnitCost, true
}

type Cost struct {
	Parts    *float64 `json:"parts,omitempty" yaml:"parts,omitempty"`
	Labor    *float64 `json:"labor,omitempty" yaml:"labor,omitempty"`
	Overhead *float64 `json:"overhead,omitempty" yaml:"overhead,omitempty"`
	Total    *float64 `json:"total,omitempty" yaml:"total,omitempty"`
}

// ExpectedTotal returns parts + labor + overhead, treating absent overhead
// as zero. ok is false when parts or labor is absent.
func (c Cost) ExpectedTotal() (total float64, ok bool) {
	if c.Parts == nil || c.Labor == nil {
		return 0, false
	}
	total = *c.Parts + *c.Labor
	if c.Overhead != nil {
		total += *c.Overhead
	}
	return total, true
}

// Export holds links to rendered copies of the plan.
type Export struct {
	PDFURI  string `json:"pdfUri,omitempty" yaml:"pdfUri,omitempty"`
	JSONURI string `json:"jsonUri,omitempty" yaml:"jsonUri,omitempty"`
}
