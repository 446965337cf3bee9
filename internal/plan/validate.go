package plan

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"evai/internal/core"
)

// IssueSeverity separates failures from advisories.
type IssueSeverity string

const (
	IssueError   IssueSeverity = "error"
	IssueWarning IssueSeverity = "warning"
)

// Issue codes.
const (
	CodeMissing      = "missing"
	CodeEnum         = "enum"
	CodeNegative     = "negative"
	CodeCostMismatch = "cost_mismatch"
)

// Issue is one finding from Validate.
type Issue struct {
	Code     string
	Field    string
	Message  string
	Severity IssueSeverity
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s", i.Field, i.Message)
}

// Validate checks a plan the model produced. It reports missing required
// sections and fields, enum values outside their set, negative numbers, and
// (as a warning only) a cost total that disagrees with its parts.
func Validate(p *ConversionPlan) []Issue {
	v := &validator{}
	if p == nil {
		v.missing("plan")
		return v.issues
	}

	if strings.TrimSpace(p.Summary) == "" {
		v.missing("summary")
	}

	if p.Vehicle == nil {
		v.missing("vehicle")
	} else {
		v.requireStr("vehicle.make", p.Vehicle.Make)
		v.requireStr("vehicle.model", p.Vehicle.Model)
		if p.Vehicle.Year == nil {
			v.missing("vehicle.year")
		} else if *p.Vehicle.Year < 0 {
			v.negative("vehicle.year", float64(*p.Vehicle.Year))
		}
	}

	if p.Drivetrain == nil {
		v.missing("drivetrain")
	} else {
		v.requireStr("drivetrain.motor", p.Drivetrain.Motor)
		v.requireStr("drivetrain.inverter", p.Drivetrain.Inverter)
		v.requireNum("drivetrain.gearRatio", p.Drivetrain.GearRatio)
	}

	if p.Battery == nil {
		v.missing("battery")
	} else {
		if p.Battery.Chemistry == "" {
			v.missing("battery.chemistry")
		} else if !slices.Contains(Chemistries, p.Battery.Chemistry) {
			v.enum("battery.chemistry", string(p.Battery.Chemistry), chemistryNames())
		}
		v.requireNum("battery.voltage", p.Battery.Voltage)
		v.requireNum("battery.capacity_kWh", p.Battery.CapacityKWh)
		v.requireStr("battery.packLayout", p.Battery.PackLayout)
	}

	if p.Safety == nil {
		v.missing("safety")
	} else {
		if p.Safety.Standards == nil {
			v.missing("safety.standards")
		}
		if p.Safety.Risks == nil {
			v.missing("safety.risks")
		}
		for i, r := range p.Safety.Risks {
			field := fmt.Sprintf("safety.risks[%d]", i)
			v.requireStr(field+".code", r.Code)
			v.requireStr(field+".remediation", r.Remediation)
			if r.Severity == "" {
				v.missing(field + ".severity")
			} else if !slices.Contains(Severities, r.Severity) {
				v.enum(field+".severity", string(r.Severity), severityNames())
			}
		}
	}

	if p.BOM == nil {
		v.missing("bom")
	}
	for i, item := range p.BOM {
		field := fmt.Sprintf("bom[%d]", i)
		v.requireStr(field+".sku", item.SKU)
		v.requireNum(field+".qty", item.Qty)
		v.requireNum(field+".unitCost", item.UnitCost)
	}

	v.requireNum("laborHours", p.LaborHours)

	if p.Cost == nil {
		v.missing("cost")
	} else {
		v.requireNum("cost.parts", p.Cost.Parts)
		v.requireNum("cost.labor", p.Cost.Labor)
		v.requireNum("cost.total", p.Cost.Total)
		if p.Cost.Overhead != nil && *p.Cost.Overhead < 0 {
			v.negative("cost.overhead", *p.Cost.Overhead)
		}
		v.costTotal(p.Cost)
	}

	for i, d := range p.Detections {
		if d.Confidence != nil && *d.Confidence < 0 {
			v.negative(fmt.Sprintf("detections[%d].confidence", i), *d.Confidence)
		}
	}

	return v.issues
}

// Check runs Validate and converts error-severity issues into a single
// core.ErrInvalidPlan. Warnings are returned either way.
func Check(p *ConversionPlan) (warnings []Issue, err error) {
	var failures []string
	for _, issue := range Validate(p) {
		if issue.Severity == IssueWarning {
			warnings = append(warnings, issue)
			continue
		}
		failures = append(failures, issue.String())
	}
	if len(failures) > 0 {
		return warnings, core.InvalidPlan("plan.validate", "%d problem(s): %s", len(failures), strings.Join(failures, "; "))
	}
	return warnings, nil
}

// costTolerance is the relative slack allowed between cost.total and the
// sum of its parts, with an absolute floor of one cent.
const costTolerance = 0.005

type validator struct {
	issues []Issue
}

func (v *validator) add(code, field string, sev IssueSeverity, format string, args ...any) {
	v.issues = append(v.issues, Issue{Code: code, Field: field, Message: fmt.Sprintf(format, args...), Severity: sev})
}

func (v *validator) missing(field string) {
	v.add(CodeMissing, field, IssueError, "required field is missing")
}

func (v *validator) negative(field string, n float64) {
	v.add(CodeNegative, field, IssueError, "must not be negative, got %g", n)
}

func (v *validator) enum(field, got string, allowed []string) {
	v.add(CodeEnum, field, IssueError, "%q is not one of %s", got, strings.Join(allowed, ", "))
}

func (v *validator) requireStr(field, s string) {
	if strings.TrimSpace(s) == "" {
		v.missing(field)
	}
}

func (v *validator) requireNum(field string, n *float64) {
	switch {
	case n == nil:
		v.missing(field)
	case *n < 0:
		v.negative(field, *n)
	}
}

func (v *validator) costTotal(c *Cost) {
	expected, ok := c.ExpectedTotal()
	if !ok || c.Total == nil {
		return
	}
	tolerance := math.Max(math.Abs(expected)*costTolerance, 0.01)
	if diff := math.Abs(*c.Total - expected); diff > tolerance {
		v.add(CodeCostMismatch, "cost.total", IssueWarning,
			"total %.2f differs from parts+labor+overhead %.2f by %.2f", *c.Total, expected, diff)
	}
}
