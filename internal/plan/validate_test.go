package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evai/internal/core"
)

func samplePlan(t *testing.T) *ConversionPlan {
	t.Helper()
	body, err := Decode(samplePlanJSON)
	require.NoError(t, err)
	return Assemble(body, nil)
}

func fieldsOf(issues []Issue) []string {
	out := make([]string, 0, len(issues))
	for _, i := range issues {
		out = append(out, i.Field)
	}
	return out
}

func TestValidate_SamplePlanIsClean(t *testing.T) {
	assert.Empty(t, Validate(samplePlan(t)))

	warnings, err := Check(samplePlan(t))
	assert.NoError(t, err)
	assert.Empty(t, warnings)
}

func TestValidate_MissingSections(t *testing.T) {
	body, err := Decode(`{"summary": "only a summary"}`)
	require.NoError(t, err)

	issues := Validate(Assemble(body, nil))

	assert.ElementsMatch(t,
		[]string{"vehicle", "drivetrain", "battery", "safety", "bom", "laborHours", "cost"},
		fieldsOf(issues))
	for _, i := range issues {
		assert.Equal(t, CodeMissing, i.Code)
		assert.Equal(t, IssueError, i.Severity)
	}
}

func TestValidate_Enums(t *testing.T) {
	p := samplePlan(t)
	p.Battery.Chemistry = "LiPo"
	p.Safety.Risks[1].Severity = "CRITICAL"

	issues := Validate(p)

	require.Len(t, issues, 2)
	assert.Equal(t, CodeEnum, issues[0].Code)
	assert.Equal(t, "battery.chemistry", issues[0].Field)
	assert.Contains(t, issues[0].Message, "LFP, NMC, LTO")
	assert.Equal(t, "safety.risks[1].severity", issues[1].Field)
}

func TestValidate_Negatives(t *testing.T) {
	p := samplePlan(t)
	p.BOM[0].Qty = ptr(-1.0)
	p.LaborHours = ptr(-5.0)
	p.Cost.Overhead = ptr(-10.0)

	issues := Validate(p)

	assert.Subset(t, fieldsOf(issues), []string{"bom[0].qty", "laborHours", "cost.overhead"})
	for _, i := range issues {
		if i.Code == CodeNegative {
			assert.Equal(t, IssueError, i.Severity)
		}
	}
}

func TestValidate_CostMismatchIsWarning(t *testing.T) {
	p := samplePlan(t)
	p.Cost.Total = ptr(25000.0)

	warnings, err := Check(p)

	assert.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, CodeCostMismatch, warnings[0].Code)
	assert.Equal(t, IssueWarning, warnings[0].Severity)
}

func TestValidate_CostWithinTolerance(t *testing.T) {
	p := samplePlan(t)
	// 0.5% of 23300.5 is ~116.5
	p.Cost.Total = ptr(23400.0)
	assert.Empty(t, Validate(p))

	p.Cost = &Cost{Parts: ptr(1.0), Labor: ptr(1.0), Total: ptr(2.01)}
	assert.Empty(t, Validate(p), "one cent floor")

	p.Cost.Total = ptr(2.02)
	assert.Len(t, Validate(p), 1)
}

func TestValidate_OverheadOptional(t *testing.T) {
	p := samplePlan(t)
	p.Cost = &Cost{Parts: ptr(100.0), Labor: ptr(50.0), Total: ptr(150.0)}
	assert.Empty(t, Validate(p))
}

func TestCheck_ReturnsInvalidPlan(t *testing.T) {
	p := samplePlan(t)
	p.Vehicle = nil
	p.Battery.Chemistry = "LiPo"

	_, err := Check(p)

	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidPlan)
	assert.Contains(t, err.Error(), "2 problem(s)")
	assert.Contains(t, err.Error(), "vehicle: required field is missing")
}

func TestValidate_NilPlan(t *testing.T) {
	_, err := Check(nil)
	assert.ErrorIs(t, err, core.ErrInvalidPlan)
}
