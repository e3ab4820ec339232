package compliance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRules() Ruleset {
	return Ruleset{
		CompatiblePairs: map[string]map[string]bool{
			"risk_ii": {"B": true, "C": true},
			"risk_iii": {"B": true},
		},
		SupportedRoofLoads: map[string]bool{
			"light": true,
			"medium": true,
		},
	}
}

func TestValidatePasses(t *testing.T) {
	v := New(testRules())

	res := v.Validate(
		Selection{RiskCategory: "risk_ii", ExposureCategory: "C", RoofLoad: "light"},
		Names{RiskCategory: "II", ExposureCategory: "C"},
	)
	assert.True(t, res.OK())
	assert.Empty(t, res.FieldErrors)
}

func TestValidateRejectedPairErrorsBothFields(t *testing.T) {
	v := New(testRules())

	res := v.Validate(
		Selection{RiskCategory: "risk_iii", ExposureCategory: "D", RoofLoad: "light"},
		Names{RiskCategory: "III", ExposureCategory: "D"},
	)
	require.False(t, res.OK())

	assert.Len(t, res.FieldErrors, 2)
	assert.Contains(t, res.FieldErrors[FieldBuildingDescription], "Risk Category III")
	assert.Contains(t, res.FieldErrors[FieldSurroundingTerrain], "Exposure Category D")
}

func TestValidateUnsupportedRoofLoad(t *testing.T) {
	v := New(testRules())

	res := v.Validate(
		Selection{RiskCategory: "risk_ii", ExposureCategory: "B", RoofLoad: "heavy"},
		Names{RiskCategory: "II", ExposureCategory: "B"},
	)
	require.False(t, res.OK())

	assert.Len(t, res.FieldErrors, 1)
	// The roof load message names no selection; the same text serves
	// every unsupported load.
	assert.Equal(t, roofLoadMsg, res.FieldErrors[FieldExistingRoofType])
}

func TestValidateAllThreeFail(t *testing.T) {
	v := New(testRules())

	res := v.Validate(
		Selection{RiskCategory: "risk_iii", ExposureCategory: "D", RoofLoad: "heavy"},
		Names{RiskCategory: "III", ExposureCategory: "D"},
	)
	require.False(t, res.OK())
	assert.Len(t, res.FieldErrors, 3)
}

func TestValidatePairOnly(t *testing.T) {
	v := New(testRules())

	ok := v.ValidatePair(
		Selection{RiskCategory: "risk_ii", ExposureCategory: "B"},
		Names{RiskCategory: "II", ExposureCategory: "B"},
	)
	assert.True(t, ok.OK())

	bad := v.ValidatePair(
		Selection{RiskCategory: "unknown", ExposureCategory: "B"},
		Names{RiskCategory: "?", ExposureCategory: "B"},
	)
	assert.False(t, bad.OK())
}

func TestValidateRoofLoadOnly(t *testing.T) {
	v := New(testRules())

	assert.True(t, v.ValidateRoofLoad(Selection{RoofLoad: "medium"}).OK())
	assert.False(t, v.ValidateRoofLoad(Selection{RoofLoad: ""}).OK())
	assert.False(t, v.ValidateRoofLoad(Selection{RoofLoad: "heavy"}).OK())
}
