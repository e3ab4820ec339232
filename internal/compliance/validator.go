// Package compliance validates that a project's risk category, exposure
// category and existing roof load selections are mutually consistent.
// The rule set is declarative reference data loaded once at startup; the
// validator itself performs no engineering judgement.
package compliance

import "fmt"

// Field keys match the wire names the intake wizard submits.
const (
	FieldBuildingDescription = "building_description_id"
	FieldSurroundingTerrain  = "surrounding_terrain_id"
	FieldExistingRoofType    = "existing_roof_type_id"
)

// Selection is the compliance triple resolved from the reference tables.
type Selection struct {
	RiskCategory     string
	ExposureCategory string
	RoofLoad         string
}

// Names carries the display values interpolated into field errors.
type Names struct {
	RiskCategory     string
	ExposureCategory string
}

// Result reports per-field human-readable errors; empty means pass.
type Result struct {
	FieldErrors map[string]string
}

func (r Result) OK() bool {
	return len(r.FieldErrors) == 0
}

// Ruleset is the compatibility relation: which (risk category, exposure
// category) pairs the automated flow accepts, and which roof loads it
// supports at all.
type Ruleset struct {
	CompatiblePairs    map[string]map[string]bool
	SupportedRoofLoads map[string]bool
}

// PairCompatible reports whether the risk/exposure pair is accepted.
func (rs Ruleset) PairCompatible(risk, exposure string) bool {
	return rs.CompatiblePairs[risk][exposure]
}

// Validator checks selections against an injected Ruleset.
type Validator struct {
	rules Ruleset
}

func New(rules Ruleset) *Validator {
	return &Validator{rules: rules}
}

const (
	riskCatMsg  = "Projects with Risk Category %s cannot be completed automatically for the selected surrounding terrain. The project will be forwarded to an engineer."
	exposureMsg = "Exposure Category %s is not supported in combination with the selected building description. The project will be forwarded to an engineer."
	roofLoadMsg = "The selected existing roof load requires review by an engineer."
)

// Validate checks the full triple. A rejected risk/exposure pair produces
// errors on both fields; an unsupported roof load produces a context-free
// error on its own field.
func (v *Validator) Validate(sel Selection, names Names) Result {
	res := v.ValidatePair(sel, names)
	if !v.rules.SupportedRoofLoads[sel.RoofLoad] {
		if res.FieldErrors == nil {
			res.FieldErrors = make(map[string]string)
		}
		res.FieldErrors[FieldExistingRoofType] = roofLoadMsg
	}
	return res
}

// ValidatePair checks only the risk/exposure pair, used by the step-1
// soft validation before a roof load has been chosen.
func (v *Validator) ValidatePair(sel Selection, names Names) Result {
	if v.rules.PairCompatible(sel.RiskCategory, sel.ExposureCategory) {
		return Result{}
	}
	return Result{FieldErrors: map[string]string{
		FieldBuildingDescription: fmt.Sprintf(riskCatMsg, names.RiskCategory),
		FieldSurroundingTerrain:  fmt.Sprintf(exposureMsg, names.ExposureCategory),
	}}
}

// ValidateRoofLoad checks only the roof load, used by the step-2 soft
// validation.
func (v *Validator) ValidateRoofLoad(sel Selection) Result {
	if v.rules.SupportedRoofLoads[sel.RoofLoad] {
		return Result{}
	}
	return Result{FieldErrors: map[string]string{
		FieldExistingRoofType: roofLoadMsg,
	}}
}
