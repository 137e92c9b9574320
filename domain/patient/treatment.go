package patient

import (
	"fmt"
	"strings"

	"trialgate/domain/core"
)

// TreatmentCategory classifies a treatment course.
type TreatmentCategory string

const (
	CategoryChemotherapy        TreatmentCategory = "CHEMOTHERAPY"
	CategoryImmunotherapy       TreatmentCategory = "IMMUNOTHERAPY"
	CategoryTargetedTherapy     TreatmentCategory = "TARGETED_THERAPY"
	CategoryHormoneTherapy      TreatmentCategory = "HORMONE_THERAPY"
	CategoryRadiotherapy        TreatmentCategory = "RADIOTHERAPY"
	CategorySurgery             TreatmentCategory = "SURGERY"
	CategoryTransplantation     TreatmentCategory = "TRANSPLANTATION"
	CategoryAblation            TreatmentCategory = "ABLATION"
	CategorySupportiveTreatment TreatmentCategory = "SUPPORTIVE_TREATMENT"
)

// categoryDisplay is filled once and never written after package init.
var categoryDisplay = map[TreatmentCategory]string{
	CategoryChemotherapy:        "chemotherapy",
	CategoryImmunotherapy:       "immunotherapy",
	CategoryTargetedTherapy:     "targeted therapy",
	CategoryHormoneTherapy:      "hormone therapy",
	CategoryRadiotherapy:        "radiotherapy",
	CategorySurgery:             "surgery",
	CategoryTransplantation:     "transplantation",
	CategoryAblation:            "ablation",
	CategorySupportiveTreatment: "supportive treatment",
}

// Display returns the lower-case label used in verdict messages.
func (c TreatmentCategory) Display() string {
	if label, ok := categoryDisplay[c]; ok {
		return label
	}
	return strings.ToLower(strings.ReplaceAll(string(c), "_", " "))
}

// ParseTreatmentCategory accepts either the enum name or its display label.
func ParseTreatmentCategory(s string) (TreatmentCategory, error) {
	normalized := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), " ", "_"))
	c := TreatmentCategory(normalized)
	if _, ok := categoryDisplay[c]; !ok {
		return "", fmt.Errorf("unknown treatment category: %q", s)
	}
	return c, nil
}

// TreatmentCourse is one course of treatment from the patient's history.
type TreatmentCourse struct {
	Name         string              `json:"name"`
	Categories   []TreatmentCategory `json:"categories,omitempty"`
	IsSystemic   bool                `json:"is_systemic"`
	Start        core.PartialDate    `json:"start"`
	Stop         core.PartialDate    `json:"stop"`
	StopReason   *string             `json:"stop_reason,omitempty"`
	BestResponse *string             `json:"best_response,omitempty"`
	Cycles       *int                `json:"cycles,omitempty"`
}

// HasCategory reports whether the course is tagged with c.
func (t TreatmentCourse) HasCategory(c TreatmentCategory) bool {
	for _, category := range t.Categories {
		if category == c {
			return true
		}
	}
	return false
}

// Validate checks the partial dates of the course.
func (t TreatmentCourse) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("treatment course without name")
	}
	if err := t.Start.Validate(); err != nil {
		return fmt.Errorf("start of %s: %w", t.Name, err)
	}
	if err := t.Stop.Validate(); err != nil {
		return fmt.Errorf("stop of %s: %w", t.Name, err)
	}
	return nil
}

func (t TreatmentCourse) String() string {
	return fmt.Sprintf("%s@%s", t.Name, t.Start)
}
