package patient

import (
	"slices"

	"trialgate/domain/core"
)

// TumorDetails holds the tumor facts predicates reason about. Lesion flags are
// pointers because "not recorded" and "recorded as absent" differ.
type TumorDetails struct {
	DOIDs               []string    `json:"doids,omitempty"`
	Stage               *TumorStage `json:"stage,omitempty"`
	HasBoneLesions      *bool       `json:"has_bone_lesions,omitempty"`
	HasBrainLesions     *bool       `json:"has_brain_lesions,omitempty"`
	HasLiverLesions     *bool       `json:"has_liver_lesions,omitempty"`
	HasLungLesions      *bool       `json:"has_lung_lesions,omitempty"`
	HasLymphNodeLesions *bool       `json:"has_lymph_node_lesions,omitempty"`
	OtherLesions        []string    `json:"other_lesions,omitempty"`
}

// CategorizedLesions returns the organ-categorized lesion flags, keyed by organ.
func (t TumorDetails) CategorizedLesions() map[string]*bool {
	return map[string]*bool{
		"bone":       t.HasBoneLesions,
		"brain":      t.HasBrainLesions,
		"liver":      t.HasLiverLesions,
		"lung":       t.HasLungLesions,
		"lymph node": t.HasLymphNodeLesions,
	}
}

// Record is an immutable snapshot of a patient. Substitutions return copies.
type Record struct {
	PatientID  core.PatientID    `json:"patient_id"`
	Tumor      TumorDetails      `json:"tumor"`
	Treatments []TreatmentCourse `json:"treatments,omitempty"`
}

// WithTumorStage returns a copy of r whose tumor stage is stage.
func (r Record) WithTumorStage(stage TumorStage) Record {
	out := r.clone()
	out.Tumor.Stage = &stage
	return out
}

// WithTreatments returns a copy of r with the treatment history replaced.
func (r Record) WithTreatments(courses []TreatmentCourse) Record {
	out := r.clone()
	out.Treatments = slices.Clone(courses)
	return out
}

func (r Record) clone() Record {
	out := r
	out.Tumor.DOIDs = slices.Clone(r.Tumor.DOIDs)
	out.Tumor.OtherLesions = slices.Clone(r.Tumor.OtherLesions)
	out.Treatments = slices.Clone(r.Treatments)
	return out
}

// Validate checks every treatment course in the record.
func (r Record) Validate() error {
	for _, course := range r.Treatments {
		if err := course.Validate(); err != nil {
			return err
		}
	}
	return nil
}
