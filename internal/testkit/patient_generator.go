// Package testkit generates synthetic patient records for tests and demos.
package testkit

import (
	"encoding/json"
	"fmt"
	"io"
	"math/rand"

	"trialgate/domain/core"
	"trialgate/domain/patient"
)

// PatientGeneratorConfig configures the patient generator
type PatientGeneratorConfig struct {
	PatientCount int   `json:"patient_count"`
	MaxCourses   int   `json:"max_courses"`
	StartYear    int   `json:"start_year"`
	EndYear      int   `json:"end_year"`
	Seed         int64 `json:"seed"`

	// Rates are probabilities in [0, 1].
	UnknownDateRate  float64 `json:"unknown_date_rate"`
	YearOnlyRate     float64 `json:"year_only_rate"`
	UnknownStageRate float64 `json:"unknown_stage_rate"`
	LesionRate       float64 `json:"lesion_rate"`
}

// DefaultPatientConfig returns sensible defaults for patient generation
func DefaultPatientConfig() PatientGeneratorConfig {
	return PatientGeneratorConfig{
		PatientCount:     100,
		MaxCourses:       8,
		StartYear:        2018,
		EndYear:          2024,
		Seed:             42,
		UnknownDateRate:  0.15,
		YearOnlyRate:     0.2,
		UnknownStageRate: 0.5,
		LesionRate:       0.3,
	}
}

// drug is a named regimen with its categories and systemic flag.
type drug struct {
	name       string
	categories []patient.TreatmentCategory
	systemic   bool
}

var drugs = []drug{
	{"carboplatin", []patient.TreatmentCategory{patient.CategoryChemotherapy}, true},
	{"docetaxel", []patient.TreatmentCategory{patient.CategoryChemotherapy}, true},
	{"pembrolizumab", []patient.TreatmentCategory{patient.CategoryImmunotherapy}, true},
	{"osimertinib", []patient.TreatmentCategory{patient.CategoryTargetedTherapy}, true},
	{"radiotherapy", []patient.TreatmentCategory{patient.CategoryRadiotherapy}, false},
	{"lobectomy", []patient.TreatmentCategory{patient.CategorySurgery}, false},
}

var primaries = []string{"3910", "3907", "1612", "9256", "1909"}

var stages = []patient.TumorStage{
	patient.StageI, patient.StageII, patient.StageIIA, patient.StageIIB,
	patient.StageIII, patient.StageIIIA, patient.StageIIIB, patient.StageIIIC, patient.StageIV,
}

// PatientGenerator generates reproducible synthetic patients
type PatientGenerator struct {
	config PatientGeneratorConfig
	rng    *rand.Rand
}

// NewPatientGenerator creates a new patient generator
func NewPatientGenerator(config PatientGeneratorConfig) *PatientGenerator {
	return &PatientGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// GeneratePatients generates config.PatientCount records
func (g *PatientGenerator) GeneratePatients() []patient.Record {
	records := make([]patient.Record, 0, g.config.PatientCount)
	for i := 0; i < g.config.PatientCount; i++ {
		records = append(records, g.GeneratePatient(core.PatientID(fmt.Sprintf("patient_%04d", i+1))))
	}
	return records
}

// GeneratePatient generates one record
func (g *PatientGenerator) GeneratePatient(id core.PatientID) patient.Record {
	rec := patient.Record{
		PatientID: id,
		Tumor:     g.tumor(),
	}
	n := 0
	if g.config.MaxCourses > 0 {
		n = g.rng.Intn(g.config.MaxCourses + 1)
	}
	for j := 0; j < n; j++ {
		rec.Treatments = append(rec.Treatments, g.Course())
	}
	return rec
}

// Course generates one treatment course
func (g *PatientGenerator) Course() patient.TreatmentCourse {
	d := drugs[g.rng.Intn(len(drugs))]
	return patient.TreatmentCourse{
		Name:       d.name,
		Categories: append([]patient.TreatmentCategory(nil), d.categories...),
		IsSystemic: d.systemic,
		Start:      g.Date(),
		Stop:       core.UnknownDate(),
	}
}

// Date generates a partial date honouring the configured precision rates
func (g *PatientGenerator) Date() core.PartialDate {
	r := g.rng.Float64()
	switch {
	case r < g.config.UnknownDateRate:
		return core.UnknownDate()
	case r < g.config.UnknownDateRate+g.config.YearOnlyRate:
		return core.YearOnly(g.year())
	default:
		return core.YearMonth(g.year(), 1+g.rng.Intn(12))
	}
}

func (g *PatientGenerator) year() int {
	span := g.config.EndYear - g.config.StartYear
	if span <= 0 {
		return g.config.StartYear
	}
	return g.config.StartYear + g.rng.Intn(span+1)
}

func (g *PatientGenerator) tumor() patient.TumorDetails {
	t := patient.TumorDetails{DOIDs: []string{primaries[g.rng.Intn(len(primaries))]}}
	if g.rng.Float64() >= g.config.UnknownStageRate {
		s := stages[g.rng.Intn(len(stages))]
		t.Stage = &s
	}
	t.HasBoneLesions = g.lesion()
	t.HasBrainLesions = g.lesion()
	t.HasLiverLesions = g.lesion()
	t.HasLungLesions = g.lesion()
	t.HasLymphNodeLesions = g.lesion()
	return t
}

// lesion is unrecorded, absent or present.
func (g *PatientGenerator) lesion() *bool {
	switch r := g.rng.Float64(); {
	case r < 0.2:
		return nil
	case r < 0.2+g.config.LesionRate:
		v := true
		return &v
	default:
		v := false
		return &v
	}
}

// WriteJSON writes records as one JSON document per line
func WriteJSON(w io.Writer, records []patient.Record) error {
	enc := json.NewEncoder(w)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("failed to encode patient %s: %w", rec.PatientID, err)
		}
	}
	return nil
}
