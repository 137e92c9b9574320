// Package record loads patient records and treatment histories from files.
package record

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"trialgate/domain/core"
	"trialgate/domain/patient"
)

// LoadPatient reads a patient record from a JSON file.
func LoadPatient(path string) (patient.Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return patient.Record{}, fmt.Errorf("failed to open patient file: %w", err)
	}
	defer file.Close()
	return DecodePatient(file)
}

// DecodePatient decodes and validates one JSON patient record. Unknown fields
// are rejected so typos do not silently drop data.
func DecodePatient(r io.Reader) (patient.Record, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var rec patient.Record
	if err := dec.Decode(&rec); err != nil {
		return patient.Record{}, fmt.Errorf("failed to decode patient record: %w", err)
	}
	id, err := core.ParsePatientID(rec.PatientID.String())
	if err != nil {
		return patient.Record{}, err
	}
	rec.PatientID = id
	if err := rec.Validate(); err != nil {
		return patient.Record{}, fmt.Errorf("patient %s: %w", rec.PatientID, err)
	}
	return rec, nil
}
