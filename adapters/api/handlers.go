package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"trialgate/domain/patient"
	"trialgate/internal/errors"
	"trialgate/internal/rules"
	"trialgate/internal/sequence"
)

// EvaluateRequest carries a patient and, optionally, the criteria to apply.
// Without criteria the server's default criteria are used.
type EvaluateRequest struct {
	Patient  patient.Record     `json:"patient"`
	Criteria *rules.CriteriaSet `json:"criteria,omitempty"`
}

// LinesRequest carries a treatment history.
type LinesRequest struct {
	Treatments []patient.TreatmentCourse `json:"treatments"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, rules.GetRuleConfigs())
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.Patient.PatientID.String() == "" {
		s.writeError(w, errors.InvalidInput("patient.patient_id is required"))
		return
	}

	var evaluator *rules.Evaluator
	var err error
	if req.Criteria != nil {
		evaluator, err = s.container.Evaluator(*req.Criteria)
	} else {
		evaluator, err = s.container.DefaultEvaluator()
	}
	if err != nil {
		s.writeError(w, err)
		return
	}

	report, err := evaluator.Evaluate(r.Context(), req.Patient)
	if err != nil {
		s.writeError(w, errors.Wrap(err, "evaluation failed"))
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleLines(w http.ResponseWriter, r *http.Request) {
	var req LinesRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	for _, course := range req.Treatments {
		if err := course.Validate(); err != nil {
			s.writeError(w, errors.WithCode(errors.CodeInvalidInput, err))
			return
		}
	}
	s.writeJSON(w, http.StatusOK, sequence.Summarize(req.Treatments))
}

func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.WithCode(errors.CodeInvalidInput, err)
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", zap.String("code", code), zap.Error(err))
	}
	s.writeJSON(w, status, map[string]errorBody{"error": {Code: code, Message: err.Error()}})
}

func statusFor(code string) int {
	switch code {
	case errors.CodeInvalidInput:
		return http.StatusBadRequest
	case errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodePredicateMisconfigured, errors.CodeConfigInvalid:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
