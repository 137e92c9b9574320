// Package sequence derives treatment-line counts from a patient's history of
// treatment courses. Bounds widen rather than fail when dates are missing.
package sequence

import (
	"slices"

	"trialgate/domain/core"
	"trialgate/domain/patient"
)

// MaxLines is the upper bound on systemic treatment lines: every systemic
// course counts as its own line.
func MaxLines(courses []patient.TreatmentCourse) int {
	count := 0
	for _, course := range courses {
		if course.IsSystemic {
			count++
		}
	}
	return count
}

// MinLines is the lower bound on systemic treatment lines. Repeated courses
// with the same name collapse into one line unless a differently named course
// started strictly between two of them.
func MinLines(courses []patient.TreatmentCourse) int {
	total := 0
	for _, group := range groupSystemicByName(courses) {
		total += groupLines(group, courses)
	}
	return total
}

func groupLines(group []patient.TreatmentCourse, all []patient.TreatmentCourse) int {
	if len(group) == 1 {
		return 1
	}

	ordered := slices.Clone(group)
	slices.SortStableFunc(ordered, func(a, b patient.TreatmentCourse) int {
		return core.CompareNullsFirst(b.Start, a.Start)
	})

	lines := 1
	for i := 0; i+1 < len(ordered); i++ {
		newer, older := ordered[i], ordered[i+1]
		if IsInterrupted(newer, older, all) {
			lines++
		}
	}
	return lines
}

// IsInterrupted reports whether a differently named course (systemic or not)
// started strictly between older and newer. The pair itself must be ordered
// under the comparable-only date order; ambiguous pairs are never interrupted.
func IsInterrupted(newer, older patient.TreatmentCourse, all []patient.TreatmentCourse) bool {
	if !core.Before(older.Start, newer.Start) {
		return false
	}
	for _, other := range all {
		if other.Name == newer.Name {
			continue
		}
		if core.After(other.Start, older.Start) && core.Before(other.Start, newer.Start) {
			return true
		}
	}
	return false
}

// groupSystemicByName groups systemic courses by name, keeping groups in
// first-seen order so results do not depend on map iteration.
func groupSystemicByName(courses []patient.TreatmentCourse) [][]patient.TreatmentCourse {
	index := make(map[string]int)
	var groups [][]patient.TreatmentCourse
	for _, course := range courses {
		if !course.IsSystemic {
			continue
		}
		i, ok := index[course.Name]
		if !ok {
			i = len(groups)
			index[course.Name] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], course)
	}
	return groups
}

// LastSystemic returns the systemic course with the latest start date. Unknown
// dates sort before known ones; ties keep the first course seen. It returns
// false when the history holds no systemic course.
func LastSystemic(courses []patient.TreatmentCourse) (patient.TreatmentCourse, bool) {
	var last patient.TreatmentCourse
	found := false
	for _, course := range courses {
		if !course.IsSystemic {
			continue
		}
		if !found || core.CompareNullsFirst(course.Start, last.Start) > 0 {
			last = course
			found = true
		}
	}
	return last, found
}

// LastSystemicStopReason returns the recorded stop reason of the most recent
// systemic course.
func LastSystemicStopReason(courses []patient.TreatmentCourse) (string, bool) {
	last, ok := LastSystemic(courses)
	if !ok || last.StopReason == nil {
		return "", false
	}
	return *last.StopReason, true
}

// Summary bundles the line bounds and last course for reporting.
type Summary struct {
	MinLines     int                      `json:"min_lines"`
	MaxLines     int                      `json:"max_lines"`
	LastSystemic *patient.TreatmentCourse `json:"last_systemic,omitempty"`
}

// Summarize computes every bound in one pass over the caller's slice.
func Summarize(courses []patient.TreatmentCourse) Summary {
	s := Summary{MinLines: MinLines(courses), MaxLines: MaxLines(courses)}
	if last, ok := LastSystemic(courses); ok {
		s.LastSystemic = &last
	}
	return s
}
