package verdict

import (
	"encoding/json"
	"fmt"
	"strings"

	"trialgate/domain/core"
)

// Outcome is the graded result of evaluating one predicate.
type Outcome int

const (
	// OutcomeUnset is the zero value. A Verdict{} returned next to an error
	// carries it, so it is never mistaken for a pass.
	OutcomeUnset Outcome = iota
	OutcomePass
	OutcomeWarn
	OutcomeUndetermined
	OutcomeFail
	// OutcomeNotEvaluated and OutcomeNotImplemented mark a predicate that was
	// intentionally skipped. They sit outside the severity order and can never
	// be folded.
	OutcomeNotEvaluated
	OutcomeNotImplemented
)

var outcomeNames = map[Outcome]string{
	OutcomeUnset:          "UNSET",
	OutcomePass:           "PASS",
	OutcomeWarn:           "WARN",
	OutcomeUndetermined:   "UNDETERMINED",
	OutcomeFail:           "FAIL",
	OutcomeNotEvaluated:   "NOT_EVALUATED",
	OutcomeNotImplemented: "NOT_IMPLEMENTED",
}

// OrderedOutcomes lists the folding outcomes from best to worst.
func OrderedOutcomes() []Outcome {
	return []Outcome{OutcomePass, OutcomeWarn, OutcomeUndetermined, OutcomeFail}
}

func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// IsOrdered reports whether o takes part in the severity order.
func (o Outcome) IsOrdered() bool {
	return o >= OutcomePass && o <= OutcomeFail
}

// severity grows as outcomes get worse.
func (o Outcome) severity() (int, error) {
	if !o.IsOrdered() {
		return 0, core.NewUnorderedOutcomeError(o.String())
	}
	return int(o), nil
}

// WorseThan reports whether a is strictly worse than b.
func WorseThan(a, b Outcome) (bool, error) {
	sa, err := a.severity()
	if err != nil {
		return false, err
	}
	sb, err := b.severity()
	if err != nil {
		return false, err
	}
	return sa > sb, nil
}

// ParseOutcome parses the upper-case outcome name.
func ParseOutcome(s string) (Outcome, error) {
	normalized := strings.ToUpper(strings.TrimSpace(s))
	for o, name := range outcomeNames {
		if name == normalized && o != OutcomeUnset {
			return o, nil
		}
	}
	return OutcomeUnset, fmt.Errorf("unknown outcome: %q", s)
}

func (o Outcome) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

func (o *Outcome) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseOutcome(s)
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}
