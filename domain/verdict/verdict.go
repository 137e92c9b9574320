package verdict

import (
	"encoding/json"
	"slices"

	"trialgate/domain/core"
)

// Messages holds the justification attached to one outcome: patient-facing
// detail in Specific and short labels in General.
type Messages struct {
	Specific []string `json:"specific,omitempty"`
	General  []string `json:"general,omitempty"`
}

// IsEmpty reports whether no message is present.
func (m Messages) IsEmpty() bool {
	return len(m.Specific) == 0 && len(m.General) == 0
}

func (m Messages) clone() Messages {
	return Messages{Specific: slices.Clone(m.Specific), General: slices.Clone(m.General)}
}

// Verdict is one evaluation result. It only ever carries the messages of its
// own outcome, so a verdict cannot justify itself with text from another
// bucket. Verdicts are values; the With* methods return modified copies.
type Verdict struct {
	outcome     Outcome
	messages    Messages
	displayName string
}

func newVerdict(o Outcome, m Messages) Verdict {
	return Verdict{outcome: o, messages: m.clone()}
}

func Pass(m Messages) Verdict           { return newVerdict(OutcomePass, m) }
func Warn(m Messages) Verdict           { return newVerdict(OutcomeWarn, m) }
func Undetermined(m Messages) Verdict   { return newVerdict(OutcomeUndetermined, m) }
func Fail(m Messages) Verdict           { return newVerdict(OutcomeFail, m) }
func NotEvaluated(m Messages) Verdict   { return newVerdict(OutcomeNotEvaluated, m) }
func NotImplemented(m Messages) Verdict { return newVerdict(OutcomeNotImplemented, m) }

// New builds a leaf verdict for an outcome known only at runtime.
func New(o Outcome, m Messages) Verdict { return newVerdict(o, m) }

// Simple is shorthand for a verdict with one specific and one general message.
func Simple(o Outcome, specific, general string) Verdict {
	return newVerdict(o, Messages{Specific: []string{specific}, General: []string{general}})
}

func (v Verdict) Outcome() Outcome    { return v.outcome }
func (v Verdict) DisplayName() string { return v.displayName }

// Messages returns a copy of the verdict's own bucket.
func (v Verdict) Messages() Messages { return v.messages.clone() }

// Bucket returns the messages filed under o, which are empty unless o is the
// verdict's own outcome.
func (v Verdict) Bucket(o Outcome) Messages {
	if o != v.outcome {
		return Messages{}
	}
	return v.messages.clone()
}

// WithDisplayName returns a copy labelled with name.
func (v Verdict) WithDisplayName(name string) Verdict {
	v.messages = v.messages.clone()
	v.displayName = name
	return v
}

// Worst returns the verdict with the worst outcome. Ties keep the first one
// seen. Skipped verdicts cannot be ranked and produce an error.
func Worst(verdicts ...Verdict) (Verdict, error) {
	if len(verdicts) == 0 {
		return Verdict{}, core.ErrNoVerdicts
	}
	worst := verdicts[0]
	if _, err := worst.outcome.severity(); err != nil {
		return Verdict{}, err
	}
	for _, candidate := range verdicts[1:] {
		worse, err := WorseThan(candidate.outcome, worst.outcome)
		if err != nil {
			return Verdict{}, err
		}
		if worse {
			worst = candidate
		}
	}
	return worst, nil
}

type verdictJSON struct {
	Outcome     Outcome  `json:"outcome"`
	DisplayName string   `json:"display_name,omitempty"`
	Messages    Messages `json:"messages"`
}

func (v Verdict) MarshalJSON() ([]byte, error) {
	return json.Marshal(verdictJSON{Outcome: v.outcome, DisplayName: v.displayName, Messages: v.messages})
}

func (v *Verdict) UnmarshalJSON(data []byte) error {
	var raw verdictJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = newVerdict(raw.Outcome, raw.Messages).WithDisplayName(raw.DisplayName)
	return nil
}
