package patient

import (
	"encoding/json"
	"fmt"
	"strings"

	"trialgate/domain/core"
)

// TumorStage is an ordinal cancer stage. The numeric order is the natural
// order used when stages are listed.
type TumorStage int

const (
	StageI TumorStage = iota + 1
	StageII
	StageIIA
	StageIIB
	StageIII
	StageIIIA
	StageIIIB
	StageIIIC
	StageIV
)

var stageNames = map[TumorStage]string{
	StageI:    "I",
	StageII:   "II",
	StageIIA:  "IIA",
	StageIIB:  "IIB",
	StageIII:  "III",
	StageIIIA: "IIIA",
	StageIIIB: "IIIB",
	StageIIIC: "IIIC",
	StageIV:   "IV",
}

// stageCategories maps each sub-stage to the stage it refines.
var stageCategories = map[TumorStage]TumorStage{
	StageIIA:  StageII,
	StageIIB:  StageII,
	StageIIIA: StageIII,
	StageIIIB: StageIII,
	StageIIIC: StageIII,
}

func (s TumorStage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("TumorStage(%d)", int(s))
}

// Category returns the main stage s belongs to (IIIA -> III). Main stages
// return themselves.
func (s TumorStage) Category() TumorStage {
	if parent, ok := stageCategories[s]; ok {
		return parent
	}
	return s
}

// ParseTumorStage parses a roman-numeral stage such as "IIIB".
func ParseTumorStage(s string) (TumorStage, error) {
	normalized := strings.ToUpper(strings.TrimSpace(s))
	for stage, name := range stageNames {
		if name == normalized {
			return stage, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", core.ErrInvalidStage, s)
}

func (s TumorStage) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *TumorStage) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidStage, err)
	}
	parsed, err := ParseTumorStage(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s TumorStage) MarshalYAML() (interface{}, error) {
	return s.String(), nil
}

func (s *TumorStage) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	parsed, err := ParseTumorStage(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
