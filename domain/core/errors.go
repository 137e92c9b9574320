package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Configuration errors. These indicate a wiring bug in the predicate catalog,
	// never a property of the patient record.
	ErrConfiguration      = errors.New("predicate configuration error")
	ErrMissingDisplayName = fmt.Errorf("%w: verdict has no display name", ErrConfiguration)
	ErrUnorderedOutcome   = fmt.Errorf("%w: outcome is outside the verdict order", ErrConfiguration)
	ErrNoCandidates       = fmt.Errorf("%w: no candidate values supplied", ErrConfiguration)
	ErrNoVerdicts         = fmt.Errorf("%w: no verdicts to combine", ErrConfiguration)
	ErrUnknownRule        = fmt.Errorf("%w: unknown rule", ErrConfiguration)
	ErrInvalidParameters  = fmt.Errorf("%w: invalid rule parameters", ErrConfiguration)

	// Input errors
	ErrInvalidDate  = errors.New("invalid partial date")
	ErrInvalidStage = errors.New("invalid tumor stage")
)

// Error constructors with context
func NewUnorderedOutcomeError(outcome string) error {
	return fmt.Errorf("%w: %s", ErrUnorderedOutcome, outcome)
}

func NewMissingDisplayNameError(candidate string) error {
	return fmt.Errorf("%w for candidate %s", ErrMissingDisplayName, candidate)
}

func NewUnknownRuleError(rule string) error {
	return fmt.Errorf("%w: %s", ErrUnknownRule, rule)
}

func NewInvalidParametersError(rule string, reason string) error {
	return fmt.Errorf("%w for %s: %s", ErrInvalidParameters, rule, reason)
}

// Error checking helpers
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrInvalidStage)
}
