package predicates

// predicates_const.go
//
// Display names and message fragments shared by the predicate catalog.
// Each predicate names itself so folded verdicts can refer back to it.

const (
	// MONTHS_PER_YEAR converts partial dates to month ordinals.
	MONTHS_PER_YEAR = 12

	// SYSTEMIC_LINES_ATTRIBUTE is the noun used in line-count messages.
	SYSTEMIC_LINES_ATTRIBUTE = "systemic treatment lines"
)
