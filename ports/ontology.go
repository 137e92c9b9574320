package ports

// Ontology expands disease codes (DOIDs) to their ancestors.
type Ontology interface {
	// ParentsOf returns every ancestor of code, excluding code itself.
	ParentsOf(code string) []string
}
