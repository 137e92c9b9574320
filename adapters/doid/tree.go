// Package doid provides an in-memory Disease Ontology tree.
package doid

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed doid_tree.yaml
var defaultTree []byte

// Node is one ontology term.
type Node struct {
	DOID    string   `yaml:"doid"`
	Name    string   `yaml:"name"`
	Parents []string `yaml:"parents,omitempty"`
}

type treeFile struct {
	Nodes []Node `yaml:"nodes"`
}

// Tree answers ancestry questions over a fixed set of terms.
type Tree struct {
	parents map[string][]string
	names   map[string]string
}

// NewDefault loads the embedded oncology subset.
func NewDefault() (*Tree, error) {
	return Load(defaultTree)
}

// Load parses a YAML node list. Every referenced parent must be defined.
func Load(data []byte) (*Tree, error) {
	var file treeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal doid tree: %w", err)
	}

	t := &Tree{
		parents: make(map[string][]string, len(file.Nodes)),
		names:   make(map[string]string, len(file.Nodes)),
	}
	for _, n := range file.Nodes {
		code := Normalize(n.DOID)
		if code == "" {
			return nil, fmt.Errorf("doid tree: node %q has no code", n.Name)
		}
		if _, dup := t.names[code]; dup {
			return nil, fmt.Errorf("doid tree: duplicate code %s", code)
		}
		t.names[code] = n.Name
		for _, p := range n.Parents {
			t.parents[code] = append(t.parents[code], Normalize(p))
		}
	}
	for code, parents := range t.parents {
		for _, p := range parents {
			if _, ok := t.names[p]; !ok {
				return nil, fmt.Errorf("doid tree: %s has undefined parent %s", code, p)
			}
		}
	}
	return t, nil
}

// Normalize strips a "DOID:" prefix and surrounding space.
func Normalize(code string) string {
	code = strings.TrimSpace(code)
	if len(code) > 5 && strings.EqualFold(code[:5], "DOID:") {
		return code[5:]
	}
	return code
}

// ParentsOf returns every ancestor of code nearest first. Unknown codes have none.
func (t *Tree) ParentsOf(code string) []string {
	var out []string
	seen := map[string]bool{Normalize(code): true}
	queue := t.parents[Normalize(code)]
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if seen[next] {
			continue
		}
		seen[next] = true
		out = append(out, next)
		queue = append(queue, t.parents[next]...)
	}
	return out
}

// Name returns the term name for code.
func (t *Tree) Name(code string) (string, bool) {
	name, ok := t.names[Normalize(code)]
	return name, ok
}

// Len returns the number of terms.
func (t *Tree) Len() int { return len(t.names) }
