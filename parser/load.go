package parser

import (
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// LoadGrammar reads a YAML grammar file.
func LoadGrammar(path string) (Grammar, error) {
	f, err := os.Open(path)
	if err != nil {
		return Grammar{}, err
	}
	defer f.Close()

	g, err := DecodeGrammar(f)
	if err != nil {
		return Grammar{}, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// DecodeGrammar decodes a YAML grammar, expands quick notation patterns and
// validates the result.
func DecodeGrammar(r io.Reader) (Grammar, error) {
	var g Grammar
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&g); err != nil {
		return Grammar{}, err
	}
	if err := g.expandQuick(); err != nil {
		return Grammar{}, err
	}
	if err := g.Validate(); err != nil {
		return Grammar{}, err
	}
	return g, nil
}

func (g *Grammar) expandQuick() error {
	for ri := range g.Rules {
		r := &g.Rules[ri]
		for pi := range r.Patterns {
			p := &r.Patterns[pi]
			if p.Quick == "" {
				continue
			}
			elems, err := QuickPattern(p.Quick, QuickOptions{Whitespace: g.Whitespace})
			if err != nil {
				return fmt.Errorf("rule %q pattern %d: %w", r.Name, pi, err)
			}
			// written out elements must be the expansion of the notation
			if len(p.Elements) > 0 && !slices.Equal(p.Elements, elems) {
				return fmt.Errorf("rule %q pattern %d: elements do not match quick notation %q", r.Name, pi, p.Quick)
			}
			p.Elements = elems
		}
	}
	return nil
}
