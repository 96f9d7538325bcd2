// Package textgen writes a tree back out as text by expanding every node into
// a header, its children separated by a delimiter, and a tail.
package textgen

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gnoswap-labs/treeform/tree"
)

// UnknownPolicy is what happens to a node type without an expansion.
type UnknownPolicy int

const (
	// Ignore drops the node and its subtree.
	Ignore UnknownPolicy = iota
	// Fail aborts generation.
	Fail
	// Expand writes the children with no header, delimiter or tail.
	Expand
)

// EvalFailPolicy is what happens when a fragment value fails to evaluate.
type EvalFailPolicy int

const (
	// Skip leaves the failed value out.
	Skip EvalFailPolicy = iota
	// Abort stops generation.
	Abort
)

// Expansion is evaluated against the node being expanded.
type Expansion struct {
	Header    []tree.LocalValue `yaml:"header,omitempty"`
	Delimiter []tree.LocalValue `yaml:"delimiter,omitempty"`
	Tail      []tree.LocalValue `yaml:"tail,omitempty"`
}

// Rules configures a Generator.
type Rules struct {
	Unknown    UnknownPolicy
	OnEvalFail EvalFailPolicy
	// Expansions is keyed by canonical type name.
	Expansions map[string]Expansion
	// Aliases maps a canonical type name to other type names expanded the
	// same way.
	Aliases map[string][]string
}

var (
	// ErrUnknownType is returned for a type without expansion under the Fail
	// policy.
	ErrUnknownType = errors.New("no expansion for node type")
	// ErrAliasClash is returned by Validate when one alias names two types.
	ErrAliasClash = errors.New("alias defined twice")
)

// Validate rejects aliases listed under more than one canonical name.
func (r *Rules) Validate() error {
	_, err := r.aliasTable()
	return err
}

func (r *Rules) aliasTable() (map[string]string, error) {
	table := make(map[string]string)
	for canonical, aliases := range r.Aliases {
		for _, a := range aliases {
			if first, ok := table[a]; ok && first != canonical {
				return nil, fmt.Errorf("%w: %q for %q and %q", ErrAliasClash, a, first, canonical)
			}
			table[a] = canonical
		}
	}
	return table, nil
}

// Generator turns trees into text.
type Generator struct {
	rules   Rules
	aliases map[string]string
}

func New(rules Rules) (*Generator, error) {
	aliases, err := rules.aliasTable()
	if err != nil {
		return nil, err
	}
	return &Generator{rules: rules, aliases: aliases}, nil
}

// Generate expands t from its root. An empty tree yields "".
func (g *Generator) Generate(t *tree.Tree) (string, error) {
	if t.Empty() {
		return "", nil
	}
	var b strings.Builder
	if err := g.expand(&b, t, 0); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (g *Generator) expand(b *strings.Builder, t *tree.Tree, i int) error {
	n := t.Node(i)
	name := n.TypeName
	if c, ok := g.aliases[name]; ok {
		name = c
	}
	exp, ok := g.rules.Expansions[name]
	if !ok {
		switch g.rules.Unknown {
		case Ignore:
			return nil
		case Expand:
			for _, c := range t.Children(i) {
				if err := g.expand(b, t, c); err != nil {
					return err
				}
			}
			return nil
		default:
			return fmt.Errorf("%w %q (node %d)", ErrUnknownType, n.TypeName, i)
		}
	}

	if err := g.write(b, &n.Payload, exp.Header); err != nil {
		return err
	}
	for k, c := range t.Children(i) {
		if k > 0 {
			if err := g.write(b, &n.Payload, exp.Delimiter); err != nil {
				return err
			}
		}
		if err := g.expand(b, t, c); err != nil {
			return err
		}
	}
	return g.write(b, &n.Payload, exp.Tail)
}

func (g *Generator) write(b *strings.Builder, p *tree.Payload, fragment []tree.LocalValue) error {
	for _, v := range fragment {
		s, err := v.Eval(p)
		if err != nil {
			if g.rules.OnEvalFail == Skip {
				continue
			}
			return err
		}
		b.WriteString(s)
	}
	return nil
}
