package parser

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidGrammar is returned by Validate for grammars New would reject.
var ErrInvalidGrammar = errors.New("invalid grammar")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidGrammar, fmt.Sprintf(format, args...))
}

// Validate checks that every name resolves, every regex compiles and every
// pattern is well formed. New panics on the grammars Validate rejects.
func (g *Grammar) Validate() error {
	if len(g.Whitespace) == 0 {
		return invalid("whitespace list is empty")
	}
	for i, ws := range g.Whitespace {
		if ws == "" {
			return invalid("whitespace entry %d is empty", i)
		}
	}

	parens := make(map[string]bool, len(g.Parentheses))
	for _, p := range g.Parentheses {
		if p.Name == "" || p.Open == "" || p.Close == "" {
			return invalid("parenthesis %q needs a name and both delimiters", p.Name)
		}
		if parens[p.Name] {
			return invalid("duplicate parenthesis %q", p.Name)
		}
		parens[p.Name] = true
	}

	contents := make(map[string]bool, len(g.Contents))
	for _, c := range g.Contents {
		if c.Name == "" {
			return invalid("content type without a name")
		}
		if contents[c.Name] {
			return invalid("duplicate content type %q", c.Name)
		}
		contents[c.Name] = true
		for _, n := range c.Nest {
			if !parens[n] {
				return invalid("content type %q nests unknown parenthesis %q", c.Name, n)
			}
		}
	}

	if err := g.validateBoundaries(); err != nil {
		return err
	}

	rules := make(map[string]bool, len(g.Rules))
	for _, r := range g.Rules {
		if r.Name == "" {
			return invalid("rule without a name")
		}
		if rules[r.Name] {
			return invalid("duplicate rule %q", r.Name)
		}
		rules[r.Name] = true
	}
	if !rules[g.Root] {
		return invalid("root rule %q is not defined", g.Root)
	}
	for _, r := range g.Rules {
		for _, p := range r.Parents {
			if !rules[p] {
				return invalid("rule %q has unknown parent %q", r.Name, p)
			}
		}
		for i, p := range r.Patterns {
			if r.Name == g.Root && p.TypeName == "" {
				return invalid("root rule pattern %d has no type name", i)
			}
			if err := g.validatePattern(p.Elements, contents); err != nil {
				return fmt.Errorf("rule %q pattern %d: %w", r.Name, i, err)
			}
		}
	}
	return nil
}

func (g *Grammar) validatePattern(elems []Element, contents map[string]bool) error {
	if len(elems) == 0 {
		return invalid("pattern has no elements")
	}
	for i, e := range elems {
		switch e.Kind {
		case ElemLiteral:
			if e.Text == "" {
				return invalid("element %d: empty literal", i)
			}
		case ElemRegex:
			if _, err := compile(e.Text); err != nil {
				return invalid("element %d: %v", i, err)
			}
		case ElemBoundary:
			if g.boundary(e.Text) < 0 {
				return invalid("element %d: unknown named boundary %q", i, e.Text)
			}
		case ElemContent:
			if e.Text != "" && !contents[e.Text] {
				return invalid("element %d: unknown content type %q", i, e.Text)
			}
			if i+1 == len(elems) {
				return invalid("element %d: content must be followed by a boundary", i)
			}
			if elems[i+1].Kind == ElemContent {
				return invalid("element %d: content cannot follow content", i+1)
			}
		case ElemOptionalWhitespace, ElemWhitespace, ElemLineFeed:
		default:
			return invalid("element %d: unknown kind %d", i, e.Kind)
		}
	}
	return nil
}

func (g *Grammar) boundary(name string) int {
	for i := range g.Boundaries {
		if g.Boundaries[i].Name == name {
			return i
		}
	}
	return -1
}

func (g *Grammar) validateBoundaries() error {
	seen := make(map[string]bool, len(g.Boundaries))
	for _, b := range g.Boundaries {
		if b.Name == "" {
			return invalid("named boundary without a name")
		}
		if seen[b.Name] {
			return invalid("duplicate named boundary %q", b.Name)
		}
		seen[b.Name] = true
	}
	for _, b := range g.Boundaries {
		if b.Kind == Concatenation && len(b.Elements) == 0 {
			return invalid("boundary %q: empty concatenation", b.Name)
		}
		for _, p := range b.Parents {
			i := g.boundary(p)
			if i < 0 {
				return invalid("boundary %q has unknown parent %q", b.Name, p)
			}
			if g.Boundaries[i].Kind != ClassBased {
				return invalid("boundary %q: parent %q is not class-based", b.Name, p)
			}
		}
		for j, d := range b.Elements {
			switch d.Kind {
			case DeclLiteral:
				if d.Text == "" {
					return invalid("boundary %q element %d: empty literal", b.Name, j)
				}
			case DeclRegex:
				if _, err := compile(d.Text); err != nil {
					return invalid("boundary %q element %d: %v", b.Name, j, err)
				}
			case DeclRef:
				if g.boundary(d.Text) < 0 {
					return invalid("boundary %q element %d: unknown named boundary %q", b.Name, j, d.Text)
				}
			case DeclOptionalWhitespace, DeclWhitespace, DeclLineFeed:
			default:
				return invalid("boundary %q element %d: unknown kind %d", b.Name, j, d.Kind)
			}
		}
	}
	return g.checkBoundaryCycles()
}

// checkBoundaryCycles rejects boundaries that reach themselves through
// references or through class membership, either of which would make the
// search recurse forever.
func (g *Grammar) checkBoundaryCycles() error {
	n := len(g.Boundaries)
	edges := make([][]int, n)
	for i, b := range g.Boundaries {
		for _, d := range b.Elements {
			if d.Kind == DeclRef {
				edges[i] = append(edges[i], g.boundary(d.Text))
			}
		}
		// a class boundary searches its children
		for _, p := range b.Parents {
			pi := g.boundary(p)
			edges[pi] = append(edges[pi], i)
		}
	}

	const (
		unvisited = iota
		active
		done
	)
	state := make([]int, n)
	var visit func(i int) error
	visit = func(i int) error {
		switch state[i] {
		case active:
			return invalid("named boundary %q is recursive", g.Boundaries[i].Name)
		case done:
			return nil
		}
		state[i] = active
		for _, j := range edges[i] {
			if err := visit(j); err != nil {
				return err
			}
		}
		state[i] = done
		return nil
	}
	for i := range g.Boundaries {
		if err := visit(i); err != nil {
			return err
		}
	}
	return nil
}

func compile(expr string) (*regexp.Regexp, error) {
	if expr == "" {
		return nil, errors.New("empty regular expression")
	}
	return regexp.Compile("(?m)" + expr)
}
