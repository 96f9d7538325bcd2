package parser

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// DeclKind is the kind of a boundary declaration.
type DeclKind int

const (
	DeclLiteral DeclKind = iota
	DeclRegex
	DeclOptionalWhitespace
	DeclWhitespace
	DeclLineFeed
	// DeclRef refers to a named boundary by name.
	DeclRef
)

var declNames = []string{"literal", "regex", "optional-ws", "ws", "lf", "ref"}

func (k DeclKind) String() string {
	if k < 0 || int(k) >= len(declNames) {
		return "unknown"
	}
	return declNames[k]
}

func (k DeclKind) MarshalYAML() (any, error) { return k.String(), nil }

func (k *DeclKind) UnmarshalYAML(n *yaml.Node) error {
	for i, name := range declNames {
		if n.Value == name {
			*k = DeclKind(i)
			return nil
		}
	}
	return fmt.Errorf("line %d: unknown boundary kind %q", n.Line, n.Value)
}

// Decl declares one boundary, either by value or by reference to a named
// boundary.
type Decl struct {
	Kind DeclKind `yaml:"kind"`
	Text string   `yaml:"text,omitempty"`
}

// BoundaryKind is the kind of a named boundary.
type BoundaryKind int

const (
	// Concatenation matches its elements back to back.
	Concatenation BoundaryKind = iota
	// ClassBased matches any of its elements or of the boundaries that list
	// it as a parent.
	ClassBased
)

func (k BoundaryKind) String() string {
	if k == ClassBased {
		return "class"
	}
	return "concat"
}

func (k BoundaryKind) MarshalYAML() (any, error) { return k.String(), nil }

func (k *BoundaryKind) UnmarshalYAML(n *yaml.Node) error {
	switch n.Value {
	case "concat":
		*k = Concatenation
	case "class":
		*k = ClassBased
	default:
		return fmt.Errorf("line %d: unknown named boundary kind %q", n.Line, n.Value)
	}
	return nil
}

// NamedBoundary is a reusable boundary referred to by name.
type NamedBoundary struct {
	Name     string       `yaml:"name"`
	Kind     BoundaryKind `yaml:"kind"`
	Elements []Decl       `yaml:"elements"`
	// Parents lists the class-based boundaries this one is registered with.
	Parents []string `yaml:"parents,omitempty"`
}

// ContentType describes free text whose extent is fixed by the surrounding
// boundaries.
type ContentType struct {
	Name string `yaml:"name"`
	// Nest names the balanced parentheses allowed inside the content. It is
	// checked for consistency but not enforced while parsing.
	Nest []string `yaml:"nest,omitempty"`
	// Validator is an optional script run by a ContentChecker.
	Validator string `yaml:"validator,omitempty"`
}

// Parenthesis is a balanced pair of delimiters.
type Parenthesis struct {
	Name  string `yaml:"name"`
	Open  string `yaml:"open"`
	Close string `yaml:"close"`
}

// ElementKind is the kind of a pattern element.
type ElementKind int

const (
	ElemLiteral ElementKind = iota
	ElemRegex
	ElemOptionalWhitespace
	ElemWhitespace
	ElemLineFeed
	ElemBoundary
	ElemContent
)

var elementNames = []string{"literal", "regex", "optional-ws", "ws", "lf", "boundary", "content"}

func (k ElementKind) String() string {
	if k < 0 || int(k) >= len(elementNames) {
		return "unknown"
	}
	return elementNames[k]
}

func (k ElementKind) MarshalYAML() (any, error) { return k.String(), nil }

func (k *ElementKind) UnmarshalYAML(n *yaml.Node) error {
	for i, name := range elementNames {
		if n.Value == name {
			*k = ElementKind(i)
			return nil
		}
	}
	return fmt.Errorf("line %d: unknown pattern element kind %q", n.Line, n.Value)
}

func (k ElementKind) isWhitespace() bool {
	return k == ElemOptionalWhitespace || k == ElemWhitespace
}

// Element is one step of a pattern. Text holds the literal, the regex, the
// named boundary or the content type name, depending on Kind. A non-empty
// Export stores the matched text under that key on the produced node.
type Element struct {
	Kind   ElementKind `yaml:"kind"`
	Text   string      `yaml:"text,omitempty"`
	Export string      `yaml:"export,omitempty"`
}

func (e Element) decl() Decl {
	switch e.Kind {
	case ElemLiteral:
		return Decl{Kind: DeclLiteral, Text: e.Text}
	case ElemRegex:
		return Decl{Kind: DeclRegex, Text: e.Text}
	case ElemOptionalWhitespace:
		return Decl{Kind: DeclOptionalWhitespace}
	case ElemWhitespace:
		return Decl{Kind: DeclWhitespace}
	case ElemLineFeed:
		return Decl{Kind: DeclLineFeed}
	case ElemBoundary:
		return Decl{Kind: DeclRef, Text: e.Text}
	}
	panic(fmt.Sprintf("parser: %s element is not a boundary", e.Kind))
}

// Pattern produces one node of TypeName when all of its elements match. An
// empty TypeName marks an early-exit pattern: it consumes text, emits nothing
// and closes the current frame.
type Pattern struct {
	TypeName string    `yaml:"type"`
	Elements []Element `yaml:"elements,omitempty"`
	// Quick is the hole notation the elements were derived from, if any.
	Quick string `yaml:"quick,omitempty"`
}

// Rule groups the patterns that may appear under the rules named in Parents.
type Rule struct {
	Name     string    `yaml:"name"`
	Parents  []string  `yaml:"parents,omitempty"`
	Patterns []Pattern `yaml:"patterns,omitempty"`
}

// Grammar is the complete parser input.
type Grammar struct {
	Root        string          `yaml:"root"`
	Rules       []Rule          `yaml:"rules"`
	Boundaries  []NamedBoundary `yaml:"boundaries,omitempty"`
	Contents    []ContentType   `yaml:"contents,omitempty"`
	Parentheses []Parenthesis   `yaml:"parentheses,omitempty"`
	Whitespace  []string        `yaml:"whitespace"`
	// KeepEmptyLines disables skipping whitespace-only lines before each
	// match attempt.
	KeepEmptyLines bool `yaml:"keep_empty_lines,omitempty"`
}
