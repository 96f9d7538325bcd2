package transform

import (
	"fmt"
	"strings"
)

// Cause classifies a diagnostic.
type Cause int

const (
	// UnrecognizedNodeType: a type without rules met an Error action.
	UnrecognizedNodeType Cause = iota
	// NoRuleMatched: no rule held and the default action is Error.
	NoRuleMatched
	// RuleError: the matching rule's action is Error.
	RuleError
	// TemplateType: a template type failed to evaluate.
	TemplateType
	// TemplateAttr: a template attribute key or value failed to evaluate.
	TemplateAttr
	// PatchFailed: a Modify patch key or value failed to evaluate.
	PatchFailed
	// ExtraRoot: a top-level node was emitted after the output root.
	ExtraRoot
)

var causeNames = []string{
	"unrecognized node type",
	"no rule matched",
	"error rule",
	"template type",
	"template attribute",
	"patch",
	"extra root",
}

func (c Cause) String() string {
	if c < 0 || int(c) >= len(causeNames) {
		return fmt.Sprintf("Cause(%d)", int(c))
	}
	return causeNames[c]
}

// Diagnostic describes one problem met while transforming. Indices that do
// not apply are -1.
type Diagnostic struct {
	Cause    Cause
	Source   int
	TypeName string
	Rule     int
	Template int
	Patch    int
	// AttrIndex, Key, Value, KeyOK and ValueOK describe a failed attribute
	// or patch. Key and Value hold whatever did evaluate.
	AttrIndex int
	Key       string
	Value     string
	KeyOK     bool
	ValueOK   bool
	// Err is the evaluation error, if any.
	Err error
}

func (d Diagnostic) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "node %d (%s): %s", d.Source, d.TypeName, d.Cause)
	if d.Rule >= 0 {
		fmt.Fprintf(&b, ", rule %d", d.Rule)
	}
	if d.Template >= 0 {
		fmt.Fprintf(&b, ", template %d", d.Template)
	}
	if d.Patch >= 0 {
		fmt.Fprintf(&b, ", patch %d", d.Patch)
	}
	if d.AttrIndex >= 0 {
		fmt.Fprintf(&b, ", attribute %d", d.AttrIndex)
	}
	if d.Err != nil {
		fmt.Fprintf(&b, ": %v", d.Err)
	}
	return b.String()
}

func (d Diagnostic) Unwrap() error { return d.Err }

func newDiagnostic(cause Cause, source int, typeName string, rule int) Diagnostic {
	return Diagnostic{
		Cause:     cause,
		Source:    source,
		TypeName:  typeName,
		Rule:      rule,
		Template:  -1,
		Patch:     -1,
		AttrIndex: -1,
	}
}
