package transform

import (
	"errors"
	"fmt"

	"github.com/gnoswap-labs/treeform/tree"
)

// Action is what happens to a source node.
type Action int

const (
	// PassThrough copies the node and transforms its children under the copy.
	PassThrough Action = iota
	// Remove drops the node and its subtree.
	Remove
	// Modify is PassThrough with patches applied to the copy.
	Modify
	// Replace emits the rule's templates instead of the node and its subtree.
	Replace
	// Error records a diagnostic and removes the node.
	Error
)

var actionNames = []string{"passthrough", "remove", "modify", "replace", "error"}

func (a Action) String() string {
	if a < 0 || int(a) >= len(actionNames) {
		return fmt.Sprintf("Action(%d)", int(a))
	}
	return actionNames[a]
}

// KV is an attribute whose key and value are both computed.
type KV struct {
	Key   tree.BranchedValue `yaml:"key"`
	Value tree.BranchedValue `yaml:"value"`
}

// Template describes one output node of a Replace rule. Parent is -1 for the
// current destination parent, or the index of an earlier template of the
// same rule. A template whose type evaluates to "" and that has no
// attributes copies the source payload.
type Template struct {
	Type   tree.BranchedValue `yaml:"type"`
	Attrs  []KV               `yaml:"attrs,omitempty"`
	Parent int                `yaml:"parent"`
}

// CopyTemplate returns a template copying the source payload under parent.
func CopyTemplate(parent int) Template {
	return Template{Type: tree.Always(tree.Const("")), Parent: parent}
}

// Rule applies to a node of the type it is listed under when all of When
// hold.
type Rule struct {
	When      []tree.Predicate `yaml:"when,omitempty"`
	Action    Action           `yaml:"action"`
	Templates []Template       `yaml:"templates,omitempty"`
	// Patches are applied in order by Modify. An empty key sets the type name.
	Patches []KV `yaml:"patches,omitempty"`
	// Skip lists paths from the matched node; the source nodes they reach
	// later in pre-order are removed.
	Skip [][]tree.Step `yaml:"skip,omitempty"`
}

// Rules is a complete transform rule set.
type Rules struct {
	// Default applies when no rule of a known type matches.
	Default Action
	// Unrecognized applies to types without rules, unless
	// UseDefaultForUnrecognized is set.
	Unrecognized              Action
	UseDefaultForUnrecognized bool
	// SideTrees names the side trees, in the order Transform receives them.
	SideTrees []string
	ByType    map[string][]Rule
}

// ErrInvalidRules is returned by Validate for rule sets New would reject.
var ErrInvalidRules = errors.New("invalid transform rules")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRules, fmt.Sprintf(format, args...))
}

func fallbackAction(a Action) bool {
	return a == PassThrough || a == Remove || a == Error
}

// Validate checks actions and template parent links.
func (r *Rules) Validate() error {
	if !fallbackAction(r.Default) {
		return invalid("default action must be passthrough, remove or error, not %s", r.Default)
	}
	if !r.UseDefaultForUnrecognized && !fallbackAction(r.Unrecognized) {
		return invalid("unrecognized action must be passthrough, remove or error, not %s", r.Unrecognized)
	}
	for typ, rules := range r.ByType {
		for i, rule := range rules {
			if rule.Action < PassThrough || rule.Action > Error {
				return invalid("%s rule %d: unknown action %d", typ, i, int(rule.Action))
			}
			if rule.Action == Replace && len(rule.Templates) == 0 {
				return invalid("%s rule %d: replace without templates", typ, i)
			}
			if rule.Action != Replace && len(rule.Templates) > 0 {
				return invalid("%s rule %d: templates on a %s rule", typ, i, rule.Action)
			}
			if rule.Action != Modify && len(rule.Patches) > 0 {
				return invalid("%s rule %d: patches on a %s rule", typ, i, rule.Action)
			}
			for j, tpl := range rule.Templates {
				if tpl.Parent < -1 || tpl.Parent >= j {
					return invalid("%s rule %d template %d: parent %d is not an earlier template", typ, i, j, tpl.Parent)
				}
			}
		}
	}
	return nil
}
