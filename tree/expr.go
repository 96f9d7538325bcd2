package tree

import (
	"errors"
	"fmt"
)

var (
	// ErrEvaluation is the parent of every expression evaluation failure.
	ErrEvaluation = errors.New("evaluation failed")
	ErrNoSuchKey  = fmt.Errorf("%w: no such key", ErrEvaluation)
	ErrTraversal  = fmt.Errorf("%w: traversal found no destination", ErrEvaluation)
	ErrNoBranch   = fmt.Errorf("%w: no branch matched", ErrEvaluation)
)

// ValueKind selects what a LocalValue reads.
type ValueKind int

const (
	// Literal yields Text itself.
	Literal ValueKind = iota
	// KeyValue yields the value of the first attribute named Text.
	KeyValue
	// NodeType yields the node's type name.
	NodeType
)

func (k ValueKind) String() string {
	switch k {
	case Literal:
		return "literal"
	case KeyValue:
		return "key"
	case NodeType:
		return "type"
	default:
		return "unknown"
	}
}

// LocalValue is a value computed from a single node.
type LocalValue struct {
	Kind ValueKind
	Text string
}

func Lit(s string) LocalValue { return LocalValue{Kind: Literal, Text: s} }
func Key(k string) LocalValue { return LocalValue{Kind: KeyValue, Text: k} }
func Type() LocalValue        { return LocalValue{Kind: NodeType} }

// Eval computes the value against the payload of node.
func (v LocalValue) Eval(node *Payload) (string, error) {
	switch v.Kind {
	case Literal:
		return v.Text, nil
	case KeyValue:
		if s, ok := node.Lookup(v.Text); ok {
			return s, nil
		}
		return "", fmt.Errorf("%w %q on %q", ErrNoSuchKey, v.Text, node.TypeName)
	case NodeType:
		return node.TypeName, nil
	}
	panic(fmt.Sprintf("tree: unknown value kind %d", v.Kind))
}

// Context is the environment expressions are evaluated in.
type Context struct {
	Main  *Tree
	Side  []*Tree
	Start int
}

// MainTree is the TreeIndex sentinel selecting the main tree.
const MainTree = -1

func (c *Context) startNode() *Payload {
	return &c.Main.Node(c.Start).Payload
}

// pick returns the tree a path runs in and the node it starts from. Side
// trees are walked from their root.
func (c *Context) pick(treeIndex int) (*Tree, int) {
	if treeIndex == MainTree {
		return c.Main, c.Start
	}
	if treeIndex < 0 || treeIndex >= len(c.Side) {
		panic(fmt.Sprintf("tree: side tree index %d out of range (have %d)", treeIndex, len(c.Side)))
	}
	return c.Side[treeIndex], 0
}

func (c *Context) traverse(treeIndex int, path []Step) (*Tree, int, bool) {
	t, from := c.pick(treeIndex)
	if t.Empty() {
		return t, from, false
	}
	dest, ok := t.Traverse(from, c.startNode(), path)
	return t, dest, ok
}

// Strategy controls how a SingleValue combines its traversal and default.
type Strategy int

const (
	// DefaultOnly evaluates Default at the start node.
	DefaultOnly Strategy = iota
	// TraverseOnly requires the traversal and the value at its destination.
	TraverseOnly
	// TraverseWithFallback tries the traversal, then falls back to Default.
	TraverseWithFallback
)

func (s Strategy) String() string {
	switch s {
	case DefaultOnly:
		return "default"
	case TraverseOnly:
		return "traverse"
	case TraverseWithFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// SingleValue reads a value either at the start node or at the end of a
// traversal in the main tree or one of the side trees.
type SingleValue struct {
	Tree     int
	Path     []Step
	At       LocalValue
	Default  LocalValue
	Strategy Strategy
}

// Const is a SingleValue that always yields s.
func Const(s string) SingleValue {
	return SingleValue{Tree: MainTree, Default: Lit(s), Strategy: DefaultOnly}
}

// Here is a SingleValue evaluating v at the start node.
func Here(v LocalValue) SingleValue {
	return SingleValue{Tree: MainTree, Default: v, Strategy: DefaultOnly}
}

func (v SingleValue) Eval(ctx *Context) (string, error) {
	if len(v.Path) > 0 && v.Strategy != DefaultOnly {
		t, dest, ok := ctx.traverse(v.Tree, v.Path)
		if ok {
			s, err := v.At.Eval(&t.Node(dest).Payload)
			if err == nil {
				return s, nil
			}
			if v.Strategy == TraverseOnly {
				return "", err
			}
		} else if v.Strategy == TraverseOnly {
			return "", ErrTraversal
		}
	} else if v.Strategy == TraverseOnly {
		panic("tree: traverse-only value without a path")
	}
	return v.Default.Eval(ctx.startNode())
}

// PredicateKind selects the test a Predicate performs.
type PredicateKind int

const (
	ValueEqual PredicateKind = iota
	NodeExist
)

func (k PredicateKind) String() string {
	switch k {
	case ValueEqual:
		return "equal"
	case NodeExist:
		return "exists"
	default:
		return "unknown"
	}
}

// NodeTest is a traversal whose success is the tested fact.
type NodeTest struct {
	Tree int
	Path []Step
}

// Predicate is a boolean test with optional inversion.
type Predicate struct {
	Kind   PredicateKind
	Invert bool
	Left   SingleValue
	Right  SingleValue
	Exists NodeTest
}

// Equal builds a ValueEqual predicate.
func Equal(l, r SingleValue) Predicate {
	return Predicate{Kind: ValueEqual, Left: l, Right: r}
}

// Exists builds a NodeExist predicate on the main tree.
func Exists(path ...Step) Predicate {
	return Predicate{Kind: NodeExist, Exists: NodeTest{Tree: MainTree, Path: path}}
}

// Not returns p with its inversion flipped.
func (p Predicate) Not() Predicate {
	p.Invert = !p.Invert
	return p
}

// Eval returns the truth of the predicate, or an error when an operand could
// not be evaluated. An error is neither true nor false.
func (p Predicate) Eval(ctx *Context) (bool, error) {
	var result bool
	switch p.Kind {
	case ValueEqual:
		l, err := p.Left.Eval(ctx)
		if err != nil {
			return false, err
		}
		r, err := p.Right.Eval(ctx)
		if err != nil {
			return false, err
		}
		result = l == r
	case NodeExist:
		_, _, result = ctx.traverse(p.Exists.Tree, p.Exists.Path)
	default:
		panic(fmt.Sprintf("tree: unknown predicate kind %d", p.Kind))
	}
	return result != p.Invert, nil
}

// AllHold reports whether every predicate evaluates without error to true.
func AllHold(ctx *Context, preds []Predicate) bool {
	for _, p := range preds {
		ok, err := p.Eval(ctx)
		if err != nil || !ok {
			return false
		}
	}
	return true
}

// Branch pairs a value with the predicates guarding it.
type Branch struct {
	When  []Predicate
	Value SingleValue
}

// BranchedValue yields the value of the first branch whose predicates all
// hold and whose value evaluates.
type BranchedValue struct {
	Branches []Branch
}

// Always is a single unconditional branch.
func Always(v SingleValue) BranchedValue {
	return BranchedValue{Branches: []Branch{{Value: v}}}
}

// Eval returns the value of the first branch whose predicates hold and whose
// value evaluates. When every such value fails, the last failure is wrapped
// together with ErrNoBranch.
func (b BranchedValue) Eval(ctx *Context) (string, error) {
	var last error
	for _, br := range b.Branches {
		if !AllHold(ctx, br.When) {
			continue
		}
		s, err := br.Value.Eval(ctx)
		if err != nil {
			last = err
			continue
		}
		return s, nil
	}
	if last != nil {
		return "", fmt.Errorf("%w: %w", ErrNoBranch, last)
	}
	return "", ErrNoBranch
}
