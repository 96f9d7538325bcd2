// Package tree holds the ordered attribute tree shared by the parser and the
// transformer, the arena builder used to construct it, and the small
// expression language used to read values out of it.
package tree

import (
	"errors"
	"fmt"
)

// Payload is the data carried by a node: a type name and an ordered list of
// key/value attributes. Keys are not required to be unique.
type Payload struct {
	TypeName string
	Keys     []string
	Values   []string
}

// Index returns the position of the first attribute with the given key, or -1.
func (p *Payload) Index(key string) int {
	for i, k := range p.Keys {
		if k == key {
			return i
		}
	}
	return -1
}

// Lookup returns the value of the first attribute with the given key.
func (p *Payload) Lookup(key string) (string, bool) {
	if i := p.Index(key); i >= 0 {
		return p.Values[i], true
	}
	return "", false
}

// Append adds an attribute at the end of the list.
func (p *Payload) Append(key, value string) {
	p.Keys = append(p.Keys, key)
	p.Values = append(p.Values, value)
}

// Clone returns a deep copy of the payload.
func (p Payload) Clone() Payload {
	return Payload{
		TypeName: p.TypeName,
		Keys:     append([]string(nil), p.Keys...),
		Values:   append([]string(nil), p.Values...),
	}
}

func (p *Payload) equal(o *Payload) bool {
	if p.TypeName != o.TypeName || len(p.Keys) != len(o.Keys) || len(p.Values) != len(o.Values) {
		return false
	}
	for i := range p.Keys {
		if p.Keys[i] != o.Keys[i] || p.Values[i] != o.Values[i] {
			return false
		}
	}
	return true
}

// Node is one entry of a flattened tree.
//
// OffsetFromParent is the node's index minus its parent's index (0 only for
// the root). OffsetToChildren holds, in document order, each child's index
// minus this node's index.
type Node struct {
	Payload
	OffsetFromParent int
	OffsetToChildren []int
}

// Tree is an immutable ordered tree stored as a depth-first pre-order array.
// Index 0 is the root when the tree is not empty.
type Tree struct {
	nodes []Node
}

var ErrMalformedTree = errors.New("malformed tree")

// FromNodes builds a tree from an already flattened node list after checking
// the offset invariants.
func FromNodes(nodes []Node) (*Tree, error) {
	for i := range nodes {
		n := &nodes[i]
		if i == 0 {
			if n.OffsetFromParent != 0 {
				return nil, fmt.Errorf("%w: root has parent offset %d", ErrMalformedTree, n.OffsetFromParent)
			}
		} else if n.OffsetFromParent <= 0 || n.OffsetFromParent > i {
			return nil, fmt.Errorf("%w: node %d has parent offset %d", ErrMalformedTree, i, n.OffsetFromParent)
		}
		if len(n.Keys) != len(n.Values) {
			return nil, fmt.Errorf("%w: node %d has %d keys and %d values", ErrMalformedTree, i, len(n.Keys), len(n.Values))
		}
		prev := 0
		for _, off := range n.OffsetToChildren {
			c := i + off
			if off <= prev || c >= len(nodes) {
				return nil, fmt.Errorf("%w: node %d has bad child offset %d", ErrMalformedTree, i, off)
			}
			if nodes[c].OffsetFromParent != off {
				return nil, fmt.Errorf("%w: node %d does not point back to parent %d", ErrMalformedTree, c, i)
			}
			prev = off
		}
	}
	// every non-root node must be listed by its parent exactly once
	seen := make([]int, len(nodes))
	for i := range nodes {
		for _, off := range nodes[i].OffsetToChildren {
			seen[i+off]++
		}
	}
	for i := 1; i < len(nodes); i++ {
		if seen[i] != 1 {
			return nil, fmt.Errorf("%w: node %d is referenced %d times", ErrMalformedTree, i, seen[i])
		}
	}
	// each subtree must be contiguous: a first child follows its parent and
	// every later child starts where the previous sibling's subtree ends
	end := make([]int, len(nodes))
	for i := len(nodes) - 1; i >= 0; i-- {
		next := i + 1
		for _, off := range nodes[i].OffsetToChildren {
			if i+off != next {
				return nil, fmt.Errorf("%w: node %d is not in pre-order position", ErrMalformedTree, i+off)
			}
			next = end[i+off]
		}
		end[i] = next
	}
	if len(nodes) > 0 && end[0] != len(nodes) {
		return nil, fmt.Errorf("%w: root subtree ends at %d", ErrMalformedTree, end[0])
	}
	return &Tree{nodes: nodes}, nil
}

// Len returns the number of nodes.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.nodes)
}

func (t *Tree) Empty() bool { return t.Len() == 0 }

// Node returns the node at index i. The returned value shares its slices with
// the tree and must not be modified.
func (t *Tree) Node(i int) *Node {
	return &t.nodes[i]
}

// Nodes returns a copy of the flattened node list.
func (t *Tree) Nodes() []Node {
	out := make([]Node, len(t.nodes))
	for i, n := range t.nodes {
		out[i] = Node{
			Payload:          n.Payload.Clone(),
			OffsetFromParent: n.OffsetFromParent,
			OffsetToChildren: append([]int(nil), n.OffsetToChildren...),
		}
	}
	return out
}

// Parent returns the parent index of node i, or -1 for the root.
func (t *Tree) Parent(i int) int {
	off := t.nodes[i].OffsetFromParent
	if off == 0 {
		return -1
	}
	return i - off
}

// Children returns the indices of the children of node i in document order.
func (t *Tree) Children(i int) []int {
	offs := t.nodes[i].OffsetToChildren
	out := make([]int, len(offs))
	for k, off := range offs {
		out[k] = i + off
	}
	return out
}

// Depth returns the number of edges between node i and the root.
func (t *Tree) Depth(i int) int {
	d := 0
	for t.nodes[i].OffsetFromParent != 0 {
		i -= t.nodes[i].OffsetFromParent
		d++
	}
	return d
}

// Walk visits every node in pre-order. Returning false from fn skips the
// node's subtree.
func (t *Tree) Walk(fn func(index, depth int) bool) {
	if t.Empty() {
		return
	}
	t.walk(0, 0, fn)
}

func (t *Tree) walk(i, depth int, fn func(index, depth int) bool) {
	if !fn(i, depth) {
		return
	}
	for _, off := range t.nodes[i].OffsetToChildren {
		t.walk(i+off, depth+1, fn)
	}
}

// Equal reports whether two trees have the same shape and payloads.
func (t *Tree) Equal(o *Tree) bool {
	if t.Len() != o.Len() {
		return false
	}
	for i := 0; i < t.Len(); i++ {
		a, b := &t.nodes[i], &o.nodes[i]
		if a.OffsetFromParent != b.OffsetFromParent || len(a.OffsetToChildren) != len(b.OffsetToChildren) {
			return false
		}
		for k := range a.OffsetToChildren {
			if a.OffsetToChildren[k] != b.OffsetToChildren[k] {
				return false
			}
		}
		if !a.Payload.equal(&b.Payload) {
			return false
		}
	}
	return true
}
