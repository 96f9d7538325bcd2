package tree

import "fmt"

/*
Arena-based Tree Builder

Nodes under construction live in a single slice and refer to each other by
Handle instead of by pointer. Every node keeps optional handles to its parent,
its first child and its two neighbouring peers, so detaching and appending are
constant time and no node ever has to be freed or reallocated while the graph
is rearranged.

A node's Handle doubles as its sequence number: handles are handed out in
creation order and never reused for the lifetime of the builder. Flattening
can report, for each index of the resulting Tree, the sequence number of the
builder node it came from.
*/

// Handle identifies a node inside a Builder.
type Handle int

// NoNode is the absent handle.
const NoNode Handle = -1

type builderNode struct {
	payload    Payload
	parent     Handle
	firstChild Handle
	prev       Handle
	next       Handle
}

// Builder is a mutable tree under construction.
type Builder struct {
	nodes []builderNode
	root  Handle
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		nodes: make([]builderNode, 0, 64),
		root:  NoNode,
	}
}

// Len returns the number of allocated nodes, attached or not.
func (b *Builder) Len() int { return len(b.nodes) }

// Root returns the root handle, or NoNode.
func (b *Builder) Root() Handle { return b.root }

// SetRoot makes h the node flattening starts from.
func (b *Builder) SetRoot(h Handle) {
	b.check(h)
	b.root = h
}

// Allocate creates a detached node.
func (b *Builder) Allocate() Handle {
	h := Handle(len(b.nodes))
	b.nodes = append(b.nodes, builderNode{
		parent:     NoNode,
		firstChild: NoNode,
		prev:       NoNode,
		next:       NoNode,
	})
	return h
}

// AddNode allocates a node and appends it to parent's child list. With
// parent NoNode the node stays detached, and becomes the root if there is
// none yet.
func (b *Builder) AddNode(parent Handle) Handle {
	h := b.Allocate()
	if parent != NoNode {
		b.SetParent(h, parent)
	} else if b.root == NoNode {
		b.root = h
	}
	return h
}

// Payload gives write access to the data of node h.
func (b *Builder) Payload(h Handle) *Payload {
	b.check(h)
	return &b.nodes[h].payload
}

// Seq returns the creation sequence number of h.
func (b *Builder) Seq(h Handle) int {
	b.check(h)
	return int(h)
}

func (b *Builder) Parent(h Handle) Handle     { b.check(h); return b.nodes[h].parent }
func (b *Builder) FirstChild(h Handle) Handle { b.check(h); return b.nodes[h].firstChild }
func (b *Builder) NextPeer(h Handle) Handle   { b.check(h); return b.nodes[h].next }
func (b *Builder) PrevPeer(h Handle) Handle   { b.check(h); return b.nodes[h].prev }

// Detach unlinks h from its parent and peers. Detached nodes are left alone.
func (b *Builder) Detach(h Handle) {
	b.check(h)
	n := &b.nodes[h]
	if n.parent == NoNode {
		if n.prev != NoNode || n.next != NoNode {
			panic(fmt.Sprintf("tree: detached node %d still has peers", h))
		}
		return
	}

	if n.prev != NoNode {
		if b.nodes[n.prev].next != h {
			panic(fmt.Sprintf("tree: broken peer link before node %d", h))
		}
		b.nodes[n.prev].next = n.next
	} else {
		if b.nodes[n.parent].firstChild != h {
			panic(fmt.Sprintf("tree: node %d is not the first child of %d", h, n.parent))
		}
		b.nodes[n.parent].firstChild = n.next
	}
	if n.next != NoNode {
		if b.nodes[n.next].prev != h {
			panic(fmt.Sprintf("tree: broken peer link after node %d", h))
		}
		b.nodes[n.next].prev = n.prev
	}

	n.parent = NoNode
	n.prev = NoNode
	n.next = NoNode
}

// SetParent detaches h and appends it at the tail of parent's child list.
func (b *Builder) SetParent(h, parent Handle) {
	b.check(parent)
	b.checkNotAncestor(h, parent)
	b.Detach(h)

	n := &b.nodes[h]
	n.parent = parent
	p := &b.nodes[parent]
	if p.firstChild == NoNode {
		p.firstChild = h
		return
	}
	last := p.firstChild
	for b.nodes[last].next != NoNode {
		last = b.nodes[last].next
	}
	b.nodes[last].next = h
	n.prev = last
}

// ChangePosition detaches h and splices it into newParent's child list right
// after pred, or at the head when pred is NoNode. A NoNode newParent keeps the
// current parent.
func (b *Builder) ChangePosition(h, newParent, pred Handle) {
	b.check(h)
	if newParent == NoNode {
		newParent = b.nodes[h].parent
	}
	if newParent == NoNode {
		panic(fmt.Sprintf("tree: node %d has no parent to reposition under", h))
	}
	if pred == h {
		panic(fmt.Sprintf("tree: node %d cannot follow itself", h))
	}
	b.checkNotAncestor(h, newParent)
	if pred != NoNode {
		b.check(pred)
		if b.nodes[pred].parent != newParent {
			panic(fmt.Sprintf("tree: node %d is not a child of %d", pred, newParent))
		}
	}
	b.Detach(h)

	n := &b.nodes[h]
	n.parent = newParent
	p := &b.nodes[newParent]
	if pred == NoNode {
		n.next = p.firstChild
		if p.firstChild != NoNode {
			b.nodes[p.firstChild].prev = h
		}
		p.firstChild = h
		return
	}
	n.prev = pred
	n.next = b.nodes[pred].next
	if n.next != NoNode {
		b.nodes[n.next].prev = h
	}
	b.nodes[pred].next = h
}

// Flatten converts the subtree under the root into a Tree. A builder without
// root yields an empty tree.
func (b *Builder) Flatten() *Tree {
	t, _ := b.flatten(false)
	return t
}

// FlattenWithSequence is Flatten plus a table mapping each index of the
// resulting tree to the sequence number of the builder node it came from.
func (b *Builder) FlattenWithSequence() (*Tree, []int) {
	return b.flatten(true)
}

func (b *Builder) flatten(withSeq bool) (*Tree, []int) {
	if b.root == NoNode {
		return &Tree{}, nil
	}
	var (
		nodes []Node
		seq   []int
	)
	var visit func(h Handle, parentIndex int)
	visit = func(h Handle, parentIndex int) {
		index := len(nodes)
		src := &b.nodes[h]
		nodes = append(nodes, Node{
			Payload:          src.payload.Clone(),
			OffsetFromParent: index - parentIndex,
		})
		if withSeq {
			seq = append(seq, int(h))
		}
		var offsets []int
		for c := src.firstChild; c != NoNode; c = b.nodes[c].next {
			offsets = append(offsets, len(nodes)-index)
			visit(c, index)
		}
		nodes[index].OffsetToChildren = offsets
	}
	visit(b.root, 0)
	return &Tree{nodes: nodes}, seq
}

func (b *Builder) check(h Handle) {
	if h < 0 || int(h) >= len(b.nodes) {
		panic(fmt.Sprintf("tree: invalid handle %d", h))
	}
}

func (b *Builder) checkNotAncestor(h, parent Handle) {
	b.check(h)
	for p := parent; p != NoNode; p = b.nodes[p].parent {
		if p == h {
			panic(fmt.Sprintf("tree: attaching node %d under %d would create a cycle", h, parent))
		}
	}
}
