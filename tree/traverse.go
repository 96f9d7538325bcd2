package tree

import (
	"fmt"
	"sort"
)

// Destination is where a traversal step moves to.
type Destination int

const (
	ToParent Destination = iota
	ToPeer
	ToChild
)

func (d Destination) String() string {
	switch d {
	case ToParent:
		return "parent"
	case ToPeer:
		return "peer"
	case ToChild:
		return "child"
	default:
		return "unknown"
	}
}

// Step moves from one node to a related one.
//
// Candidates for Peer and Child steps are narrowed by TypeFilter (empty means
// no filter) and KeyFilter (every listed key must carry the value the
// expression yields at the evaluation start node). The result is then picked
// by Offset (Peer only, 0 disables), by Index (-1 disables), or, when neither
// is set, it must be the only candidate left.
type Step struct {
	Dest       Destination
	TypeFilter string
	KeyFilter  []KeyFilter
	Index      int
	Offset     int
}

// KeyFilter requires a candidate's attribute Key to equal Value.
type KeyFilter struct {
	Key   string
	Value LocalValue
}

// NewStep returns a step with both determiners disabled.
func NewStep(dest Destination) Step {
	return Step{Dest: dest, Index: -1}
}

// Traverse follows path from node cur. Key filter expressions are evaluated
// against origin, which may belong to another tree. It returns the destination
// index and whether every step found one.
func (t *Tree) Traverse(cur int, origin *Payload, path []Step) (int, bool) {
	for i := range path {
		next, ok := t.step(cur, origin, &path[i])
		if !ok {
			return cur, false
		}
		cur = next
	}
	return cur, true
}

func (t *Tree) step(cur int, origin *Payload, s *Step) (int, bool) {
	if cur < 0 || cur >= len(t.nodes) {
		panic(fmt.Sprintf("tree: traversal from out of range index %d", cur))
	}
	node := &t.nodes[cur]

	if s.Dest == ToParent {
		if node.OffsetFromParent == 0 {
			return cur, false
		}
		return cur - node.OffsetFromParent, true
	}

	var candidates []int
	switch s.Dest {
	case ToPeer:
		if node.OffsetFromParent == 0 {
			// the root is its own only peer
			candidates = []int{cur}
		} else {
			candidates = t.Children(cur - node.OffsetFromParent)
		}
	case ToChild:
		candidates = t.Children(cur)
	default:
		panic(fmt.Sprintf("tree: unknown step destination %d", s.Dest))
	}
	if len(candidates) == 0 {
		return cur, false
	}

	// filter values are computed once; failures read as empty strings
	wants := make([]string, len(s.KeyFilter))
	for i, f := range s.KeyFilter {
		v, err := f.Value.Eval(origin)
		if err != nil {
			v = ""
		}
		wants[i] = v
	}

	kept := candidates[:0]
	for _, c := range candidates {
		n := &t.nodes[c]
		if s.TypeFilter != "" && n.TypeName != s.TypeFilter {
			continue
		}
		match := true
		for i, f := range s.KeyFilter {
			// a missing key reads as an empty value
			got, _ := n.Lookup(f.Key)
			if got != wants[i] {
				match = false
				break
			}
		}
		if match {
			kept = append(kept, c)
		}
	}
	candidates = kept
	if len(candidates) == 0 {
		return cur, false
	}

	if s.Offset != 0 {
		if s.Dest != ToPeer {
			return cur, false
		}
		pos := sort.SearchInts(candidates, cur)
		var target int
		if s.Offset > 0 {
			if pos == len(candidates) {
				return cur, false
			}
			if candidates[pos] == cur {
				pos++
			}
			target = pos + s.Offset - 1
		} else {
			target = pos + s.Offset
		}
		if target < 0 || target >= len(candidates) {
			return cur, false
		}
		return candidates[target], true
	}

	if s.Index != -1 {
		if s.Index < 0 || s.Index >= len(candidates) {
			return cur, false
		}
		return candidates[s.Index], true
	}

	if len(candidates) != 1 {
		return cur, false
	}
	return candidates[0], true
}
