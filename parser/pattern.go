package parser

import "github.com/gnoswap-labs/treeform/tree"

type span struct{ start, end int }

// match is a successful pattern attempt that has not been materialized yet.
type match struct {
	rule, pattern int
	typeName      string
	keys          []string
	spans         []span
	// consumed is the total length matched, bounded the part of it taken by
	// boundaries (including chopped whitespace).
	consumed int
	bounded  int
}

// betterThan orders candidate matches: more text consumed wins, then more
// text consumed by boundaries.
func (m *match) betterThan(o *match) bool {
	if m.consumed != o.consumed {
		return m.consumed > o.consumed
	}
	return m.bounded > o.bounded
}

func (m *match) payload(text string) tree.Payload {
	p := tree.Payload{TypeName: m.typeName}
	for i, k := range m.keys {
		p.Append(k, text[m.spans[i].start:m.spans[i].end])
	}
	return p
}

// try attempts pattern pi of rule ri at pos.
func (r *run) try(ri, pi, pos int) (*match, bool) {
	pat := &r.p.grammar.Rules[ri].Patterns[pi]
	elems := pat.Elements
	m := &match{rule: ri, pattern: pi, typeName: pat.TypeName}
	export := func(key string, start, end int) {
		if key != "" {
			m.keys = append(m.keys, key)
			m.spans = append(m.spans, span{start, end})
		}
	}

	for i := 0; i < len(elems); {
		var (
			e          = elems[i]
			ct         *ContentType
			contentKey string
			wsKey      string
			boundary   = e
			tested     = i
			wsElem     = -1
			chop       bool
			mandatory  bool
			next       = i + 1
		)
		if e.Kind == ElemContent {
			ct = r.p.contentType(e.Text)
			contentKey = e.Export
			boundary = elems[next]
			tested = next
			next++
			// content followed by whitespace and then a real boundary: search
			// for that boundary and give the whitespace back afterwards
			if boundary.Kind.isWhitespace() && next < len(elems) {
				after := elems[next]
				if !after.Kind.isWhitespace() && after.Kind != ElemContent {
					wsElem = tested
					wsKey = boundary.Export
					mandatory = boundary.Kind == ElemWhitespace
					chop = true
					boundary = after
					tested = next
					next++
				}
			}
		}

		cur := pos + m.consumed
		skip, n, ok := r.find(cur, boundary.decl(), ct, chop)
		if !ok {
			r.emit(Event{ID: PatternNotMatched, Start: pos, End: cur, Rule: ri, Pattern: pi, Element: tested, TypeName: pat.TypeName})
			return nil, false
		}
		m.consumed += skip + n
		m.bounded += n

		if ct != nil {
			contentEnd := cur + skip
			if chop {
				c := r.chopTail(cur, contentEnd)
				if c == 0 && mandatory {
					r.emit(Event{ID: PatternNotMatched, Start: pos, End: contentEnd, Rule: ri, Pattern: pi, Element: wsElem, TypeName: pat.TypeName})
					return nil, false
				}
				contentEnd -= c
				m.bounded += c
			}
			export(contentKey, cur, contentEnd)
			if wsElem >= 0 {
				export(wsKey, contentEnd, cur+skip)
			}
		}
		export(boundary.Export, cur+skip, cur+skip+n)
		i = next
	}

	r.emit(Event{ID: PatternMatched, Start: pos, End: pos + m.consumed, Rule: ri, Pattern: pi, Element: -1, TypeName: pat.TypeName})
	return m, true
}
