package parser

import (
	"fmt"
	"regexp"
	"strings"
)

// find locates boundary d starting the search at pos. It returns the number
// of bytes skipped before the boundary and the boundary length. Without
// preceding content (ct == nil) the boundary must start exactly at pos.
func (r *run) find(pos int, d Decl, ct *ContentType, chop bool) (skip, length int, ok bool) {
	switch d.Kind {
	case DeclLiteral:
		return r.findLiteral(pos, d.Text, ct, chop)
	case DeclLineFeed:
		return r.findLiteral(pos, "\n", ct, chop)
	case DeclRegex:
		return r.findRegex(pos, r.p.regexes[d.Text], ct, chop, false)
	case DeclWhitespace:
		return r.findRegex(pos, r.p.ws, ct, chop, false)
	case DeclOptionalWhitespace:
		return r.findRegex(pos, r.p.optWS, ct, chop, true)
	case DeclRef:
		return r.findNamed(pos, r.p.boundaries[d.Text], ct, chop)
	}
	panic(fmt.Sprintf("parser: unknown boundary kind %d", d.Kind))
}

func (r *run) findLiteral(pos int, s string, ct *ContentType, chop bool) (int, int, bool) {
	if ct == nil {
		if strings.HasPrefix(r.text[pos:], s) {
			return 0, len(s), true
		}
		return 0, 0, false
	}
	cur := pos
	for cur <= len(r.text) {
		d, ok := r.s.literal(cur, s)
		if !ok {
			return 0, 0, false
		}
		at := cur + d
		next, accept := r.checkContent(ct, pos, at, chop)
		if next < 0 {
			return 0, 0, false
		}
		if accept {
			return at - pos, len(s), true
		}
		cur = next
	}
	return 0, 0, false
}

func (r *run) findRegex(pos int, re *regexp.Regexp, ct *ContentType, chop, optional bool) (int, int, bool) {
	if ct == nil {
		d, n, ok := r.s.regex(pos, re)
		if !ok {
			if optional {
				return 0, 0, true
			}
			return 0, 0, false
		}
		if d != 0 {
			return 0, 0, false
		}
		return 0, n, true
	}
	cur := pos
	for cur <= len(r.text) {
		d, n, ok := r.s.regex(cur, re)
		if !ok {
			if optional {
				return 0, 0, true
			}
			return 0, 0, false
		}
		at := cur + d
		next, accept := r.checkContent(ct, pos, at, chop)
		if next < 0 {
			return 0, 0, false
		}
		if accept {
			return at - pos, n, true
		}
		cur = next
	}
	return 0, 0, false
}

// checkContent runs the content checker on text[start:at]. It reports
// whether the candidate is accepted, or else where to resume the search
// (negative when the candidate is rejected outright).
func (r *run) checkContent(ct *ContentType, start, at int, chop bool) (int, bool) {
	res := r.p.checker.Check(*ct, r.text[start:at], chop)
	switch {
	case res < 0:
		return -1, false
	case res == 0:
		return at, true
	}
	next := start + res
	if next <= at {
		panic(fmt.Sprintf("parser: content checker for %q resumed at %d, not past the boundary at %d", ct.Name, next, at))
	}
	return next, false
}

func (r *run) findNamed(pos, idx int, ct *ContentType, chop bool) (int, int, bool) {
	b := &r.p.grammar.Boundaries[idx]
	if b.Kind == Concatenation {
		skip, n, ok := r.find(pos, b.Elements[0], ct, chop)
		if !ok {
			return 0, 0, false
		}
		end := pos + skip + n
		for _, e := range b.Elements[1:] {
			s, n, ok := r.find(end, e, nil, false)
			if !ok || s != 0 {
				return 0, 0, false
			}
			end += n
		}
		return skip, end - pos - skip, true
	}

	// class based: earliest wins, then longest
	var (
		bestSkip, bestLen int
		found             bool
	)
	consider := func(skip, n int, ok bool) {
		if !ok {
			return
		}
		if !found || skip < bestSkip || (skip == bestSkip && n > bestLen) {
			bestSkip, bestLen, found = skip, n, true
		}
	}
	for _, e := range b.Elements {
		consider(r.find(pos, e, ct, chop))
	}
	for _, c := range r.p.classChildren[idx] {
		consider(r.findNamed(pos, c, ct, chop))
	}
	return bestSkip, bestLen, found
}

// chopTail returns how many bytes of whitespace end text[start:end].
func (r *run) chopTail(start, end int) int {
	n := end
	for n > start {
		chopped := false
		for _, ws := range r.p.grammar.Whitespace {
			if strings.HasSuffix(r.text[start:n], ws) {
				n -= len(ws)
				chopped = true
				break
			}
		}
		if !chopped {
			break
		}
	}
	return end - n
}
