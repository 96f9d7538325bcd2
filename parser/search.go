package parser

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/btree"
)

/*
Memoized Search

Every boundary lookup is "find the first occurrence of needle at or after
start". A parse asks that question for the same needles over and over from
positions that only move forward, so each needle keeps an ordered map of the
answers it has already computed:

	key    = position of the occurrence (or len(text) when there was none)
	origin = smallest start the occurrence is known to be the first one for
	length = match length

An entry answers a query from start when key == start, or when key > start and
origin <= start: no occurrence can hide between origin and key. Entries whose
key is behind the parse cursor can never answer again and are pruned before
each lookup.

Regular expressions see the whole text: ^ matches only at real line starts
and \b looks at the character before the search start. A search from start > 0
runs a shifted form of the expression, "(?s:.)(expr)", from the rune before
start and reports the group. Where a match of expr begins therefore never
depends on where the search began, which is what lets one entry answer
several starts.
*/

// shift wraps re so that it can be run from the rune before a search start.
func shift(re *regexp.Regexp) *regexp.Regexp {
	return regexp.MustCompile(`(?s:.)(` + re.String() + `)`)
}

type hit struct {
	key    int
	origin int
	length int
	found  bool
}

func hitLess(a, b hit) bool { return a.key < b.key }

type memo struct {
	entries *btree.BTreeG[hit]
}

func newMemo() *memo {
	return &memo{entries: btree.NewG(8, hitLess)}
}

// lookup returns the cached answer for start, if one applies.
func (m *memo) lookup(start, cursor int) (hit, bool) {
	for {
		min, ok := m.entries.Min()
		if !ok || min.key >= cursor {
			break
		}
		m.entries.DeleteMin()
	}

	var (
		got   hit
		found bool
	)
	m.entries.AscendGreaterOrEqual(hit{key: start}, func(h hit) bool {
		got, found = h, true
		return false
	})
	if !found || (got.key != start && got.origin > start) {
		return hit{}, false
	}
	return got, true
}

func (m *memo) store(start int, h hit) {
	h.origin = start
	if old, ok := m.entries.Get(h); ok && old.origin < start {
		h.origin = old.origin
	}
	m.entries.ReplaceOrInsert(h)
}

// searcher answers "first occurrence at or after start" queries over one text.
type searcher struct {
	text     string
	naive    bool
	literals map[string]*memo
	regexes  map[*regexp.Regexp]*memo
	// shifted is shared with the Parser and only read; local holds the
	// shifted forms compiled by this searcher.
	shifted map[*regexp.Regexp]*regexp.Regexp
	local   map[*regexp.Regexp]*regexp.Regexp
	// cursor is the parse position; nothing before it is asked again.
	cursor int
}

func newSearcher(text string, naive bool, shifted map[*regexp.Regexp]*regexp.Regexp) *searcher {
	return &searcher{
		text:     text,
		naive:    naive,
		literals: make(map[string]*memo),
		regexes:  make(map[*regexp.Regexp]*memo),
		shifted:  shifted,
		local:    make(map[*regexp.Regexp]*regexp.Regexp),
	}
}

func (s *searcher) shiftedFor(re *regexp.Regexp) *regexp.Regexp {
	if sh, ok := s.shifted[re]; ok {
		return sh
	}
	sh, ok := s.local[re]
	if !ok {
		sh = shift(re)
		s.local[re] = sh
	}
	return sh
}

// locate finds the first match of re beginning at or after start.
func (s *searcher) locate(start int, re *regexp.Regexp) (at, length int, ok bool) {
	if start == 0 {
		loc := re.FindStringIndex(s.text)
		if loc == nil {
			return 0, 0, false
		}
		return loc[0], loc[1] - loc[0], true
	}
	_, size := utf8.DecodeLastRuneInString(s.text[:start])
	from := start - size
	loc := s.shiftedFor(re).FindStringSubmatchIndex(s.text[from:])
	if loc == nil {
		return 0, 0, false
	}
	return from + loc[2], loc[3] - loc[2], true
}

// literal returns the distance from start to the next occurrence of s.
func (s *searcher) literal(start int, needle string) (int, bool) {
	if s.naive {
		i := strings.Index(s.text[start:], needle)
		return i, i >= 0
	}
	m := s.literals[needle]
	if m == nil {
		m = newMemo()
		s.literals[needle] = m
	}
	if h, ok := m.lookup(start, s.cursor); ok {
		return h.key - start, h.found
	}
	h := hit{key: len(s.text)}
	if i := strings.Index(s.text[start:], needle); i >= 0 {
		h = hit{key: start + i, length: len(needle), found: true}
	}
	m.store(start, h)
	return h.key - start, h.found
}

// regex returns the distance from start to the next match of re and the
// match length.
func (s *searcher) regex(start int, re *regexp.Regexp) (int, int, bool) {
	if s.naive {
		at, n, ok := s.locate(start, re)
		if !ok {
			return 0, 0, false
		}
		return at - start, n, true
	}
	m := s.regexes[re]
	if m == nil {
		m = newMemo()
		s.regexes[re] = m
	}
	if h, ok := m.lookup(start, s.cursor); ok {
		return h.key - start, h.length, h.found
	}
	h := hit{key: len(s.text)}
	if at, n, ok := s.locate(start, re); ok {
		h = hit{key: at, length: n, found: true}
	}
	m.store(start, h)
	return h.key - start, h.length, h.found
}
