package parser

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSearcherMatchesNaive(t *testing.T) {
	t.Parallel()
	text := strings.Repeat("ab cab\n  abc\tb", 7) + "tail"
	needles := []string{"ab", "c", "\n", "zz", "tail"}
	patterns := []*regexp.Regexp{
		regexp.MustCompile(`[a-c]+`),
		regexp.MustCompile(`\s+`),
		regexp.MustCompile(`q`),
		regexp.MustCompile(`(?m)^ab`),
		regexp.MustCompile(`(?m)b$`),
		regexp.MustCompile(`\bab`),
		regexp.MustCompile(`\Bb`),
		regexp.MustCompile(`\Ab|tail\z`),
	}

	memo := newSearcher(text, false, nil)
	naive := newSearcher(text, true, nil)
	for cursor := 0; cursor <= len(text); cursor += 3 {
		memo.cursor = cursor
		// probe a few starts at and after the cursor, as pattern attempts do
		for _, start := range []int{cursor, cursor + 1, cursor + 5, cursor + 2} {
			if start > len(text) {
				continue
			}
			for _, n := range needles {
				wd, wok := naive.literal(start, n)
				gd, gok := memo.literal(start, n)
				assert.Equal(t, wok, gok, "literal %q from %d", n, start)
				if wok {
					assert.Equal(t, wd, gd, "literal %q from %d", n, start)
				}
			}
			for _, re := range patterns {
				wd, wn, wok := naive.regex(start, re)
				gd, gn, gok := memo.regex(start, re)
				assert.Equal(t, wok, gok, "regex %s from %d", re, start)
				if wok {
					assert.Equal(t, [2]int{wd, wn}, [2]int{gd, gn}, "regex %s from %d", re, start)
				}
			}
		}
	}
}

func TestMemoPrunesBehindCursor(t *testing.T) {
	t.Parallel()
	s := newSearcher("x.x.x", false, nil)
	d, ok := s.literal(0, "x")
	assert.True(t, ok)
	assert.Equal(t, 0, d)
	d, _ = s.literal(1, "x")
	assert.Equal(t, 1, d)
	assert.Equal(t, 2, s.literals["x"].entries.Len())

	s.cursor = 3
	d, _ = s.literal(3, "x")
	assert.Equal(t, 1, d)
	assert.Equal(t, 1, s.literals["x"].entries.Len())
}

func TestSearcherSeesTextBeforeStart(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		expr   string
		text   string
		start  int
		want   int
		length int
		found  bool
	}{
		{name: "caret needs a line start", expr: `(?m)^x`, text: "ax\nx", start: 1, want: 2, length: 1, found: true},
		{name: "caret at start of text", expr: `(?m)^x`, text: "xa", start: 0, want: 0, length: 1, found: true},
		{name: "word boundary looks back", expr: `\bx`, text: "ax", start: 1, found: false},
		{name: "non boundary looks back", expr: `\Bx`, text: "ax", start: 1, want: 0, length: 1, found: true},
		{name: "text start only at zero", expr: `\Ax`, text: "xx", start: 1, found: false},
		{name: "multibyte rune before start", expr: `\bx`, text: "éx x", start: 2, want: 0, length: 1, found: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			re := regexp.MustCompile(tt.expr)
			for _, naive := range []bool{true, false} {
				d, n, ok := newSearcher(tt.text, naive, nil).regex(tt.start, re)
				assert.Equal(t, tt.found, ok, "naive=%v", naive)
				if tt.found {
					assert.Equal(t, [2]int{tt.want, tt.length}, [2]int{d, n}, "naive=%v", naive)
				}
			}
		})
	}
}

func TestSearcherAnchoredMemo(t *testing.T) {
	t.Parallel()
	re := regexp.MustCompile(`(?m)^x`)
	s := newSearcher("ax\nx", false, nil)

	d, _, ok := s.regex(1, re)
	assert.True(t, ok)
	assert.Equal(t, 2, d)
	d, _, ok = s.regex(0, re)
	assert.True(t, ok)
	assert.Equal(t, 3, d)
	d, _, ok = s.regex(2, re)
	assert.True(t, ok)
	assert.Equal(t, 1, d)
}
