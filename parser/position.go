package parser

import (
	"sort"

	"github.com/rivo/uniseg"
)

// PositionInfo maps byte offsets of a text to 1-based line and column
// numbers. Columns count grapheme clusters, so a combined character or an
// emoji sequence is one column.
type PositionInfo struct {
	text  string
	lines []int
}

func NewPositionInfo(text string) *PositionInfo {
	lines := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			lines = append(lines, i+1)
		}
	}
	return &PositionInfo{text: text, lines: lines}
}

// Position returns the line and column of offset. Offsets past the end are
// clamped to the end of the text.
func (pi *PositionInfo) Position(offset int) (line, column int) {
	if offset < 0 {
		offset = 0
	}
	if offset > len(pi.text) {
		offset = len(pi.text)
	}
	l := sort.Search(len(pi.lines), func(i int) bool { return pi.lines[i] > offset }) - 1
	start := pi.lines[l]
	return l + 1, uniseg.GraphemeClusterCount(pi.text[start:offset]) + 1
}

// Lines returns the number of lines in the text.
func (pi *PositionInfo) Lines() int { return len(pi.lines) }
