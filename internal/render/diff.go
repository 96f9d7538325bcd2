package render

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Diff compares two texts line by line. Removed lines start with "-", added
// lines with "+" and shared lines with a space. changed is false when the
// texts are equal.
func (p *Printer) Diff(before, after string) (out string, changed bool) {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var sb strings.Builder
	for _, d := range diffs {
		for _, line := range splitLines(d.Text) {
			switch d.Type {
			case diffmatchpatch.DiffDelete:
				changed = true
				sb.WriteString(p.removedStyle.Sprint("-" + line))
			case diffmatchpatch.DiffInsert:
				changed = true
				sb.WriteString(p.addedStyle.Sprint("+" + line))
			default:
				sb.WriteString(" " + line)
			}
			sb.WriteByte('\n')
		}
	}
	return sb.String(), changed
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}
