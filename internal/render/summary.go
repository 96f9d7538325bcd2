package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Stats accumulates the outcome of a multi-file run.
type Stats struct {
	Files   int
	Failed  int
	Cached  int
	Bytes   uint64
	Nodes   int
	Elapsed time.Duration
}

// Summary is a one-line account of a run, for example
// "3 files (1.2 kB), 1,024 nodes, 1 failed, 2 cached in 15ms".
func (p *Printer) Summary(s Stats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s (%s), %s %s",
		humanize.Comma(int64(s.Files)), plural(s.Files, "file"),
		humanize.Bytes(s.Bytes),
		humanize.Comma(int64(s.Nodes)), plural(s.Nodes, "node"))
	if s.Failed > 0 {
		b.WriteString(", " + p.errorStyle.Sprintf("%d failed", s.Failed))
	}
	if s.Cached > 0 {
		fmt.Fprintf(&b, ", %d cached", s.Cached)
	}
	fmt.Fprintf(&b, " in %s\n", s.Elapsed.Round(time.Millisecond))
	return b.String()
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
