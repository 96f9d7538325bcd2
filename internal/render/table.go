package render

import (
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/gnoswap-labs/treeform/parser"
	"github.com/gnoswap-labs/treeform/transform"
)

// Diagnostics renders transform diagnostics as a table.
func (p *Printer) Diagnostics(diags []transform.Diagnostic) string {
	if len(diags) == 0 {
		return p.OK("no diagnostics")
	}
	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"#", "Cause", "Node", "Type", "Rule", "Detail"})
	for i, d := range diags {
		tw.AppendRow(table.Row{i + 1, d.Cause.String(), d.Source, d.TypeName, index(d.Rule), detail(d)})
	}
	return tw.Render() + "\n"
}

func detail(d transform.Diagnostic) string {
	switch {
	case d.AttrIndex >= 0 && !d.KeyOK:
		return fmt.Sprintf("attribute %d key: %v", d.AttrIndex, d.Err)
	case d.AttrIndex >= 0:
		return fmt.Sprintf("attribute %d (%s) value: %v", d.AttrIndex, d.Key, d.Err)
	case d.Patch >= 0:
		return fmt.Sprintf("patch %d: %v", d.Patch, d.Err)
	case d.Err != nil:
		return d.Err.Error()
	}
	return ""
}

// Events renders a parse log. text is the parsed input, used for positions.
func (p *Printer) Events(events []parser.Event, text string) string {
	pos := parser.NewPositionInfo(text)
	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Seq", "Event", "At", "Len", "Depth", "Rule", "Pattern", "Type"})
	for _, ev := range events {
		line, col := pos.Position(ev.Start)
		tw.AppendRow(table.Row{
			ev.Seq,
			ev.ID.String(),
			fmt.Sprintf("%d:%d", line, col),
			ev.End - ev.Start,
			ev.Depth,
			index(ev.Rule),
			index(ev.Pattern),
			ev.TypeName,
		})
	}
	return tw.Render() + "\n"
}

func index(i int) string {
	if i < 0 {
		return "-"
	}
	return strconv.Itoa(i)
}
