// Package render formats trees, diagnostics, parse events and run summaries
// for the terminal.
package render

import (
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/list"

	"github.com/gnoswap-labs/treeform/tree"
)

// Printer holds the styles of one output stream. A Printer built without
// color prints plain text regardless of the terminal.
type Printer struct {
	typeStyle    *color.Color
	keyStyle     *color.Color
	valueStyle   *color.Color
	headerStyle  *color.Color
	errorStyle   *color.Color
	okStyle      *color.Color
	removedStyle *color.Color
	addedStyle   *color.Color
}

func NewPrinter(colored bool) *Printer {
	p := &Printer{
		typeStyle:    color.New(color.FgCyan, color.Bold),
		keyStyle:     color.New(color.FgYellow),
		valueStyle:   color.New(color.FgWhite),
		headerStyle:  color.New(color.FgHiBlue, color.Bold),
		errorStyle:   color.New(color.FgRed, color.Bold),
		okStyle:      color.New(color.FgGreen, color.Bold),
		removedStyle: color.New(color.FgRed),
		addedStyle:   color.New(color.FgGreen),
	}
	for _, c := range []*color.Color{
		p.typeStyle, p.keyStyle, p.valueStyle, p.headerStyle,
		p.errorStyle, p.okStyle, p.removedStyle, p.addedStyle,
	} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// Header formats a section title such as a file name.
func (p *Printer) Header(s string) string { return p.headerStyle.Sprint("==> "+s) + "\n" }

func (p *Printer) Error(s string) string { return p.errorStyle.Sprint("error: ") + s + "\n" }

func (p *Printer) OK(s string) string { return p.okStyle.Sprint(s) + "\n" }

// Tree draws t with one line per node: the type name followed by its
// attributes in order.
func (p *Printer) Tree(t *tree.Tree) string {
	if t.Empty() {
		return "(empty tree)\n"
	}
	l := list.NewWriter()
	l.SetStyle(list.StyleConnectedLight)
	level := 0
	t.Walk(func(i, depth int) bool {
		for ; level < depth; level++ {
			l.Indent()
		}
		for ; level > depth; level-- {
			l.UnIndent()
		}
		l.AppendItem(p.node(&t.Node(i).Payload))
		return true
	})
	return l.Render() + "\n"
}

func (p *Printer) node(pl *tree.Payload) string {
	var b strings.Builder
	b.WriteString(p.typeStyle.Sprint(pl.TypeName))
	for k := range pl.Keys {
		b.WriteByte(' ')
		b.WriteString(p.keyStyle.Sprint(pl.Keys[k]))
		b.WriteByte('=')
		b.WriteString(p.valueStyle.Sprint(quote(pl.Values[k])))
	}
	return b.String()
}

func quote(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\r\n\"=") {
		return strconv.Quote(s)
	}
	return s
}
