package parser

import (
	"fmt"
	"strings"
)

// Quick notation
//
// A quick pattern is example text with holes:
//
//	:[name]        content exported under name
//	:[name:Type]   content of content type Type exported under name
//	\x             literal x (so "\:[" is not a hole)
//
// QuickPattern turns it into pattern elements: literal text is split at line
// feeds, leading and trailing whitespace of literals becomes optional
// whitespace, and optional whitespace is inserted around holes that do not
// already touch whitespace.

// QuickOptions controls QuickPattern.
type QuickOptions struct {
	// Whitespace is the grammar's whitespace list; defaults to space and tab.
	Whitespace []string
	// Lines appends a line feed to patterns that do not end with one, for
	// line oriented grammars.
	Lines bool
}

type quickToken struct {
	hole        bool
	text        string
	contentType string
	line, col   int
}

func lexQuick(input string) ([]quickToken, error) {
	var (
		tokens  []quickToken
		literal strings.Builder
		line    = 1
		col     = 1
		litLine = 1
		litCol  = 1
	)
	flush := func() {
		if literal.Len() > 0 {
			tokens = append(tokens, quickToken{text: literal.String(), line: litLine, col: litCol})
			literal.Reset()
		}
	}
	advance := func(c byte) {
		if c == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	skipSpaces := func(i int) int {
		for i < len(input) && (input[i] == ' ' || input[i] == '\t') {
			advance(input[i])
			i++
		}
		return i
	}
	ident := func(i int) (string, int, error) {
		if i >= len(input) || !isIdentStart(input[i]) {
			return "", i, fmt.Errorf("line %d col %d: hole name must start with a letter or '_'", line, col)
		}
		start := i
		for i < len(input) && isIdentChar(input[i]) {
			advance(input[i])
			i++
		}
		return input[start:i], i, nil
	}

	for i := 0; i < len(input); {
		c := input[i]
		if literal.Len() == 0 {
			litLine, litCol = line, col
		}
		if c == '\\' {
			if i+1 == len(input) {
				return nil, fmt.Errorf("line %d col %d: '\\' at end of input", line, col)
			}
			literal.WriteByte(input[i+1])
			advance(c)
			advance(input[i+1])
			i += 2
			continue
		}
		if c == ':' && i+1 < len(input) && input[i+1] == '[' {
			flush()
			tok := quickToken{hole: true, line: line, col: col}
			col += 2
			i = skipSpaces(i + 2)
			name, j, err := ident(i)
			if err != nil {
				return nil, err
			}
			tok.text = name
			i = skipSpaces(j)
			if i < len(input) && input[i] == ':' {
				advance(':')
				i = skipSpaces(i + 1)
				ct, j, err := ident(i)
				if err != nil {
					return nil, err
				}
				tok.contentType = ct
				i = skipSpaces(j)
			}
			if i >= len(input) || input[i] != ']' {
				return nil, fmt.Errorf("line %d col %d: hole is missing its closing ']'", line, col)
			}
			advance(']')
			i++
			tokens = append(tokens, tok)
			continue
		}
		literal.WriteByte(c)
		advance(c)
		i++
	}
	flush()
	return tokens, nil
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// QuickPattern derives pattern elements from quick notation.
func QuickPattern(src string, opts QuickOptions) ([]Element, error) {
	ws := opts.Whitespace
	if len(ws) == 0 {
		ws = []string{" ", "\t"}
	}
	tokens, err := lexQuick(src)
	if err != nil {
		return nil, err
	}

	// holes and line-split literals
	var elems []Element
	var user []bool
	add := func(e Element, fromUser bool) {
		elems = append(elems, e)
		user = append(user, fromUser)
	}
	for _, tok := range tokens {
		if tok.hole {
			add(Element{Kind: ElemContent, Text: tok.contentType, Export: tok.text}, true)
			continue
		}
		parts := strings.Split(tok.text, "\n")
		for i, part := range parts {
			if i > 0 {
				add(Element{Kind: ElemLineFeed}, false)
			}
			if part != "" {
				add(Element{Kind: ElemLiteral, Text: part}, false)
			}
		}
	}
	if opts.Lines && (len(elems) == 0 || elems[len(elems)-1].Kind != ElemLineFeed) {
		add(Element{Kind: ElemLineFeed}, false)
	}

	// whitespace at the ends of literals
	var out []Element
	var outUser []bool
	emit := func(e Element, fromUser bool) {
		if e.Kind == ElemOptionalWhitespace && len(out) > 0 && out[len(out)-1].Kind == ElemOptionalWhitespace {
			return
		}
		out = append(out, e)
		outUser = append(outUser, fromUser)
	}
	for i, e := range elems {
		if e.Kind != ElemLiteral {
			emit(e, user[i])
			continue
		}
		body, lead, trail := trimWhitespace(e.Text, ws)
		if lead {
			emit(Element{Kind: ElemOptionalWhitespace}, false)
		}
		if body != "" {
			emit(Element{Kind: ElemLiteral, Text: body}, false)
		}
		if trail && body != "" {
			emit(Element{Kind: ElemOptionalWhitespace}, false)
		}
	}

	// optional whitespace around holes
	elems, user = nil, nil
	for i, e := range out {
		if outUser[i] {
			if i == 0 || (!outUser[i-1] && !out[i-1].Kind.isWhitespace()) {
				add(Element{Kind: ElemOptionalWhitespace}, false)
			}
			add(e, true)
			if i+1 == len(out) || (!outUser[i+1] && !out[i+1].Kind.isWhitespace()) {
				add(Element{Kind: ElemOptionalWhitespace}, false)
			}
			continue
		}
		if e.Kind == ElemOptionalWhitespace && len(elems) > 0 && elems[len(elems)-1].Kind == ElemOptionalWhitespace {
			continue
		}
		add(e, false)
	}

	for i, e := range elems {
		if e.Kind != ElemContent {
			continue
		}
		rest := elems[i+1:]
		for len(rest) > 0 && rest[0].Kind.isWhitespace() {
			rest = rest[1:]
		}
		if len(rest) == 0 {
			return nil, fmt.Errorf("hole %q needs literal text or a line end after it", e.Export)
		}
		if rest[0].Kind == ElemContent {
			return nil, fmt.Errorf("holes %q and %q must be separated by literal text", e.Export, rest[0].Export)
		}
	}
	if len(elems) == 0 {
		return nil, fmt.Errorf("quick pattern %q is empty", src)
	}
	return elems, nil
}

// trimWhitespace strips whitespace list entries from both ends of s.
func trimWhitespace(s string, ws []string) (body string, lead, trail bool) {
	body = s
	for trimmed := true; trimmed; {
		trimmed = false
		for _, w := range ws {
			if strings.HasPrefix(body, w) {
				body = body[len(w):]
				lead, trimmed = true, true
			}
		}
	}
	for trimmed := true; trimmed; {
		trimmed = false
		for _, w := range ws {
			if strings.HasSuffix(body, w) {
				body = body[:len(body)-len(w)]
				trail, trimmed = true, true
			}
		}
	}
	return body, lead, trail
}
