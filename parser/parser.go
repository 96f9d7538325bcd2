package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/gnoswap-labs/treeform/tree"
)

var (
	// ErrRootNotMatched means no pattern of the root rule matches at the
	// start of the text.
	ErrRootNotMatched = errors.New("root rule does not match")
	// ErrNoProgress means a pattern kept matching the empty string at the
	// same place.
	ErrNoProgress = errors.New("parse makes no progress")
	// ErrTrailingGarbage means text other than whitespace is left once no
	// frame can match any more.
	ErrTrailingGarbage = errors.New("unparsed text at end of input")
)

// Parser turns text into a tree according to a Grammar. A Parser holds no
// per-parse state and may be reused.
type Parser struct {
	grammar Grammar
	logger  Logger
	checker ContentChecker
	naive   bool

	root          int
	children      [][]int
	boundaries    map[string]int
	classChildren [][]int
	contents      map[string]int
	regexes       map[string]*regexp.Regexp
	shifted       map[*regexp.Regexp]*regexp.Regexp

	optWS      *regexp.Regexp
	ws         *regexp.Regexp
	emptyLines *regexp.Regexp
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger installs an event logger.
func WithLogger(l Logger) Option {
	return func(p *Parser) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithNaiveSearch disables memoization of boundary searches.
func WithNaiveSearch() Option {
	return func(p *Parser) { p.naive = true }
}

// WithContentChecker installs a content checker. The default accepts all
// content.
func WithContentChecker(c ContentChecker) Option {
	return func(p *Parser) {
		if c != nil {
			p.checker = c
		}
	}
}

// New prepares a parser. It panics if the grammar does not validate; call
// Grammar.Validate first for grammars that come from users.
func New(g Grammar, opts ...Option) *Parser {
	if err := g.Validate(); err != nil {
		panic(fmt.Sprintf("parser: %v", err))
	}
	p := &Parser{
		grammar:    g,
		logger:     nopLogger{},
		checker:    AcceptAll{},
		boundaries: make(map[string]int, len(g.Boundaries)),
		contents:   make(map[string]int, len(g.Contents)),
		regexes:    make(map[string]*regexp.Regexp),
	}
	for _, o := range opts {
		o(p)
	}

	rules := make(map[string]int, len(g.Rules))
	for i, r := range g.Rules {
		rules[r.Name] = i
	}
	p.root = rules[g.Root]
	p.children = make([][]int, len(g.Rules))
	for i, r := range g.Rules {
		for _, parent := range r.Parents {
			pi := rules[parent]
			p.children[pi] = append(p.children[pi], i)
		}
	}

	for i, b := range g.Boundaries {
		p.boundaries[b.Name] = i
	}
	p.classChildren = make([][]int, len(g.Boundaries))
	for i, b := range g.Boundaries {
		for _, parent := range b.Parents {
			pi, ok := p.boundaries[parent]
			if !ok {
				panic(fmt.Sprintf("parser: boundary %q has unknown parent %q", b.Name, parent))
			}
			p.classChildren[pi] = append(p.classChildren[pi], i)
		}
		for _, d := range b.Elements {
			if d.Kind == DeclRegex {
				p.addRegex(d.Text)
			}
		}
	}
	for i, c := range g.Contents {
		p.contents[c.Name] = i
	}
	for _, r := range g.Rules {
		for _, pat := range r.Patterns {
			for _, e := range pat.Elements {
				if e.Kind == ElemRegex {
					p.addRegex(e.Text)
				}
			}
		}
	}

	alt := whitespaceAlternation(g.Whitespace)
	p.optWS = regexp.MustCompile(alt + "*")
	p.ws = regexp.MustCompile(alt + "+")
	p.emptyLines = regexp.MustCompile(`\A(?:` + alt + `*\n)+`)

	p.shifted = make(map[*regexp.Regexp]*regexp.Regexp, len(p.regexes)+2)
	for _, re := range p.regexes {
		p.shifted[re] = shift(re)
	}
	p.shifted[p.optWS] = shift(p.optWS)
	p.shifted[p.ws] = shift(p.ws)
	return p
}

func (p *Parser) addRegex(expr string) {
	if _, ok := p.regexes[expr]; ok {
		return
	}
	re, err := compile(expr)
	if err != nil {
		panic(fmt.Sprintf("parser: %v", err))
	}
	p.regexes[expr] = re
}

func whitespaceAlternation(list []string) string {
	quoted := make([]string, len(list))
	for i, ws := range list {
		quoted[i] = regexp.QuoteMeta(ws)
	}
	return "(?:" + strings.Join(quoted, "|") + ")"
}

// contentType returns the content type for a content element; anonymous
// content gets the zero ContentType.
func (p *Parser) contentType(name string) *ContentType {
	if name == "" {
		return &ContentType{}
	}
	return &p.grammar.Contents[p.contents[name]]
}

// Grammar returns the grammar the parser was built from.
func (p *Parser) Grammar() *Grammar { return &p.grammar }

type frame struct {
	node tree.Handle
	rule int
	// emptyAt is the cursor of the last zero-length match in this frame.
	emptyAt int
}

type run struct {
	p      *Parser
	text   string
	s      *searcher
	b      *tree.Builder
	seq    int
	frames []frame
}

func (r *run) emit(ev Event) {
	ev.Seq = r.seq
	ev.Depth = len(r.frames)
	r.seq++
	r.p.logger.Log(ev)
}

func (r *run) event(id EventID, start, end int) Event {
	return Event{ID: id, Start: start, End: end, Rule: -1, Pattern: -1, Element: -1}
}

// Parse parses src into a tree.
func (p *Parser) Parse(src string) (*tree.Tree, error) {
	r := &run{
		p:    p,
		text: src,
		s:    newSearcher(src, p.naive, p.shifted),
		b:    tree.NewBuilder(),
	}
	if err := r.parse(); err != nil {
		return nil, err
	}
	return r.b.Flatten(), nil
}

func (r *run) parse() error {
	p := r.p
	rootRule := &p.grammar.Rules[p.root]
	ev := r.event(RootNodeSpecification, 0, 0)
	ev.Rule = p.root
	r.emit(ev)

	var (
		root tree.Handle
		pos  int
	)
	if len(rootRule.Patterns) == 0 {
		root = r.b.AddNode(tree.NoNode)
		r.b.Payload(root).TypeName = rootRule.Name
		ev := r.event(RootNodeDirectCreation, 0, 0)
		ev.Rule, ev.TypeName = p.root, rootRule.Name
		r.emit(ev)
	} else {
		var m *match
		for pi := range rootRule.Patterns {
			if got, ok := r.try(p.root, pi, 0); ok {
				m = got
				break
			}
		}
		if m == nil {
			ev := r.event(RootNodePatternMatchFailed, 0, 0)
			ev.Rule = p.root
			r.emit(ev)
			return r.errorAt(ErrRootNotMatched, 0)
		}
		root = r.materialize(m, tree.NoNode)
		pos = m.consumed
		ev := r.event(RootNodePatternMatchCreation, 0, pos)
		ev.Rule, ev.Pattern, ev.TypeName = p.root, m.pattern, m.typeName
		r.emit(ev)
	}

	if len(p.children[p.root]) > 0 {
		r.push(root, p.root, pos)
	} else {
		r.emit(r.event(RootNodeNoFrame, pos, pos))
	}

	for len(r.frames) > 0 && pos < len(r.text) {
		r.s.cursor = pos
		if !p.grammar.KeepEmptyLines {
			if loc := p.emptyLines.FindStringIndex(r.text[pos:]); loc != nil && loc[1] > 0 {
				r.emit(r.event(EmptyLineSkipped, pos, pos+loc[1]))
				pos += loc[1]
				r.s.cursor = pos
				if pos == len(r.text) {
					break
				}
			}
		}

		top := &r.frames[len(r.frames)-1]
		var best *match
		for _, ri := range p.children[top.rule] {
			for pi := range p.grammar.Rules[ri].Patterns {
				if m, ok := r.try(ri, pi, pos); ok && (best == nil || m.betterThan(best)) {
					best = m
				}
			}
		}

		if best == nil {
			r.pop(FramePopped, pos, pos)
			continue
		}
		if best.typeName == "" {
			r.pop(FramePoppedForEarlyExit, pos, pos+best.consumed)
			pos += best.consumed
			continue
		}
		if best.consumed == 0 {
			if top.emptyAt == pos {
				return r.errorAt(ErrNoProgress, pos)
			}
			top.emptyAt = pos
		}

		h := r.materialize(best, top.node)
		ev := r.event(NodeAdded, pos, pos+best.consumed)
		ev.Rule, ev.Pattern, ev.TypeName = best.rule, best.pattern, best.typeName
		r.emit(ev)
		pos += best.consumed
		if len(p.children[best.rule]) > 0 {
			r.push(h, best.rule, pos)
		}
	}

	r.emit(r.event(MatchFinished, pos, pos))
	if end := r.trailing(pos); end < len(r.text) {
		r.emit(r.event(GarbageAtEnd, end, len(r.text)))
		return r.errorAt(ErrTrailingGarbage, end)
	}
	return nil
}

func (r *run) push(h tree.Handle, rule, pos int) {
	r.frames = append(r.frames, frame{node: h, rule: rule, emptyAt: -1})
	ev := r.event(FramePushed, pos, pos)
	ev.Rule = rule
	ev.TypeName = r.b.Payload(h).TypeName
	r.emit(ev)
}

func (r *run) pop(id EventID, start, end int) {
	f := r.frames[len(r.frames)-1]
	r.frames = r.frames[:len(r.frames)-1]
	ev := r.event(id, start, end)
	ev.Rule = f.rule
	ev.TypeName = r.b.Payload(f.node).TypeName
	r.emit(ev)
}

func (r *run) materialize(m *match, parent tree.Handle) tree.Handle {
	h := r.b.AddNode(parent)
	*r.b.Payload(h) = m.payload(r.text)
	return h
}

// trailing skips line feeds and whitespace from pos and returns where
// anything else starts.
func (r *run) trailing(pos int) int {
next:
	for pos < len(r.text) {
		if r.text[pos] == '\n' {
			pos++
			continue
		}
		for _, ws := range r.p.grammar.Whitespace {
			if strings.HasPrefix(r.text[pos:], ws) {
				pos += len(ws)
				continue next
			}
		}
		break
	}
	return pos
}

func (r *run) errorAt(err error, offset int) error {
	line, col := NewPositionInfo(r.text).Position(offset)
	return fmt.Errorf("%w at line %d, column %d", err, line, col)
}
