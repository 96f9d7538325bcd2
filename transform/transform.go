// Package transform rewrites a tree into another tree with a rule set keyed
// by node type.
package transform

import (
	"errors"
	"fmt"

	"github.com/gnoswap-labs/treeform/tree"
)

// Origin records where an output node came from. Rule is the index of the
// rule within its type's list, or -1 for nodes copied by PassThrough or
// Modify.
type Origin struct {
	Source int
	Rule   int
}

// Result is the output of one transform. Tree is always set, even when
// diagnostics were recorded.
type Result struct {
	Tree *tree.Tree
	// Provenance is indexed like Tree.
	Provenance  []Origin
	Diagnostics []Diagnostic
}

// OK reports whether the transform recorded no diagnostics.
func (r *Result) OK() bool { return len(r.Diagnostics) == 0 }

// Err joins the diagnostics, or returns nil.
func (r *Result) Err() error {
	if r.OK() {
		return nil
	}
	errs := make([]error, len(r.Diagnostics))
	for i, d := range r.Diagnostics {
		errs[i] = d
	}
	return errors.Join(errs...)
}

// Transformer applies a rule set. It holds no per-transform state and may be
// reused.
type Transformer struct {
	rules Rules
}

// New prepares a transformer. It panics if the rules do not validate.
func New(rules Rules) *Transformer {
	if err := rules.Validate(); err != nil {
		panic(fmt.Sprintf("transform: %v", err))
	}
	return &Transformer{rules: rules}
}

// Rules returns the rule set the transformer was built from.
func (t *Transformer) Rules() *Rules { return &t.rules }

type run struct {
	rules   *Rules
	src     *tree.Tree
	side    []*tree.Tree
	b       *tree.Builder
	skip    []bool
	origins []Origin
	diags   []Diagnostic
}

// Transform rewrites src. side must hold one tree per name in
// Rules.SideTrees.
func (t *Transformer) Transform(src *tree.Tree, side []*tree.Tree) *Result {
	if len(side) != len(t.rules.SideTrees) {
		panic(fmt.Sprintf("transform: %d side trees given, rules expect %d", len(side), len(t.rules.SideTrees)))
	}
	if src.Empty() {
		return &Result{Tree: tree.NewBuilder().Flatten()}
	}
	r := &run{
		rules: &t.rules,
		src:   src,
		side:  side,
		b:     tree.NewBuilder(),
		skip:  make([]bool, src.Len()),
	}
	r.visit(0, tree.NoNode)

	out, seq := r.b.FlattenWithSequence()
	res := &Result{Tree: out, Diagnostics: r.diags}
	res.Provenance = make([]Origin, len(seq))
	for i, s := range seq {
		res.Provenance[i] = r.origins[s]
	}
	return res
}

func (r *run) emit(parent tree.Handle, p tree.Payload, o Origin) tree.Handle {
	if parent == tree.NoNode && r.b.Root() != tree.NoNode {
		d := newDiagnostic(ExtraRoot, o.Source, p.TypeName, o.Rule)
		r.diags = append(r.diags, d)
	}
	h := r.b.AddNode(parent)
	*r.b.Payload(h) = p
	// handles are sequence numbers
	r.origins = append(r.origins, o)
	return h
}

func (r *run) visit(i int, parent tree.Handle) {
	if r.skip[i] {
		return
	}
	n := r.src.Node(i)
	ctx := &tree.Context{Main: r.src, Side: r.side, Start: i}

	var (
		rule   *Rule
		ruleIx = -1
		action Action
	)
	candidates, known := r.rules.ByType[n.TypeName]
	switch {
	case !known:
		action = r.rules.Unrecognized
		if r.rules.UseDefaultForUnrecognized {
			action = r.rules.Default
		}
		if action == Error {
			r.diags = append(r.diags, newDiagnostic(UnrecognizedNodeType, i, n.TypeName, -1))
			return
		}
	default:
		for ri := range candidates {
			if tree.AllHold(ctx, candidates[ri].When) {
				rule, ruleIx = &candidates[ri], ri
				break
			}
		}
		if rule == nil {
			action = r.rules.Default
			if action == Error {
				r.diags = append(r.diags, newDiagnostic(NoRuleMatched, i, n.TypeName, -1))
				return
			}
		} else {
			action = rule.Action
			r.markSkipped(i, n, rule.Skip)
		}
	}

	switch action {
	case PassThrough:
		h := r.emit(parent, n.Payload.Clone(), Origin{Source: i, Rule: -1})
		r.children(i, h)
	case Remove:
	case Modify:
		p := n.Payload.Clone()
		r.patch(ctx, &p, ruleIx, rule.Patches)
		// a modified copy is still a copy
		h := r.emit(parent, p, Origin{Source: i, Rule: -1})
		r.children(i, h)
	case Replace:
		r.replace(ctx, parent, ruleIx, rule.Templates)
	case Error:
		r.diags = append(r.diags, newDiagnostic(RuleError, i, n.TypeName, ruleIx))
	default:
		panic(fmt.Sprintf("transform: unknown action %d", action))
	}
}

func (r *run) children(i int, h tree.Handle) {
	for _, c := range r.src.Children(i) {
		r.visit(c, h)
	}
}

// markSkipped resolves the skip paths of the chosen rule. Only nodes still
// ahead in pre-order are marked.
func (r *run) markSkipped(i int, n *tree.Node, paths [][]tree.Step) {
	for _, path := range paths {
		dest, ok := r.src.Traverse(i, &n.Payload, path)
		if ok && dest > i && !r.skip[dest] {
			r.skip[dest] = true
		}
	}
}

func (r *run) patch(ctx *tree.Context, p *tree.Payload, ruleIx int, patches []KV) {
	for pi, kv := range patches {
		key, kerr := kv.Key.Eval(ctx)
		value, verr := kv.Value.Eval(ctx)
		if kerr != nil || verr != nil {
			d := newDiagnostic(PatchFailed, ctx.Start, ctx.Main.Node(ctx.Start).TypeName, ruleIx)
			d.Patch = pi
			d.Key, d.KeyOK = key, kerr == nil
			d.Value, d.ValueOK = value, verr == nil
			d.Err = errors.Join(kerr, verr)
			r.diags = append(r.diags, d)
			return
		}
		switch i := p.Index(key); {
		case key == "":
			p.TypeName = value
		case i >= 0:
			p.Values[i] = value
		default:
			p.Append(key, value)
		}
	}
}

func (r *run) replace(ctx *tree.Context, parent tree.Handle, ruleIx int, templates []Template) {
	src := &ctx.Main.Node(ctx.Start).Payload
	handles := make([]tree.Handle, len(templates))
	for ti, tpl := range templates {
		fail := func(cause Cause, err error) Diagnostic {
			d := newDiagnostic(cause, ctx.Start, src.TypeName, ruleIx)
			d.Template = ti
			d.Err = err
			return d
		}

		typ, err := tpl.Type.Eval(ctx)
		if err != nil {
			r.diags = append(r.diags, fail(TemplateType, err))
			return
		}
		p := tree.Payload{TypeName: typ}
		for ai, kv := range tpl.Attrs {
			key, kerr := kv.Key.Eval(ctx)
			value, verr := kv.Value.Eval(ctx)
			if kerr != nil || verr != nil {
				d := fail(TemplateAttr, errors.Join(kerr, verr))
				d.AttrIndex = ai
				d.Key, d.KeyOK = key, kerr == nil
				d.Value, d.ValueOK = value, verr == nil
				r.diags = append(r.diags, d)
				return
			}
			p.Append(key, value)
		}
		if typ == "" && len(tpl.Attrs) == 0 {
			p = src.Clone()
		}

		at := parent
		if tpl.Parent >= 0 {
			at = handles[tpl.Parent]
		}
		handles[ti] = r.emit(at, p, Origin{Source: ctx.Start, Rule: ruleIx})
	}
}
