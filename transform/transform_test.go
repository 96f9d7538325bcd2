package transform

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnoswap-labs/treeform/tree"
)

func doc(typ string, attrs []tree.Attr, children ...*tree.Document) *tree.Document {
	return &tree.Document{Type: typ, Attrs: attrs, Children: children}
}

func kv(k, v string) []tree.Attr { return []tree.Attr{{Key: k, Value: v}} }

// program builds
//
//	0 Doc
//	1   Call name=f
//	2   Args n=2
//	3   Stmt
//	4     Expr v=1
//	5   Call name=g
func program() *tree.Tree {
	return tree.FromDocument(doc("Doc", nil,
		doc("Call", kv("name", "f")),
		doc("Args", kv("n", "2")),
		doc("Stmt", nil, doc("Expr", kv("v", "1"))),
		doc("Call", kv("name", "g")),
	))
}

func types(t *tree.Tree) []string {
	var out []string
	t.Walk(func(i, _ int) bool {
		out = append(out, t.Node(i).TypeName)
		return true
	})
	return out
}

func nextPeer(typ string) tree.Step {
	s := tree.NewStep(tree.ToPeer)
	s.Offset = 1
	s.TypeFilter = typ
	return s
}

func value(v tree.SingleValue) tree.BranchedValue { return tree.Always(v) }

func TestTransformKeepsOnlyRecognized(t *testing.T) {
	t.Parallel()
	src := tree.FromDocument(doc("Keep", nil,
		doc("Drop", nil, doc("Keep", nil)),
		doc("Keep", nil),
	))
	tr := New(Rules{
		Default:                   Remove,
		UseDefaultForUnrecognized: true,
		ByType:                    map[string][]Rule{"Keep": {{Action: PassThrough}}},
	})
	res := tr.Transform(src, nil)
	require.True(t, res.OK())
	assert.Equal(t, []string{"Keep", "Keep"}, types(res.Tree))
	assert.Equal(t, []int{1}, res.Tree.Children(0))
	assert.Equal(t, []Origin{{Source: 0, Rule: -1}, {Source: 3, Rule: -1}}, res.Provenance)
}

func TestTransformPassThroughIsIdentity(t *testing.T) {
	t.Parallel()
	src := program()
	tr := New(Rules{Default: PassThrough, Unrecognized: PassThrough})
	res := tr.Transform(src, nil)
	require.True(t, res.OK())
	assert.True(t, src.Equal(res.Tree))
	for i, o := range res.Provenance {
		assert.Equal(t, Origin{Source: i, Rule: -1}, o)
	}

	// an explicit rule per type gives the same tree
	byType := map[string][]Rule{}
	for _, typ := range []string{"Doc", "Call", "Args", "Stmt", "Expr"} {
		byType[typ] = []Rule{{Action: PassThrough}}
	}
	res = New(Rules{Default: Error, Unrecognized: Error, ByType: byType}).Transform(src, nil)
	require.True(t, res.OK())
	assert.True(t, src.Equal(res.Tree))
}

func TestTransformRuleSelection(t *testing.T) {
	t.Parallel()
	isF := tree.Equal(tree.Here(tree.Key("name")), tree.Const("f"))
	tests := []struct {
		name   string
		rules  Rules
		want   []string
		causes []Cause
	}{
		{
			name: "first holding rule wins",
			rules: Rules{Default: PassThrough, ByType: map[string][]Rule{"Call": {
				{When: []tree.Predicate{isF}, Action: Remove},
				{Action: Modify, Patches: []KV{{Key: value(tree.Const("")), Value: value(tree.Const("Other"))}}},
			}}},
			want: []string{"Doc", "Args", "Stmt", "Expr", "Other"},
		},
		{
			name: "failed predicate disqualifies",
			rules: Rules{Default: Remove, Unrecognized: PassThrough, ByType: map[string][]Rule{"Call": {
				{When: []tree.Predicate{tree.Equal(tree.Here(tree.Key("missing")), tree.Const("")).Not()}, Action: PassThrough},
			}}},
			want: []string{"Doc", "Args", "Stmt", "Expr"},
		},
		{
			name: "default error",
			rules: Rules{Default: Error, Unrecognized: PassThrough, ByType: map[string][]Rule{"Call": {
				{When: []tree.Predicate{isF}, Action: PassThrough},
			}}},
			want:   []string{"Doc", "Call", "Args", "Stmt", "Expr"},
			causes: []Cause{NoRuleMatched},
		},
		{
			name:   "unrecognized error",
			rules:  Rules{Default: PassThrough, Unrecognized: Error, ByType: map[string][]Rule{"Doc": {{Action: PassThrough}}, "Call": {{Action: PassThrough}}}},
			want:   []string{"Doc", "Call", "Call"},
			causes: []Cause{UnrecognizedNodeType, UnrecognizedNodeType},
		},
		{
			name: "error rule",
			rules: Rules{Default: PassThrough, ByType: map[string][]Rule{"Stmt": {
				{Action: Error},
			}}},
			want:   []string{"Doc", "Call", "Args", "Call"},
			causes: []Cause{RuleError},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res := New(tt.rules).Transform(program(), nil)
			assert.Equal(t, tt.want, types(res.Tree))
			var causes []Cause
			for _, d := range res.Diagnostics {
				causes = append(causes, d.Cause)
			}
			assert.Equal(t, tt.causes, causes)
			assert.Equal(t, len(tt.causes) == 0, res.OK())
		})
	}
}

func TestTransformModify(t *testing.T) {
	t.Parallel()
	rules := Rules{Default: PassThrough, ByType: map[string][]Rule{
		"Call": {{Action: Modify, Patches: []KV{
			{Key: value(tree.Const("name")), Value: value(tree.Const("renamed"))},
			{Key: value(tree.Const("arity")), Value: value(tree.Const("0"))},
			{Key: value(tree.Const("")), Value: value(tree.Here(tree.Key("name")))},
		}}},
		"Stmt": {{Action: Modify, Patches: []KV{
			{Key: value(tree.Const("a")), Value: value(tree.Const("1"))},
			{Key: value(tree.Here(tree.Key("missing"))), Value: value(tree.Const("x"))},
			{Key: value(tree.Const("b")), Value: value(tree.Const("2"))},
		}}},
	}}
	res := New(rules).Transform(program(), nil)

	// values are computed against the source node, so the type is "f"
	call := res.Tree.Node(1)
	assert.Equal(t, "f", call.TypeName)
	assert.Equal(t, []string{"name", "arity"}, call.Keys)
	assert.Equal(t, []string{"renamed", "0"}, call.Values)
	assert.Equal(t, Origin{Source: 1, Rule: -1}, res.Provenance[1])

	stmt := res.Tree.Node(3)
	assert.Equal(t, "Stmt", stmt.TypeName)
	assert.Equal(t, []string{"a"}, stmt.Keys)
	// children are still transformed
	assert.Equal(t, []int{4}, res.Tree.Children(3))

	require.Len(t, res.Diagnostics, 1)
	d := res.Diagnostics[0]
	assert.Equal(t, PatchFailed, d.Cause)
	assert.Equal(t, 3, d.Source)
	assert.Equal(t, 1, d.Patch)
	assert.False(t, d.KeyOK)
	assert.True(t, d.ValueOK)
	assert.Equal(t, "x", d.Value)
	assert.ErrorIs(t, res.Err(), tree.ErrNoSuchKey)
}

func TestTransformReplace(t *testing.T) {
	t.Parallel()
	argc := tree.SingleValue{
		Tree:     tree.MainTree,
		Path:     []tree.Step{nextPeer("Args")},
		At:       tree.Key("n"),
		Default:  tree.Lit("0"),
		Strategy: tree.TraverseWithFallback,
	}
	rules := Rules{Default: PassThrough, ByType: map[string][]Rule{
		"Call": {{
			Action: Replace,
			Skip:   [][]tree.Step{{nextPeer("Args")}},
			Templates: []Template{
				{Type: value(tree.Const("Invoke")), Parent: -1, Attrs: []KV{
					{Key: value(tree.Const("callee")), Value: value(tree.Here(tree.Key("name")))},
					{Key: value(tree.Const("argc")), Value: value(argc)},
				}},
				CopyTemplate(0),
			},
		}},
		"Stmt": {{
			Action: Replace,
			Templates: []Template{
				{Type: value(tree.Const("Block")), Parent: -1},
				{Type: value(tree.Const("Line")), Parent: 0, Attrs: []KV{
					{Key: value(tree.Const("k")), Value: value(tree.Here(tree.Key("missing")))},
				}},
				{Type: value(tree.Const("Never")), Parent: 0},
			},
		}},
	}}
	res := New(rules).Transform(program(), nil)

	assert.Equal(t, []string{"Doc", "Invoke", "Call", "Block", "Invoke", "Call"}, types(res.Tree))
	first := res.Tree.Node(1)
	assert.Equal(t, []string{"callee", "argc"}, first.Keys)
	assert.Equal(t, []string{"f", "2"}, first.Values)
	assert.Equal(t, []string{"g", "0"}, res.Tree.Node(4).Values)
	assert.Equal(t, []string{"name"}, res.Tree.Node(2).Keys)

	// the skipped Args node and the Stmt children never reach the output
	for _, o := range res.Provenance {
		assert.NotEqual(t, 2, o.Source)
		assert.NotEqual(t, 4, o.Source)
	}
	assert.Equal(t, Origin{Source: 1, Rule: 0}, res.Provenance[1])

	require.Len(t, res.Diagnostics, 1)
	d := res.Diagnostics[0]
	assert.Equal(t, TemplateAttr, d.Cause)
	assert.Equal(t, 1, d.Template)
	assert.Equal(t, 0, d.AttrIndex)
	assert.True(t, d.KeyOK)
	assert.Equal(t, "k", d.Key)
	assert.False(t, d.ValueOK)
}

func TestTransformTemplateTypeFailure(t *testing.T) {
	t.Parallel()
	rules := Rules{Default: PassThrough, ByType: map[string][]Rule{
		"Expr": {{Action: Replace, Templates: []Template{
			{Type: value(tree.Here(tree.Key("nope"))), Parent: -1},
		}}},
	}}
	res := New(rules).Transform(program(), nil)
	assert.Equal(t, []string{"Doc", "Call", "Args", "Stmt", "Call"}, types(res.Tree))
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, TemplateType, res.Diagnostics[0].Cause)
	assert.Equal(t, 4, res.Diagnostics[0].Source)
}

func TestTransformSkipMarksOnlyLaterNodes(t *testing.T) {
	t.Parallel()
	prev := tree.NewStep(tree.ToPeer)
	prev.Offset = -1
	rules := Rules{Default: PassThrough, ByType: map[string][]Rule{
		// Args tries to skip the Call before it, which was already emitted
		"Args": {{Action: PassThrough, Skip: [][]tree.Step{{prev}, {tree.NewStep(tree.ToParent)}}}},
	}}
	res := New(rules).Transform(program(), nil)
	assert.True(t, program().Equal(res.Tree))
}

func TestTransformSideTrees(t *testing.T) {
	t.Parallel()
	side := tree.FromDocument(doc("Symbols", nil, doc("Symbol", kv("kind", "builtin"))))
	rules := Rules{
		Default:   PassThrough,
		SideTrees: []string{"symbols"},
		ByType: map[string][]Rule{"Call": {{Action: Modify, Patches: []KV{{
			Key: value(tree.Const("kind")),
			Value: value(tree.SingleValue{
				Tree:     0,
				Path:     []tree.Step{tree.NewStep(tree.ToChild)},
				At:       tree.Key("kind"),
				Strategy: tree.TraverseOnly,
			}),
		}}}}},
	}
	tr := New(rules)
	res := tr.Transform(program(), []*tree.Tree{side})
	require.True(t, res.OK())
	v, ok := res.Tree.Node(1).Lookup("kind")
	assert.True(t, ok)
	assert.Equal(t, "builtin", v)

	assert.Panics(t, func() { tr.Transform(program(), nil) })
}

func TestTransformEmptyAndExtraRoot(t *testing.T) {
	t.Parallel()
	res := New(Rules{}).Transform(tree.FromDocument(nil), nil)
	assert.True(t, res.OK())
	assert.True(t, res.Tree.Empty())

	res = New(Rules{Default: PassThrough, ByType: map[string][]Rule{
		"Doc": {{Action: Replace, Templates: []Template{CopyTemplate(-1), CopyTemplate(-1)}}},
	}}).Transform(program(), nil)
	assert.Equal(t, []string{"Doc"}, types(res.Tree))
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, ExtraRoot, res.Diagnostics[0].Cause)
}

func TestRulesValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		rules Rules
	}{
		{name: "modify default", rules: Rules{Default: Modify}},
		{name: "replace unrecognized", rules: Rules{Unrecognized: Replace}},
		{name: "replace without templates", rules: Rules{ByType: map[string][]Rule{"A": {{Action: Replace}}}}},
		{name: "forward parent", rules: Rules{ByType: map[string][]Rule{"A": {{Action: Replace, Templates: []Template{CopyTemplate(0)}}}}}},
		{name: "patches on passthrough", rules: Rules{ByType: map[string][]Rule{"A": {{Action: PassThrough, Patches: []KV{{}}}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.True(t, errors.Is(tt.rules.Validate(), ErrInvalidRules))
			assert.Panics(t, func() { New(tt.rules) })
		})
	}
	assert.NoError(t, (&Rules{Unrecognized: Replace, UseDefaultForUnrecognized: true}).Validate())
}
