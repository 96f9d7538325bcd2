package tree

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// sample builds
//
//	0 Doc
//	1   Item name=a
//	2   Sep
//	3   Item name=b
//	4     Leaf
//	5   Item name=c kind=x
func sample() *Tree {
	return FromDocument(&Document{
		Type: "Doc",
		Children: []*Document{
			{Type: "Item", Attrs: []Attr{{"name", "a"}}},
			{Type: "Sep"},
			{Type: "Item", Attrs: []Attr{{"name", "b"}}, Children: []*Document{{Type: "Leaf"}}},
			{Type: "Item", Attrs: []Attr{{"name", "c"}, {"kind", "x"}}},
		},
	})
}

func TestTraverse(t *testing.T) {
	t.Parallel()
	tr := sample()
	peer := func(offset int) Step { s := NewStep(ToPeer); s.Offset = offset; return s }
	child := func(typ string, index int) Step {
		s := NewStep(ToChild)
		s.TypeFilter = typ
		s.Index = index
		return s
	}

	tests := []struct {
		name   string
		from   int
		origin int
		path   []Step
		want   int
		ok     bool
	}{
		{name: "parent", from: 3, path: []Step{NewStep(ToParent)}, want: 0, ok: true},
		{name: "parent of root", from: 0, path: []Step{NewStep(ToParent)}, ok: false},
		{name: "root is its own peer", from: 0, path: []Step{NewStep(ToPeer)}, want: 0, ok: true},
		{name: "next peer", from: 1, path: []Step{peer(1)}, want: 2, ok: true},
		{name: "second next peer", from: 1, path: []Step{peer(2)}, want: 3, ok: true},
		{name: "previous peer", from: 3, path: []Step{peer(-1)}, want: 2, ok: true},
		{name: "previous of first", from: 1, path: []Step{peer(-1)}, ok: false},
		{name: "next of last", from: 5, path: []Step{peer(1)}, ok: false},
		{name: "filtered next peer skips others", from: 1, path: []Step{func() Step { s := peer(1); s.TypeFilter = "Item"; return s }()}, want: 3, ok: true},
		{name: "filtered previous from non candidate", from: 2, path: []Step{func() Step { s := peer(-1); s.TypeFilter = "Item"; return s }()}, want: 1, ok: true},
		{name: "child by index", from: 0, path: []Step{child("Item", 1)}, want: 3, ok: true},
		{name: "child index out of range", from: 0, path: []Step{child("Item", 3)}, ok: false},
		{name: "ambiguous child", from: 0, path: []Step{child("Item", -1)}, ok: false},
		{name: "unique child", from: 0, path: []Step{child("Sep", -1)}, want: 2, ok: true},
		{name: "two steps", from: 1, path: []Step{NewStep(ToParent), child("Item", 1), child("", -1)}, want: 4, ok: true},
		{name: "offset on child is rejected", from: 0, path: []Step{func() Step { s := NewStep(ToChild); s.Offset = 1; return s }()}, ok: false},
		{
			name:   "key filter evaluated at origin",
			from:   0,
			origin: 3,
			path: []Step{func() Step {
				s := NewStep(ToChild)
				s.KeyFilter = []KeyFilter{{Key: "name", Value: Key("name")}}
				return s
			}()},
			want: 3, ok: true,
		},
		{
			name:   "failed filter value matches only missing keys",
			from:   0,
			origin: 2,
			path: []Step{func() Step {
				s := NewStep(ToChild)
				s.KeyFilter = []KeyFilter{{Key: "name", Value: Key("name")}}
				return s
			}()},
			want: 2, ok: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := tr.Traverse(tt.from, &tr.Node(tt.origin).Payload, tt.path)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestSingleValue(t *testing.T) {
	t.Parallel()
	tr := sample()
	side := FromDocument(&Document{Type: "Table", Children: []*Document{{Type: "Entry", Attrs: []Attr{{"v", "side"}}}}})
	ctx := &Context{Main: tr, Side: []*Tree{side}, Start: 3}

	next := NewStep(ToPeer)
	next.Offset = 1
	entry := NewStep(ToChild)

	tests := []struct {
		name    string
		value   SingleValue
		want    string
		wantErr error
	}{
		{name: "literal", value: Const("x"), want: "x"},
		{name: "key here", value: Here(Key("name")), want: "b"},
		{name: "missing key", value: Here(Key("nope")), wantErr: ErrNoSuchKey},
		{name: "type here", value: Here(Type()), want: "Item"},
		{name: "traverse", value: SingleValue{Tree: MainTree, Path: []Step{next}, At: Key("kind"), Strategy: TraverseOnly}, want: "x"},
		{name: "traverse fails", value: SingleValue{Tree: MainTree, Path: []Step{NewStep(ToParent), NewStep(ToParent)}, At: Type(), Strategy: TraverseOnly}, wantErr: ErrTraversal},
		{name: "destination value fails", value: SingleValue{Tree: MainTree, Path: []Step{NewStep(ToParent)}, At: Key("name"), Strategy: TraverseOnly}, wantErr: ErrNoSuchKey},
		{name: "fallback", value: SingleValue{Tree: MainTree, Path: []Step{NewStep(ToParent), NewStep(ToParent)}, At: Type(), Default: Key("name"), Strategy: TraverseWithFallback}, want: "b"},
		{name: "fallback on value failure", value: SingleValue{Tree: MainTree, Path: []Step{NewStep(ToParent)}, At: Key("name"), Default: Lit("d"), Strategy: TraverseWithFallback}, want: "d"},
		{name: "side tree starts at its root", value: SingleValue{Tree: 0, Path: []Step{entry}, At: Key("v"), Strategy: TraverseOnly}, want: "side"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := tt.value.Eval(ctx)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.ErrorIs(t, err, ErrEvaluation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPredicate(t *testing.T) {
	t.Parallel()
	tr := sample()
	ctx := &Context{Main: tr, Start: 3}
	leaf := NewStep(ToChild)
	leaf.TypeFilter = "Leaf"

	ok, err := Equal(Here(Key("name")), Const("b")).Eval(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Equal(Here(Key("name")), Const("b")).Not().Eval(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// a failed operand is not false, even when inverted
	_, err = Equal(Here(Key("missing")), Const("")).Not().Eval(ctx)
	assert.ErrorIs(t, err, ErrNoSuchKey)

	ok, err = Exists(leaf).Eval(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Exists(NewStep(ToParent), NewStep(ToParent)).Eval(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.True(t, AllHold(ctx, nil))
	assert.False(t, AllHold(ctx, []Predicate{Exists(leaf), Equal(Here(Key("missing")), Const(""))}))
}

func TestBranchedValue(t *testing.T) {
	t.Parallel()
	tr := sample()
	v := BranchedValue{Branches: []Branch{
		{When: []Predicate{Equal(Here(Key("name")), Const("a"))}, Value: Const("first")},
		{When: []Predicate{Equal(Here(Key("name")), Const("b"))}, Value: Here(Key("missing"))},
		{When: []Predicate{Exists(NewStep(ToParent))}, Value: Here(Key("name"))},
	}}

	got, err := v.Eval(&Context{Main: tr, Start: 1})
	require.NoError(t, err)
	assert.Equal(t, "first", got)

	// second branch holds but its value fails, so the third is used
	got, err = v.Eval(&Context{Main: tr, Start: 3})
	require.NoError(t, err)
	assert.Equal(t, "b", got)

	_, err = v.Eval(&Context{Main: tr, Start: 0})
	assert.ErrorIs(t, err, ErrNoBranch)

	failing := BranchedValue{Branches: []Branch{{Value: Here(Key("missing"))}}}
	_, err = failing.Eval(&Context{Main: tr, Start: 1})
	assert.ErrorIs(t, err, ErrNoBranch)
	assert.ErrorIs(t, err, ErrNoSuchKey)
}

func TestExpressionYAML(t *testing.T) {
	t.Parallel()
	src := `
branches:
  - when:
      - equal: [{key: name}, "b"]
      - exists: [{to: child, type: Leaf}]
        not: true
    value: bad
  - when:
      - exists:
          path:
            - {to: peer, offset: 1, where: {kind: x}}
    value:
      path: [{to: peer, offset: 1}]
      at: {key: kind}
  - value: {type: true}
`
	var v BranchedValue
	require.NoError(t, yaml.Unmarshal([]byte(src), &v))
	require.Len(t, v.Branches, 3)

	first := v.Branches[0]
	require.Len(t, first.When, 2)
	assert.Equal(t, ValueEqual, first.When[0].Kind)
	assert.Equal(t, Here(Key("name")), first.When[0].Left)
	assert.Equal(t, Const("b"), first.When[0].Right)
	assert.True(t, first.When[1].Invert)
	assert.Equal(t, "Leaf", first.When[1].Exists.Path[0].TypeFilter)
	assert.Equal(t, -1, first.When[1].Exists.Path[0].Index)

	second := v.Branches[1]
	assert.Equal(t, TraverseOnly, second.Value.Strategy)
	assert.Equal(t, Key("kind"), second.Value.At)
	assert.Equal(t, []KeyFilter{{Key: "kind", Value: Lit("x")}}, second.When[0].Exists.Path[0].KeyFilter)

	tr := sample()
	got, err := v.Eval(&Context{Main: tr, Start: 3})
	require.NoError(t, err)
	assert.Equal(t, "x", got)

	got, err = v.Eval(&Context{Main: tr, Start: 0})
	require.NoError(t, err)
	assert.Equal(t, "Doc", got)
}

func TestExpressionYAMLErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		src  string
		into any
	}{
		{name: "bad destination", src: "{to: sideways}", into: &Step{}},
		{name: "missing destination", src: "{type: A}", into: &Step{}},
		{name: "empty predicate", src: "{not: true}", into: &Predicate{}},
		{name: "equal arity", src: "{equal: [a]}", into: &Predicate{}},
		{name: "traverse without path", src: "{mode: traverse}", into: &SingleValue{}},
		{name: "ambiguous local value", src: "{key: a, literal: b}", into: &LocalValue{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Error(t, yaml.Unmarshal([]byte(tt.src), tt.into))
		})
	}
}

func TestTreeJSON(t *testing.T) {
	t.Parallel()
	tr := sample()
	data, err := json.Marshal(tr)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"Doc"`)
	assert.Contains(t, string(data), `{"key":"kind","value":"x"}`)

	var back Tree
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, tr.Equal(&back))
}
