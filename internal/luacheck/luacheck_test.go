package luacheck

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnoswap-labs/treeform/parser"
)

const balanced = `
local depth = 0
for c in text:gmatch("[()]") do
  depth = depth + (c == "(" and 1 or -1)
end
if depth == 0 then return 0 end
return #text + 1
`

func statement(validator string) *parser.Grammar {
	return &parser.Grammar{
		Root:       "Stmt",
		Whitespace: []string{" "},
		Contents:   []parser.ContentType{{Name: "Expr", Validator: validator}, {Name: "Plain"}},
		Rules: []parser.Rule{{
			Name: "Stmt",
			Patterns: []parser.Pattern{{TypeName: "Stmt", Elements: []parser.Element{
				{Kind: parser.ElemContent, Text: "Expr", Export: "expr"},
				{Kind: parser.ElemLiteral, Text: ";"},
			}}},
		}},
	}
}

func TestCheckerResumesPastUnbalancedBoundary(t *testing.T) {
	t.Parallel()
	g := statement(balanced)
	c, err := New(g)
	require.NoError(t, err)
	defer c.Close()
	assert.True(t, c.Has("Expr"))
	assert.False(t, c.Has("Plain"))

	got, err := parser.New(*g, parser.WithContentChecker(c)).Parse("f(a;b);")
	require.NoError(t, err)
	v, _ := got.Node(0).Lookup("expr")
	assert.Equal(t, "f(a;b)", v)

	_, err = parser.New(*g).Parse("f(a;b);")
	assert.ErrorIs(t, err, parser.ErrTrailingGarbage)
}

func TestCheckerResults(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		validator string
		want      int
		wantErr   bool
	}{
		{name: "true accepts", validator: "return true", want: 0},
		{name: "false rejects", validator: "return false", want: -1},
		{name: "nothing accepts", validator: "", want: 0},
		{name: "number passes through", validator: "return #text + 2", want: 5},
		{name: "negative number rejects", validator: "return -7", want: -1},
		{name: "resume inside the content rejects", validator: "return 1", want: -1, wantErr: true},
		{name: "resume at the boundary rejects", validator: "return #text", want: -1, wantErr: true},
		{name: "fraction rejects", validator: "return 4.5", want: -1, wantErr: true},
		{name: "nan rejects", validator: "return 0/0", want: -1, wantErr: true},
		{name: "huge number is clamped", validator: "return 1e300", want: math.MaxInt32},
		{name: "chop flag is visible", validator: "if chop then return -1 end return 0", want: -1},
		{name: "string result rejects", validator: `return "yes"`, want: -1, wantErr: true},
		{name: "runtime error rejects", validator: `error("bad")`, want: -1, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var failures int
			validator := tt.validator
			if validator == "" {
				validator = "local _ = text"
			}
			c, err := New(statement(validator), WithErrorHandler(func(ct parser.ContentType, err error) {
				assert.Equal(t, "Expr", ct.Name)
				failures++
			}))
			require.NoError(t, err)
			defer c.Close()

			assert.Equal(t, tt.want, c.Check(parser.ContentType{Name: "Expr"}, "abc", true))
			assert.Equal(t, tt.wantErr, failures > 0)
			assert.Equal(t, 0, c.Check(parser.ContentType{Name: "Plain"}, "abc", true))
		})
	}
}

func TestCheckerTimeout(t *testing.T) {
	t.Parallel()
	c, err := New(statement("while true do end"), WithTimeout(20*time.Millisecond))
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, -1, c.Check(parser.ContentType{Name: "Expr"}, "x", false))
}

func TestNewRejectsBrokenValidator(t *testing.T) {
	t.Parallel()
	_, err := New(statement("return ("))
	assert.Error(t, err)
}

func TestSandboxHasNoOS(t *testing.T) {
	t.Parallel()
	c, err := New(statement(`if os == nil and io == nil then return 0 end return -1`))
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, 0, c.Check(parser.ContentType{Name: "Expr"}, "x", false))
}

func TestCheckerShortResumeDoesNotBreakParse(t *testing.T) {
	t.Parallel()
	var failures int
	c, err := New(statement("return 1"), WithErrorHandler(func(parser.ContentType, error) { failures++ }))
	require.NoError(t, err)
	defer c.Close()

	assert.NotPanics(t, func() {
		_, err = parser.New(*statement("return 1"), parser.WithContentChecker(c)).Parse("abc;")
	})
	assert.ErrorIs(t, err, parser.ErrRootNotMatched)
	assert.Positive(t, failures)
}
