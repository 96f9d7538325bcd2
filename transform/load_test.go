package transform

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnoswap-labs/treeform/tree"
)

const callRules = `
default: passthrough
unrecognized: default
types:
  Call:
    - action: replace
      skip:
        - [{to: peer, offset: 1, type: Args}]
      templates:
        - type: Invoke
          attrs:
            - key: callee
              value: {key: name}
            - key: argc
              value:
                path: [{to: peer, offset: 1, type: Args}]
                at: {key: n}
                default: "0"
        - parent: 0
  Stmt:
    - when:
        - exists: [{to: child, type: Expr}]
      action: modify
      patches:
        - {key: "", value: Block}
        - {key: size, value: "1"}
`

func TestDecodeRules(t *testing.T) {
	t.Parallel()
	rules, err := DecodeRules(strings.NewReader(callRules))
	require.NoError(t, err)
	assert.True(t, rules.UseDefaultForUnrecognized)
	require.Len(t, rules.ByType["Call"], 1)
	call := rules.ByType["Call"][0]
	assert.Equal(t, Replace, call.Action)
	assert.Equal(t, -1, call.Templates[0].Parent)
	assert.Equal(t, 0, call.Templates[1].Parent)
	assert.Equal(t, tree.TraverseWithFallback, call.Templates[0].Attrs[1].Value.Branches[0].Value.Strategy)

	res := New(rules).Transform(program(), nil)
	require.True(t, res.OK(), "%v", res.Err())
	assert.Equal(t, []string{"Doc", "Invoke", "Call", "Block", "Expr", "Invoke", "Call"}, types(res.Tree))
	assert.Equal(t, []string{"f", "2"}, res.Tree.Node(1).Values)
	assert.Equal(t, []string{"size"}, res.Tree.Node(3).Keys)
}

func TestDecodeRulesErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		src  string
	}{
		{name: "unknown action", src: "default: explode\n"},
		{name: "unknown field", src: "default: remove\nbogus: 1\n"},
		{name: "bad unrecognized", src: "unrecognized: maybe\n"},
		{name: "invalid rules", src: "default: modify\n"},
		{name: "forward template", src: "types:\n  A:\n    - action: replace\n      templates: [{parent: 1}, {type: B}]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := DecodeRules(strings.NewReader(tt.src))
			assert.Error(t, err)
		})
	}
}

func TestLoadRules(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(callRules), 0o644))
	rules, err := LoadRules(path)
	require.NoError(t, err)
	assert.Len(t, rules.ByType, 2)

	_, err = LoadRules(path + ".missing")
	assert.Error(t, err)
}
