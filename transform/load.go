package transform

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gnoswap-labs/treeform/tree"
)

// File layout:
//
//	default: remove
//	unrecognized: default          # or passthrough, remove, error
//	side_trees: [symbols]
//	types:
//	  Call:
//	    - when: [...]
//	      action: replace
//	      skip: [[{to: peer, offset: 1}]]
//	      templates:
//	        - type: Invoke
//	          attrs: [{key: name, value: {key: callee}}]
//	        - parent: 0            # omitted type: copy of the source node

func (a Action) MarshalYAML() (any, error) { return a.String(), nil }

func (a *Action) UnmarshalYAML(n *yaml.Node) error {
	for i, name := range actionNames {
		if n.Value == name {
			*a = Action(i)
			return nil
		}
	}
	return fmt.Errorf("line %d: unknown action %q", n.Line, n.Value)
}

func (t *Template) UnmarshalYAML(n *yaml.Node) error {
	type plain Template
	raw := plain{Type: tree.Always(tree.Const("")), Parent: -1}
	if err := n.Decode(&raw); err != nil {
		return err
	}
	*t = Template(raw)
	return nil
}

type rulesFile struct {
	Default      Action            `yaml:"default"`
	Unrecognized string            `yaml:"unrecognized"`
	SideTrees    []string          `yaml:"side_trees"`
	Types        map[string][]Rule `yaml:"types"`
}

// DecodeRules decodes and validates a YAML rule set.
func DecodeRules(r io.Reader) (Rules, error) {
	var f rulesFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return Rules{}, err
	}

	rules := Rules{
		Default:   f.Default,
		SideTrees: f.SideTrees,
		ByType:    f.Types,
	}
	switch f.Unrecognized {
	case "", "default":
		rules.UseDefaultForUnrecognized = true
	default:
		node := yaml.Node{Kind: yaml.ScalarNode, Value: f.Unrecognized}
		if err := node.Decode(&rules.Unrecognized); err != nil {
			return Rules{}, err
		}
	}
	if err := rules.Validate(); err != nil {
		return Rules{}, err
	}
	return rules, nil
}

// LoadRules reads a YAML rule set file.
func LoadRules(path string) (Rules, error) {
	f, err := os.Open(path)
	if err != nil {
		return Rules{}, err
	}
	defer f.Close()

	rules, err := DecodeRules(f)
	if err != nil {
		return Rules{}, fmt.Errorf("%s: %w", path, err)
	}
	return rules, nil
}
