package textgen

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

func (p *UnknownPolicy) UnmarshalYAML(n *yaml.Node) error {
	switch n.Value {
	case "ignore":
		*p = Ignore
	case "error":
		*p = Fail
	case "expand":
		*p = Expand
	default:
		return fmt.Errorf("line %d: unknown node policy %q", n.Line, n.Value)
	}
	return nil
}

func (p *EvalFailPolicy) UnmarshalYAML(n *yaml.Node) error {
	switch n.Value {
	case "skip":
		*p = Skip
	case "error":
		*p = Abort
	default:
		return fmt.Errorf("line %d: unknown evaluation failure policy %q", n.Line, n.Value)
	}
	return nil
}

type rulesFile struct {
	Unknown    UnknownPolicy        `yaml:"unknown"`
	OnEvalFail EvalFailPolicy       `yaml:"on_eval_fail"`
	Types      map[string]Expansion `yaml:"types"`
	Aliases    map[string][]string  `yaml:"aliases"`
}

// DecodeRules decodes and validates YAML generator rules:
//
//	unknown: expand            # ignore | error | expand
//	on_eval_fail: skip         # skip | error
//	types:
//	  Section:
//	    header: ["[", {key: name}, "]\n"]
//	    delimiter: ["\n"]
//	aliases:
//	  Section: [Group]
func DecodeRules(r io.Reader) (Rules, error) {
	var f rulesFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return Rules{}, err
	}
	rules := Rules{
		Unknown:    f.Unknown,
		OnEvalFail: f.OnEvalFail,
		Expansions: f.Types,
		Aliases:    f.Aliases,
	}
	if err := rules.Validate(); err != nil {
		return Rules{}, err
	}
	return rules, nil
}

// LoadRules reads a YAML generator rules file.
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
