package tree

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// YAML forms
//
//	local value:    "text" | {literal: text} | {key: name} | {type: true}
//	step:           {to: parent|peer|child, type: T, where: {k: <local>}, index: n, offset: n}
//	single value:   <local> | {tree: n, path: [<step>...], at: <local>, default: <local>, mode: default|traverse|fallback}
//	predicate:      {equal: [<single>, <single>], not: bool} | {exists: {tree: n, path: [...]}, not: bool}
//	branched value: <single> | {branches: [{when: [<predicate>...], value: <single>}]}

func fields(n *yaml.Node) (map[string]*yaml.Node, error) {
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: expected a mapping", n.Line)
	}
	out := make(map[string]*yaml.Node, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		out[n.Content[i].Value] = n.Content[i+1]
	}
	return out, nil
}

func isLocalValueForm(f map[string]*yaml.Node) bool {
	_, lit := f["literal"]
	_, key := f["key"]
	_, ty := f["type"]
	return len(f) == 1 && (lit || key || ty)
}

func (v *LocalValue) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		*v = Lit(n.Value)
		return nil
	}
	f, err := fields(n)
	if err != nil {
		return err
	}
	if !isLocalValueForm(f) {
		return fmt.Errorf("line %d: value needs exactly one of literal, key or type", n.Line)
	}
	switch {
	case f["literal"] != nil:
		*v = Lit(f["literal"].Value)
	case f["key"] != nil:
		*v = Key(f["key"].Value)
	default:
		*v = Type()
	}
	return nil
}

func (v LocalValue) MarshalYAML() (any, error) {
	switch v.Kind {
	case KeyValue:
		return map[string]string{"key": v.Text}, nil
	case NodeType:
		return map[string]bool{"type": true}, nil
	default:
		return map[string]string{"literal": v.Text}, nil
	}
}

func (d *Destination) UnmarshalYAML(n *yaml.Node) error {
	switch n.Value {
	case "parent":
		*d = ToParent
	case "peer":
		*d = ToPeer
	case "child":
		*d = ToChild
	default:
		return fmt.Errorf("line %d: unknown step destination %q", n.Line, n.Value)
	}
	return nil
}

func (s *Step) UnmarshalYAML(n *yaml.Node) error {
	f, err := fields(n)
	if err != nil {
		return err
	}
	*s = NewStep(ToChild)
	to, ok := f["to"]
	if !ok {
		return fmt.Errorf("line %d: step needs a destination", n.Line)
	}
	if err := to.Decode(&s.Dest); err != nil {
		return err
	}
	if t, ok := f["type"]; ok {
		s.TypeFilter = t.Value
	}
	if w, ok := f["where"]; ok {
		if w.Kind != yaml.MappingNode {
			return fmt.Errorf("line %d: where must be a mapping", w.Line)
		}
		for i := 0; i+1 < len(w.Content); i += 2 {
			kf := KeyFilter{Key: w.Content[i].Value}
			if err := w.Content[i+1].Decode(&kf.Value); err != nil {
				return err
			}
			s.KeyFilter = append(s.KeyFilter, kf)
		}
	}
	if i, ok := f["index"]; ok {
		if err := i.Decode(&s.Index); err != nil {
			return err
		}
	}
	if o, ok := f["offset"]; ok {
		if err := o.Decode(&s.Offset); err != nil {
			return err
		}
	}
	return nil
}

func (s *Strategy) UnmarshalYAML(n *yaml.Node) error {
	switch n.Value {
	case "default":
		*s = DefaultOnly
	case "traverse":
		*s = TraverseOnly
	case "fallback":
		*s = TraverseWithFallback
	default:
		return fmt.Errorf("line %d: unknown evaluation mode %q", n.Line, n.Value)
	}
	return nil
}

func (v *SingleValue) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		*v = Const(n.Value)
		return nil
	}
	f, err := fields(n)
	if err != nil {
		return err
	}
	if isLocalValueForm(f) {
		var lv LocalValue
		if err := n.Decode(&lv); err != nil {
			return err
		}
		*v = Here(lv)
		return nil
	}

	*v = SingleValue{Tree: MainTree, Default: Lit("")}
	if t, ok := f["tree"]; ok {
		if err := t.Decode(&v.Tree); err != nil {
			return err
		}
	}
	if p, ok := f["path"]; ok {
		if err := p.Decode(&v.Path); err != nil {
			return err
		}
	}
	if a, ok := f["at"]; ok {
		if err := a.Decode(&v.At); err != nil {
			return err
		}
	} else {
		v.At = Type()
	}
	_, hasDefault := f["default"]
	if hasDefault {
		if err := f["default"].Decode(&v.Default); err != nil {
			return err
		}
	}
	switch m, ok := f["mode"]; {
	case ok:
		if err := m.Decode(&v.Strategy); err != nil {
			return err
		}
	case len(v.Path) == 0:
		v.Strategy = DefaultOnly
	case hasDefault:
		v.Strategy = TraverseWithFallback
	default:
		v.Strategy = TraverseOnly
	}
	if v.Strategy == TraverseOnly && len(v.Path) == 0 {
		return fmt.Errorf("line %d: traverse mode needs a path", n.Line)
	}
	return nil
}

func (t *NodeTest) UnmarshalYAML(n *yaml.Node) error {
	*t = NodeTest{Tree: MainTree}
	if n.Kind == yaml.SequenceNode {
		return n.Decode(&t.Path)
	}
	f, err := fields(n)
	if err != nil {
		return err
	}
	if tr, ok := f["tree"]; ok {
		if err := tr.Decode(&t.Tree); err != nil {
			return err
		}
	}
	if p, ok := f["path"]; ok {
		if err := p.Decode(&t.Path); err != nil {
			return err
		}
	}
	return nil
}

func (p *Predicate) UnmarshalYAML(n *yaml.Node) error {
	f, err := fields(n)
	if err != nil {
		return err
	}
	*p = Predicate{}
	if not, ok := f["not"]; ok {
		if err := not.Decode(&p.Invert); err != nil {
			return err
		}
	}
	eq, isEq := f["equal"]
	ex, isEx := f["exists"]
	switch {
	case isEq && isEx:
		return fmt.Errorf("line %d: predicate has both equal and exists", n.Line)
	case isEq:
		var pair []SingleValue
		if err := eq.Decode(&pair); err != nil {
			return err
		}
		if len(pair) != 2 {
			return fmt.Errorf("line %d: equal needs two values, got %d", eq.Line, len(pair))
		}
		p.Kind = ValueEqual
		p.Left, p.Right = pair[0], pair[1]
	case isEx:
		p.Kind = NodeExist
		if err := ex.Decode(&p.Exists); err != nil {
			return err
		}
	default:
		return fmt.Errorf("line %d: predicate needs equal or exists", n.Line)
	}
	return nil
}

func (b *Branch) UnmarshalYAML(n *yaml.Node) error {
	f, err := fields(n)
	if err != nil {
		return err
	}
	*b = Branch{}
	if w, ok := f["when"]; ok {
		if err := w.Decode(&b.When); err != nil {
			return err
		}
	}
	v, ok := f["value"]
	if !ok {
		return fmt.Errorf("line %d: branch needs a value", n.Line)
	}
	return v.Decode(&b.Value)
}

func (b *BranchedValue) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.MappingNode {
		f, err := fields(n)
		if err != nil {
			return err
		}
		if br, ok := f["branches"]; ok {
			*b = BranchedValue{}
			return br.Decode(&b.Branches)
		}
	}
	var v SingleValue
	if err := n.Decode(&v); err != nil {
		return err
	}
	*b = Always(v)
	return nil
}
