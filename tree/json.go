package tree

import (
	"encoding/json"
	"fmt"
)

// Attr is the JSON form of one attribute.
type Attr struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Document is the nested JSON form of a tree node.
type Document struct {
	Type     string      `json:"type"`
	Attrs    []Attr      `json:"attrs,omitempty"`
	Children []*Document `json:"children,omitempty"`
}

// Document converts the tree into its nested form. An empty tree yields nil.
func (t *Tree) Document() *Document {
	if t.Empty() {
		return nil
	}
	return t.document(0)
}

func (t *Tree) document(i int) *Document {
	n := &t.nodes[i]
	d := &Document{Type: n.TypeName}
	for k := range n.Keys {
		d.Attrs = append(d.Attrs, Attr{Key: n.Keys[k], Value: n.Values[k]})
	}
	for _, off := range n.OffsetToChildren {
		d.Children = append(d.Children, t.document(i+off))
	}
	return d
}

// FromDocument flattens a nested document. A nil document yields an empty tree.
func FromDocument(d *Document) *Tree {
	b := NewBuilder()
	if d != nil {
		b.fromDocument(d, NoNode)
	}
	return b.Flatten()
}

func (b *Builder) fromDocument(d *Document, parent Handle) {
	h := b.AddNode(parent)
	p := b.Payload(h)
	p.TypeName = d.Type
	for _, a := range d.Attrs {
		p.Append(a.Key, a.Value)
	}
	for _, c := range d.Children {
		if c == nil {
			continue
		}
		b.fromDocument(c, h)
	}
}

func (t *Tree) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Document())
}

func (t *Tree) UnmarshalJSON(data []byte) error {
	var d *Document
	if err := json.Unmarshal(data, &d); err != nil {
		return fmt.Errorf("decoding tree: %w", err)
	}
	*t = *FromDocument(d)
	return nil
}
