// Package schema validates tree documents against the embedded JSON schema.
package schema

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed tree.schema.json
var treeSchema []byte

// ErrInvalidDocument is returned when a document breaks the schema.
var ErrInvalidDocument = errors.New("invalid tree document")

// Violation is one schema error.
type Violation struct {
	Field       string
	Description string
}

func (v Violation) String() string { return v.Field + ": " + v.Description }

// Schema returns the raw schema text.
func Schema() []byte { return treeSchema }

// Validate checks JSON data. Malformed JSON is an error; schema violations
// are returned along with an error wrapping ErrInvalidDocument.
func Validate(data []byte) ([]Violation, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(treeSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("schema validation: %w", err)
	}
	if result.Valid() {
		return nil, nil
	}

	out := make([]Violation, 0, len(result.Errors()))
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		v := Violation{Field: e.Field(), Description: e.Description()}
		out = append(out, v)
		msgs = append(msgs, v.String())
	}
	return out, fmt.Errorf("%w: %s", ErrInvalidDocument, strings.Join(msgs, "; "))
}
