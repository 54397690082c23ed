// Package seed loads startup records from YAML.
//
// A seed document is a mapping from record type name to a sequence of
// records:
//
//	Product:
//	  - Id: "1000"
//	    ProductName: Long Term Disability
//	    CostPerUnit: 100
//	Policy:
//	  - Id: "2000"
//	    Product: "1000"
//	    PolicyStartDate: 2010-04-10
//
// Records are created through the engine, so they get the same conversion,
// defaults and relationship linking as any other write. Types are applied
// in schema declaration order and records in document order.
package seed

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/roach88/recordgraph/internal/engine"
	"github.com/roach88/recordgraph/internal/ir"
)

// Data is a decoded seed document.
type Data struct {
	// Types lists the record types in document order.
	Types []string

	// Records holds each type's records in document order.
	Records map[string][]ir.IRObject
}

// Count returns the total number of records.
func (d *Data) Count() int {
	n := 0
	for _, recs := range d.Records {
		n += len(recs)
	}
	return n
}

// LoadFile reads a seed document from disk.
func LoadFile(path string) (*Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return Parse(raw)
}

// Parse decodes a seed document.
func Parse(raw []byte) (*Data, error) {
	return Decode(bytes.NewReader(raw))
}

// Decode reads one seed document from r. An empty document yields no
// records.
func Decode(r io.Reader) (*Data, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return &Data{Records: map[string][]ir.IRObject{}}, nil
		}
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	data := &Data{Records: map[string][]ir.IRObject{}}
	if len(doc.Content) == 0 {
		return data, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("seed: line %d: top level must map record types to lists", root.Line)
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		name := root.Content[i].Value
		list := root.Content[i+1]
		if _, dup := data.Records[name]; dup {
			return nil, fmt.Errorf("seed: line %d: type %s listed twice", root.Content[i].Line, name)
		}
		if list.Kind != yaml.SequenceNode {
			return nil, fmt.Errorf("seed: line %d: %s must be a list of records", list.Line, name)
		}

		recs := make([]ir.IRObject, 0, len(list.Content))
		for j, item := range list.Content {
			var m map[string]any
			if err := item.Decode(&m); err != nil {
				return nil, fmt.Errorf("seed: %s[%d]: %w", name, j, err)
			}
			obj, err := ir.ObjectFromGo(m)
			if err != nil {
				return nil, fmt.Errorf("seed: %s[%d]: %w", name, j, err)
			}
			recs = append(recs, obj)
		}
		data.Types = append(data.Types, name)
		data.Records[name] = recs
	}
	return data, nil
}

// Apply creates every record in data. A type the schema does not declare
// fails before anything is written.
func Apply(e *engine.Engine, data *Data) (int, error) {
	dir := e.Directory()
	for _, name := range data.Types {
		if _, ok := dir.Kind(name); !ok {
			return 0, ir.NewNotFound(name, "", "seed names an undeclared record type")
		}
	}

	n := 0
	for _, t := range dir.Tables() {
		for i, rec := range data.Records[t.Name()] {
			if _, err := e.Create(t.Name(), rec); err != nil {
				return n, fmt.Errorf("seed %s[%d]: %w", t.Name(), i, err)
			}
			n++
		}
	}
	e.Logger().Debug("seed applied", zap.Int("records", n), zap.Int("types", len(data.Types)))
	return n, nil
}
