// Package schema defines the typed vertex and edge type model a graph
// payload is validated against: property specs, required sets, and
// endpoint references, unmarshalled from JSON while preserving
// declaration order (the Cypher generator and the batch-phase ordering
// both depend on it).
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ageloader/batchloader/internal/loaderr"
)

// PropType is the set of runtime types a PropSpec may declare.
type PropType string

const (
	PropString  PropType = "string"
	PropNumber  PropType = "number"
	PropBoolean PropType = "boolean"
	PropDate    PropType = "date"
	PropArray   PropType = "array"
	PropObject  PropType = "object"
)

// NumberKind refines PropNumber into integer or floating-point.
type NumberKind string

const (
	NumberInteger NumberKind = "integer"
	NumberFloat   NumberKind = "float"
)

// PropSpec is one property's type plus its optional constraints.
type PropSpec struct {
	Type       PropType   `json:"type"`
	NumberKind NumberKind `json:"numberKind,omitempty"`
	Minimum    *float64   `json:"minimum,omitempty"`
	Maximum    *float64   `json:"maximum,omitempty"`
	Format     string     `json:"format,omitempty"`
}

// VertexDef is a vertex type's property set and required-property list.
type VertexDef struct {
	Properties    map[string]PropSpec
	PropertyOrder []string
	Required      []string
}

// EdgeDef is an edge type's property set, required list, and endpoints.
type EdgeDef struct {
	Properties    map[string]PropSpec
	PropertyOrder []string
	Required      []string
	From          string
	To            string
}

// Schema is the typed schema document: a version plus the vertex and edge
// definitions, each retained in the order they were declared.
type Schema struct {
	Version     string
	Vertices    map[string]VertexDef
	VertexOrder []string
	Edges       map[string]EdgeDef
	EdgeOrder   []string
}

// Reader is the capability interface design note §9 calls for: the loader
// is polymorphic over any Schema satisfying this shape rather than coupled
// to the concrete struct, so a caller may supply a schema sourced from
// anywhere (JSON file, generated code, a registry) as long as it answers
// these questions.
type Reader interface {
	VertexTypes() []string
	EdgeTypes() []string
	VertexDef(t string) (VertexDef, bool)
	EdgeDef(t string) (EdgeDef, bool)
	RequiredOf(t string) ([]string, bool)
	PropertiesOf(t string) (map[string]PropSpec, bool)
	PropertyOrderOf(t string) ([]string, bool)
	EndpointTypesOf(e string) (from, to string, ok bool)
}

var _ Reader = (*Schema)(nil)

func (s *Schema) VertexTypes() []string { return append([]string(nil), s.VertexOrder...) }
func (s *Schema) EdgeTypes() []string   { return append([]string(nil), s.EdgeOrder...) }

func (s *Schema) VertexDef(t string) (VertexDef, bool) {
	d, ok := s.Vertices[t]
	return d, ok
}

func (s *Schema) EdgeDef(t string) (EdgeDef, bool) {
	d, ok := s.Edges[t]
	return d, ok
}

func (s *Schema) RequiredOf(t string) ([]string, bool) {
	if d, ok := s.Vertices[t]; ok {
		return d.Required, true
	}
	if d, ok := s.Edges[t]; ok {
		return d.Required, true
	}
	return nil, false
}

func (s *Schema) PropertiesOf(t string) (map[string]PropSpec, bool) {
	if d, ok := s.Vertices[t]; ok {
		return d.Properties, true
	}
	if d, ok := s.Edges[t]; ok {
		return d.Properties, true
	}
	return nil, false
}

func (s *Schema) PropertyOrderOf(t string) ([]string, bool) {
	if d, ok := s.Vertices[t]; ok {
		return d.PropertyOrder, true
	}
	if d, ok := s.Edges[t]; ok {
		return d.PropertyOrder, true
	}
	return nil, false
}

func (s *Schema) EndpointTypesOf(e string) (string, string, bool) {
	d, ok := s.Edges[e]
	if !ok {
		return "", "", false
	}
	return d.From, d.To, true
}

// Validate checks the structural invariants from the data-model section:
// every edge's from/to names a defined vertex type, and every required
// property name is itself declared in that type's property set.
func (s *Schema) Validate() error {
	for name, e := range s.Edges {
		if _, ok := s.Vertices[e.From]; !ok {
			return loaderr.NewConfigurationError(
				fmt.Sprintf("edge %q: from-type %q is not a defined vertex type", name, e.From), nil)
		}
		if _, ok := s.Vertices[e.To]; !ok {
			return loaderr.NewConfigurationError(
				fmt.Sprintf("edge %q: to-type %q is not a defined vertex type", name, e.To), nil)
		}
		if err := requiredSubsetOfProperties(name, e.Required, e.Properties); err != nil {
			return err
		}
	}
	for name, v := range s.Vertices {
		if err := requiredSubsetOfProperties(name, v.Required, v.Properties); err != nil {
			return err
		}
	}
	return nil
}

func requiredSubsetOfProperties(typeName string, required []string, props map[string]PropSpec) error {
	for _, r := range required {
		if r == "id" || r == "from" || r == "to" {
			continue // implicit join-key fields, never listed in properties
		}
		if _, ok := props[r]; !ok {
			return loaderr.NewConfigurationError(
				fmt.Sprintf("type %q: required property %q is not declared in properties", typeName, r), nil)
		}
	}
	return nil
}

// rawVertexDef/rawEdgeDef mirror VertexDef/EdgeDef but keep Properties as
// raw JSON so UnmarshalJSON can recover key order before decoding values.
type rawVertexDef struct {
	Properties json.RawMessage `json:"properties"`
	Required   []string        `json:"required"`
}

type rawEdgeDef struct {
	Properties json.RawMessage `json:"properties"`
	Required   []string        `json:"required"`
	From       string          `json:"from"`
	To         string          `json:"to"`
}

type rawSchema struct {
	Version  string          `json:"version"`
	Vertices json.RawMessage `json:"vertices"`
	Edges    json.RawMessage `json:"edges"`
}

// objectKeyOrder walks a JSON object's top-level keys in document order
// without needing a full recursive parse; encoding/json's map decoding
// alone cannot recover this, which is why every ordered field below
// decodes twice: once for key order, once (via the returned raw message)
// for values.
func objectKeyOrder(raw json.RawMessage) ([]string, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '{' {
		return nil, fmt.Errorf("schema: expected JSON object")
	}
	var keys []string
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		keys = append(keys, keyTok.(string))
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

func decodeVertexDef(raw rawVertexDef) (VertexDef, error) {
	order, err := objectKeyOrder(raw.Properties)
	if err != nil {
		return VertexDef{}, err
	}
	props := make(map[string]PropSpec, len(order))
	if len(raw.Properties) > 0 {
		if err := json.Unmarshal(raw.Properties, &props); err != nil {
			return VertexDef{}, err
		}
	}
	return VertexDef{Properties: props, PropertyOrder: order, Required: raw.Required}, nil
}

func decodeEdgeDef(raw rawEdgeDef) (EdgeDef, error) {
	order, err := objectKeyOrder(raw.Properties)
	if err != nil {
		return EdgeDef{}, err
	}
	props := make(map[string]PropSpec, len(order))
	if len(raw.Properties) > 0 {
		if err := json.Unmarshal(raw.Properties, &props); err != nil {
			return EdgeDef{}, err
		}
	}
	return EdgeDef{Properties: props, PropertyOrder: order, Required: raw.Required, From: raw.From, To: raw.To}, nil
}

// UnmarshalJSON decodes a Schema document, recovering the declaration
// order of vertex types, edge types, and each type's properties.
func (s *Schema) UnmarshalJSON(data []byte) error {
	var raw rawSchema
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	vertexOrder, err := objectKeyOrder(raw.Vertices)
	if err != nil {
		return err
	}
	var rawVertices map[string]rawVertexDef
	if len(raw.Vertices) > 0 {
		if err := json.Unmarshal(raw.Vertices, &rawVertices); err != nil {
			return err
		}
	}
	vertices := make(map[string]VertexDef, len(vertexOrder))
	for _, name := range vertexOrder {
		def, err := decodeVertexDef(rawVertices[name])
		if err != nil {
			return fmt.Errorf("schema: vertex %q: %w", name, err)
		}
		vertices[name] = def
	}

	edgeOrder, err := objectKeyOrder(raw.Edges)
	if err != nil {
		return err
	}
	var rawEdges map[string]rawEdgeDef
	if len(raw.Edges) > 0 {
		if err := json.Unmarshal(raw.Edges, &rawEdges); err != nil {
			return err
		}
	}
	edges := make(map[string]EdgeDef, len(edgeOrder))
	for _, name := range edgeOrder {
		def, err := decodeEdgeDef(rawEdges[name])
		if err != nil {
			return fmt.Errorf("schema: edge %q: %w", name, err)
		}
		edges[name] = def
	}

	s.Version = raw.Version
	s.Vertices = vertices
	s.VertexOrder = vertexOrder
	s.Edges = edges
	s.EdgeOrder = edgeOrder
	return nil
}

// New builds a Schema programmatically (as opposed to decoding JSON),
// preserving the vertex/edge order given.
func New(version string, vertexOrder []string, vertices map[string]VertexDef, edgeOrder []string, edges map[string]EdgeDef) (*Schema, error) {
	s := &Schema{
		Version:     version,
		Vertices:    vertices,
		VertexOrder: append([]string(nil), vertexOrder...),
		Edges:       edges,
		EdgeOrder:   append([]string(nil), edgeOrder...),
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}
