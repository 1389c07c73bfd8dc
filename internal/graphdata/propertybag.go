// Package graphdata holds the GraphData payload shape the loader consumes:
// typed collections of ordered property bags. No pack repo carries an
// ordered-map library (the closest relative, the DSL parsers in the
// teacher, just use plain Go maps and accept lost ordering), so
// PropertyBag is hand-rolled here on top of encoding/json's token
// streaming — documented in DESIGN.md as the one deliberate stdlib-only
// component, since the wire-format fidelity the staging protocol needs
// (original key order preserved in the JSON handed to the helper UDFs)
// has no third-party match in the retrieval set.
package graphdata

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// PropertyBag is an ordered string-keyed dictionary of JSON-compatible
// values. Numbers decode via json.Number so the Validator can distinguish
// integer from floating-point without rounding information loss.
type PropertyBag struct {
	keys   []string
	values map[string]interface{}
}

// NewPropertyBag returns an empty bag ready for Set.
func NewPropertyBag() *PropertyBag {
	return &PropertyBag{values: make(map[string]interface{})}
}

// Set assigns key, appending it to the key order on first use and leaving
// the order unchanged on overwrite.
func (b *PropertyBag) Set(key string, val interface{}) {
	if b.values == nil {
		b.values = make(map[string]interface{})
	}
	if _, exists := b.values[key]; !exists {
		b.keys = append(b.keys, key)
	}
	b.values[key] = val
}

// Get returns the value at key and whether it was present.
func (b *PropertyBag) Get(key string) (interface{}, bool) {
	v, ok := b.values[key]
	return v, ok
}

// Keys returns the bag's keys in declaration order.
func (b *PropertyBag) Keys() []string { return append([]string(nil), b.keys...) }

// Len reports the number of entries in the bag.
func (b *PropertyBag) Len() int { return len(b.keys) }

// ID returns the bag's "id" field as a string, if present and string-typed.
func (b *PropertyBag) ID() (string, bool) {
	v, ok := b.Get("id")
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Endpoint returns the bag's "from"/"to" fields as strings.
func (b *PropertyBag) Endpoint(field string) (string, bool) {
	v, ok := b.Get(field)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func decodeValue(raw json.RawMessage) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// UnmarshalJSON decodes a JSON object into the bag, preserving key order.
func (b *PropertyBag) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '{' {
		return fmt.Errorf("graphdata: expected JSON object for property bag")
	}
	b.keys = nil
	b.values = make(map[string]interface{})
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("graphdata: non-string object key")
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		val, err := decodeValue(raw)
		if err != nil {
			return err
		}
		if _, exists := b.values[key]; !exists {
			b.keys = append(b.keys, key)
		}
		b.values[key] = val
	}
	_, err = dec.Token() // closing '}'
	return err
}

// MarshalJSON re-emits the bag as a JSON object in its original key order.
func (b *PropertyBag) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range b.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(b.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
