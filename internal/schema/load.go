package schema

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// LoadFromReader decodes and validates a Schema from r.
func LoadFromReader(r io.Reader) (*Schema, error) {
	var s Schema
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("schema: decode: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadFromFile is the file-system convenience wrapper LoadFromReader's
// callers (the CLI, tests) actually reach for.
func LoadFromFile(path string) (*Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("schema: open %s: %w", path, err)
	}
	defer f.Close()
	return LoadFromReader(f)
}
