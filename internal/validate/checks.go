package validate

import (
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/ageloader/batchloader/internal/schema"
)

var formatValidators = map[string]*regexp.Regexp{
	"email": regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`),
	"uuid":  regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`),
}

// checkType reports a type mismatch between spec's declared property
// type and val's runtime JSON representation (val comes from
// encoding/json with UseNumber, so integers and floats arrive as
// json.Number, not float64).
func checkType(spec schema.PropSpec, val interface{}) error {
	switch spec.Type {
	case schema.PropString, schema.PropDate:
		if _, ok := val.(string); !ok {
			return fmt.Errorf("expected string, got %T", val)
		}
	case schema.PropBoolean:
		if _, ok := val.(bool); !ok {
			return fmt.Errorf("expected boolean, got %T", val)
		}
	case schema.PropNumber:
		num, ok := val.(json.Number)
		if !ok {
			return fmt.Errorf("expected number, got %T", val)
		}
		if spec.NumberKind == schema.NumberInteger {
			if _, err := num.Int64(); err != nil {
				return fmt.Errorf("expected integer, got %q", num.String())
			}
		}
	case schema.PropArray:
		if _, ok := val.([]interface{}); !ok {
			return fmt.Errorf("expected array, got %T", val)
		}
	case schema.PropObject:
		if _, ok := val.(map[string]interface{}); !ok {
			return fmt.Errorf("expected object, got %T", val)
		}
	}
	return nil
}

// checkConstraints applies minimum/maximum/format once the type itself
// already matched.
func checkConstraints(spec schema.PropSpec, val interface{}) error {
	if spec.Minimum != nil || spec.Maximum != nil {
		n, ok := numericValue(val)
		if ok {
			if spec.Minimum != nil && n < *spec.Minimum {
				return fmt.Errorf("%v is below minimum %v", n, *spec.Minimum)
			}
			if spec.Maximum != nil && n > *spec.Maximum {
				return fmt.Errorf("%v is above maximum %v", n, *spec.Maximum)
			}
		} else if s, ok := val.(string); ok {
			l := float64(len(s))
			if spec.Minimum != nil && l < *spec.Minimum {
				return fmt.Errorf("length %v is below minimum %v", l, *spec.Minimum)
			}
			if spec.Maximum != nil && l > *spec.Maximum {
				return fmt.Errorf("length %v is above maximum %v", l, *spec.Maximum)
			}
		}
	}
	if spec.Format != "" {
		if err := checkFormat(spec.Format, val); err != nil {
			return err
		}
	}
	return nil
}

func numericValue(val interface{}) (float64, bool) {
	num, ok := val.(json.Number)
	if !ok {
		return 0, false
	}
	f, err := num.Float64()
	if err != nil {
		return 0, false
	}
	return f, true
}

func checkFormat(format string, val interface{}) error {
	s, ok := val.(string)
	if !ok {
		return nil // format constraints only apply to strings
	}
	switch format {
	case "email", "uuid":
		if !formatValidators[format].MatchString(s) {
			return fmt.Errorf("%q does not match format %q", s, format)
		}
	case "date-time", "date":
		layout := time.RFC3339
		if format == "date" {
			layout = "2006-01-02"
		}
		if _, err := time.Parse(layout, s); err != nil {
			return fmt.Errorf("%q does not match format %q: %w", s, format, err)
		}
	}
	return nil
}
