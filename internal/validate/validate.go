// Package validate implements the schema-conformance checks the batch
// loader runs against a GraphData payload before (or instead of, under a
// permissive policy) writing anything. Structure and error-kind naming
// follow correlator-io/correlator's internal/ingestion/validator.go: a
// small set of named failure kinds, dynamic detail wrapped onto a
// sentinel cause, and doc comments enumerating exactly which fields are
// checked.
package validate

import (
	"fmt"
	"sort"

	"github.com/ageloader/batchloader/internal/graphdata"
	"github.com/ageloader/batchloader/internal/loaderr"
	"github.com/ageloader/batchloader/internal/schema"
)

// ErrorKind names one of the validation failure categories from the
// validator's responsibility section. These are distinct from
// loaderr.Kind: they describe *why* a ValidationError occurred, not which
// of the top-level error taxonomy buckets it belongs to (every ValError
// below surfaces as a loaderr.KindValidation error to callers).
type ErrorKind string

const (
	UnknownType         ErrorKind = "UNKNOWN_TYPE"
	MissingRequired     ErrorKind = "MISSING_REQUIRED"
	TypeMismatch        ErrorKind = "TYPE_MISMATCH"
	ConstraintViolation ErrorKind = "CONSTRAINT_VIOLATION"
)

// Warning kinds, deduplicated by (kind, type, id|index).
const (
	WarnUnknownProperty  = "UNKNOWN_PROPERTY"
	WarnDuplicateID      = "DUPLICATE_ID"
	WarnDanglingRef      = "DANGLING_REFERENCE"
)

// ValError is one validation failure, ordered by (Type, Index, Property)
// across a full ValidationReport.
type ValError struct {
	Type     string
	Index    int
	Property string
	Kind     ErrorKind
	Message  string
}

// ValidationReport is the Validator's complete verdict on one payload.
type ValidationReport struct {
	Valid    bool
	Errors   []ValError
	Warnings []string
}

// Policy controls which checks run and how failures propagate.
type Policy struct {
	ValidateTypes          bool
	ValidateRequired       bool
	AllowUnknownProperties bool
	ThrowOnError           bool
}

// DefaultPolicy matches the Orchestrator's default validate-before-load
// behavior: full structural checking, unknown properties tolerated as
// warnings, nothing thrown.
func DefaultPolicy() Policy {
	return Policy{ValidateTypes: true, ValidateRequired: true, AllowUnknownProperties: true}
}

// Validator checks GraphData against a schema.Reader. It never touches
// the database.
type Validator struct {
	schema schema.Reader
	policy Policy
}

func NewValidator(s schema.Reader, policy Policy) *Validator {
	return &Validator{schema: s, policy: policy}
}

// ValidateVertex checks one vertex instance of the named type.
func (v *Validator) ValidateVertex(typeName string, index int, bag *graphdata.PropertyBag) ValidationReport {
	def, ok := v.schema.VertexDef(typeName)
	if !ok {
		return ValidationReport{
			Errors: []ValError{{Type: typeName, Index: index, Kind: UnknownType,
				Message: fmt.Sprintf("vertex type %q is not defined in schema", typeName)}},
		}
	}
	return v.validateAgainst(typeName, index, bag, def.Properties, def.Required, []string{"id"})
}

// ValidateEdge checks one edge instance of the named type, additionally
// requiring "from" and "to".
func (v *Validator) ValidateEdge(typeName string, index int, bag *graphdata.PropertyBag) ValidationReport {
	def, ok := v.schema.EdgeDef(typeName)
	if !ok {
		return ValidationReport{
			Errors: []ValError{{Type: typeName, Index: index, Kind: UnknownType,
				Message: fmt.Sprintf("edge type %q is not defined in schema", typeName)}},
		}
	}
	required := append(append([]string(nil), "from", "to"), def.Required...)
	return v.validateAgainst(typeName, index, bag, def.Properties, required, []string{"from", "to"})
}

// validateAgainst is the shared engine behind ValidateVertex/ValidateEdge:
// missing-required, type-mismatch, constraint-violation errors and
// unknown-property warnings, against one property spec map.
func (v *Validator) validateAgainst(typeName string, index int, bag *graphdata.PropertyBag, props map[string]schema.PropSpec, required []string, implicitFields []string) ValidationReport {
	var report ValidationReport
	report.Valid = true

	if v.policy.ValidateRequired {
		for _, r := range required {
			if _, ok := bag.Get(r); !ok {
				report.Errors = append(report.Errors, ValError{
					Type: typeName, Index: index, Property: r, Kind: MissingRequired,
					Message: fmt.Sprintf("%q is required", r),
				})
			}
		}
	}

	implicit := make(map[string]bool, len(implicitFields))
	for _, f := range implicitFields {
		implicit[f] = true
	}

	for _, key := range bag.Keys() {
		if implicit[key] {
			continue
		}
		spec, known := props[key]
		if !known {
			if !v.policy.AllowUnknownProperties {
				continue
			}
			report.Warnings = append(report.Warnings, fmt.Sprintf("%s: %s: %s", WarnUnknownProperty, typeName, key))
			continue
		}
		val, _ := bag.Get(key)
		if val == nil {
			continue
		}
		if !v.policy.ValidateTypes {
			continue
		}
		if err := checkType(spec, val); err != nil {
			report.Errors = append(report.Errors, ValError{
				Type: typeName, Index: index, Property: key, Kind: TypeMismatch,
				Message: fmt.Sprintf("%q: %v", key, err),
			})
			continue
		}
		if err := checkConstraints(spec, val); err != nil {
			report.Errors = append(report.Errors, ValError{
				Type: typeName, Index: index, Property: key, Kind: ConstraintViolation,
				Message: fmt.Sprintf("%q: %v", key, err),
			})
		}
	}

	if len(report.Errors) > 0 {
		report.Valid = false
	}
	return report
}

// ValidateData runs ValidateVertex/ValidateEdge over every element of the
// payload, adding DUPLICATE_ID and DANGLING_REFERENCE warnings, and
// returns a single report with stably ordered errors and deduplicated
// warnings. If policy.ThrowOnError is set and any error was produced, it
// returns loaderr.ErrValidationFailed wrapped as a loaderr.Error instead
// of a successful report.
func (v *Validator) ValidateData(data *graphdata.GraphData) (ValidationReport, error) {
	var report ValidationReport
	report.Valid = true

	knownIDs := make(map[string]map[string]int) // type -> id -> count
	warnSeen := make(map[string]bool)

	addWarning := func(kind, typeName, key string, msg string) {
		dedupKey := kind + "|" + typeName + "|" + key
		if warnSeen[dedupKey] {
			return
		}
		warnSeen[dedupKey] = true
		report.Warnings = append(report.Warnings, msg)
	}

	for _, vt := range sortedKeys(data.Vertices) {
		bags := data.Vertices[vt]
		knownIDs[vt] = make(map[string]int)
		for i, bag := range bags {
			sub := v.ValidateVertex(vt, i, bag)
			report.Errors = append(report.Errors, sub.Errors...)
			for _, w := range sub.Warnings {
				addWarning(WarnUnknownProperty, vt, fmt.Sprintf("%d", i), w)
			}
			if id, ok := bag.ID(); ok {
				knownIDs[vt][id]++
				if knownIDs[vt][id] == 2 {
					addWarning(WarnDuplicateID, vt, id, fmt.Sprintf("%s: %s: %s", WarnDuplicateID, vt, id))
				}
			}
		}
	}

	for _, et := range sortedKeys(data.Edges) {
		bags := data.Edges[et]
		from, to, hasEndpoints := v.schema.EndpointTypesOf(et)
		for i, bag := range bags {
			sub := v.ValidateEdge(et, i, bag)
			report.Errors = append(report.Errors, sub.Errors...)
			for _, w := range sub.Warnings {
				addWarning(WarnUnknownProperty, et, fmt.Sprintf("%d", i), w)
			}
			if !hasEndpoints {
				continue
			}
			if fromID, ok := bag.Endpoint("from"); ok {
				if _, exists := knownIDs[from][fromID]; !exists {
					addWarning(WarnDanglingRef, et, fmt.Sprintf("%d:from", i),
						fmt.Sprintf("%s: %s[%d].from=%q has no matching %s vertex in payload", WarnDanglingRef, et, i, fromID, from))
				}
			}
			if toID, ok := bag.Endpoint("to"); ok {
				if _, exists := knownIDs[to][toID]; !exists {
					addWarning(WarnDanglingRef, et, fmt.Sprintf("%d:to", i),
						fmt.Sprintf("%s: %s[%d].to=%q has no matching %s vertex in payload", WarnDanglingRef, et, i, toID, to))
				}
			}
		}
	}

	sort.Slice(report.Errors, func(i, j int) bool {
		a, b := report.Errors[i], report.Errors[j]
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if a.Index != b.Index {
			return a.Index < b.Index
		}
		return a.Property < b.Property
	})

	if len(report.Errors) > 0 {
		report.Valid = false
	}

	if v.policy.ThrowOnError && !report.Valid {
		return report, loaderr.NewValidationError("graph data failed validation", loaderr.ErrValidationFailed)
	}
	return report, nil
}

func sortedKeys[T any](m map[string][]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
