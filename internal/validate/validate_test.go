package validate

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ageloader/batchloader/internal/graphdata"
	"github.com/ageloader/batchloader/internal/schema"
)

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.New("1.0",
		[]string{"Person"},
		map[string]schema.VertexDef{
			"Person": {
				Properties: map[string]schema.PropSpec{
					"name": {Type: schema.PropString},
					"age":  {Type: schema.PropNumber, NumberKind: schema.NumberInteger},
				},
				PropertyOrder: []string{"name", "age"},
				Required:      []string{"id", "name"},
			},
		},
		[]string{"KNOWS"},
		map[string]schema.EdgeDef{
			"KNOWS": {From: "Person", To: "Person"},
		},
	)
	require.NoError(t, err)
	return s
}

func bagFrom(t *testing.T, raw string) *graphdata.PropertyBag {
	t.Helper()
	var bag graphdata.PropertyBag
	require.NoError(t, json.Unmarshal([]byte(raw), &bag))
	return &bag
}

func TestValidateVertexMissingRequired(t *testing.T) {
	v := NewValidator(testSchema(t), DefaultPolicy())
	report := v.ValidateVertex("Person", 0, bagFrom(t, `{"id":"p1"}`))
	require.False(t, report.Valid)
	require.Len(t, report.Errors, 1)
	require.Equal(t, MissingRequired, report.Errors[0].Kind)
	require.Equal(t, "name", report.Errors[0].Property)
}

func TestValidateVertexTypeMismatch(t *testing.T) {
	v := NewValidator(testSchema(t), DefaultPolicy())
	report := v.ValidateVertex("Person", 0, bagFrom(t, `{"id":"p1","name":"Ada","age":"not-a-number"}`))
	require.False(t, report.Valid)
	require.Equal(t, TypeMismatch, report.Errors[0].Kind)
}

func TestValidateVertexUnknownPropertyWarns(t *testing.T) {
	v := NewValidator(testSchema(t), DefaultPolicy())
	report := v.ValidateVertex("Person", 0, bagFrom(t, `{"id":"p1","name":"Ada","nickname":"A"}`))
	require.True(t, report.Valid)
	require.Len(t, report.Warnings, 1)
}

func TestValidateUnknownType(t *testing.T) {
	v := NewValidator(testSchema(t), DefaultPolicy())
	report := v.ValidateVertex("Ghost", 0, bagFrom(t, `{}`))
	require.False(t, report.Valid)
	require.Equal(t, UnknownType, report.Errors[0].Kind)
}

func TestValidateDataDuplicateIDAndDanglingReference(t *testing.T) {
	v := NewValidator(testSchema(t), DefaultPolicy())
	data := &graphdata.GraphData{
		Vertices: map[string][]*graphdata.PropertyBag{
			"Person": {
				bagFrom(t, `{"id":"p1","name":"Ada"}`),
				bagFrom(t, `{"id":"p1","name":"Ada Duplicate"}`),
			},
		},
		Edges: map[string][]*graphdata.PropertyBag{
			"KNOWS": {
				bagFrom(t, `{"from":"p1","to":"ghost"}`),
			},
		},
	}

	report, err := v.ValidateData(data)
	require.NoError(t, err)
	require.True(t, report.Valid) // duplicates/dangling refs are warnings, not errors

	var sawDuplicate, sawDangling bool
	for _, w := range report.Warnings {
		if w == "" {
			continue
		}
		if w[:len(WarnDuplicateID)] == WarnDuplicateID {
			sawDuplicate = true
		}
		if len(w) >= len(WarnDanglingRef) && w[:len(WarnDanglingRef)] == WarnDanglingRef {
			sawDangling = true
		}
	}
	require.True(t, sawDuplicate, "expected a DUPLICATE_ID warning, got %v", report.Warnings)
	require.True(t, sawDangling, "expected a DANGLING_REFERENCE warning, got %v", report.Warnings)
}

func TestValidateVertexSkipsTypeCheckWhenPolicyDisablesIt(t *testing.T) {
	policy := Policy{ValidateTypes: false, ValidateRequired: true, AllowUnknownProperties: true}
	v := NewValidator(testSchema(t), policy)
	report := v.ValidateVertex("Person", 0, bagFrom(t, `{"id":"p1","name":"Ada","age":"not-a-number"}`))
	require.True(t, report.Valid, "ValidateTypes=false must not raise a TYPE_MISMATCH: %v", report.Errors)
}

func TestValidateDataThrowsWhenPolicyRequests(t *testing.T) {
	policy := DefaultPolicy()
	policy.ThrowOnError = true
	v := NewValidator(testSchema(t), policy)

	data := &graphdata.GraphData{
		Vertices: map[string][]*graphdata.PropertyBag{
			"Person": {bagFrom(t, `{"id":"p1"}`)},
		},
	}
	_, err := v.ValidateData(data)
	require.Error(t, err)
}
