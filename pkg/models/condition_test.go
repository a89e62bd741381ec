package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConditionEvaluateEq(t *testing.T) {
	context := map[string]any{"leadScore": 50.0}

	assert.True(t, Condition{Field: "leadScore", Operator: OperatorEq, Value: 50}.Evaluate(context))
	assert.False(t, Condition{Field: "leadScore", Operator: OperatorEq, Value: 51}.Evaluate(context))
	assert.True(t, Condition{Field: "leadScore", Operator: OperatorNeq, Value: 51}.Evaluate(context))
}

func TestConditionEvaluateNumericComparison(t *testing.T) {
	context := map[string]any{"leadScore": 42.0}

	assert.True(t, Condition{Field: "leadScore", Operator: OperatorGt, Value: 40}.Evaluate(context))
	assert.False(t, Condition{Field: "leadScore", Operator: OperatorGt, Value: 42}.Evaluate(context))
	assert.True(t, Condition{Field: "leadScore", Operator: OperatorLt, Value: 50}.Evaluate(context))
}

func TestConditionEvaluateNumericCoercion(t *testing.T) {
	// String values that parse as numbers compare numerically.
	context := map[string]any{"leadScore": "42"}

	assert.True(t, Condition{Field: "leadScore", Operator: OperatorGt, Value: 40}.Evaluate(context))
	assert.True(t, Condition{Field: "leadScore", Operator: OperatorEq, Value: 42.0}.Evaluate(context))
}

func TestConditionEvaluateContains(t *testing.T) {
	context := map[string]any{
		"summary": "qualified lead from Acme",
		"tags":    []any{"vip", "inbound"},
	}

	assert.True(t, Condition{Field: "summary", Operator: OperatorContains, Value: "Acme"}.Evaluate(context))
	assert.False(t, Condition{Field: "summary", Operator: OperatorContains, Value: "Globex"}.Evaluate(context))
	assert.True(t, Condition{Field: "tags", Operator: OperatorContains, Value: "vip"}.Evaluate(context))
	assert.False(t, Condition{Field: "tags", Operator: OperatorContains, Value: "outbound"}.Evaluate(context))
}

func TestConditionEvaluateExists(t *testing.T) {
	context := map[string]any{"email": "a@b.co", "phone": nil}

	assert.True(t, Condition{Field: "email", Operator: OperatorExists}.Evaluate(context))
	assert.False(t, Condition{Field: "phone", Operator: OperatorExists}.Evaluate(context))
	assert.False(t, Condition{Field: "address", Operator: OperatorExists}.Evaluate(context))
}

func TestConditionEvaluateMissingFieldIsUnmet(t *testing.T) {
	context := map[string]any{}

	assert.False(t, Condition{Field: "leadScore", Operator: OperatorEq, Value: 50}.Evaluate(context))
	assert.False(t, Condition{Field: "leadScore", Operator: OperatorGt, Value: 0}.Evaluate(context))
	assert.False(t, Condition{Field: "leadScore", Operator: OperatorContains, Value: "x"}.Evaluate(context))
}

func TestConditionEvaluateDottedPath(t *testing.T) {
	context := map[string]any{
		"lead": map[string]any{
			"score": 80.0,
		},
	}

	assert.True(t, Condition{Field: "lead.score", Operator: OperatorGt, Value: 50}.Evaluate(context))
	assert.False(t, Condition{Field: "lead.missing", Operator: OperatorExists}.Evaluate(context))
}

func TestConditionEvaluateMalformedComparisonIsUnmet(t *testing.T) {
	context := map[string]any{"name": "Acme"}

	assert.False(t, Condition{Field: "name", Operator: OperatorGt, Value: 10}.Evaluate(context))
}
