// Package models provides condition evaluation for workflow steps.
package models

import (
	"fmt"
	"strconv"
	"strings"
)

// ConditionOperator is the closed set of comparison operators a step
// condition may use.
type ConditionOperator string

const (
	OperatorEq       ConditionOperator = "eq"
	OperatorNeq      ConditionOperator = "neq"
	OperatorGt       ConditionOperator = "gt"
	OperatorLt       ConditionOperator = "lt"
	OperatorContains ConditionOperator = "contains"
	OperatorExists   ConditionOperator = "exists"
)

// Condition gates the execution of a step against the accumulated execution
// context. A condition whose field is absent evaluates to false for every
// operator except exists, which reports the absence itself.
type Condition struct {
	Field    string            `json:"field"    validate:"required"`
	Operator ConditionOperator `json:"operator" validate:"required,oneof=eq neq gt lt contains exists"`
	Value    any               `json:"value,omitempty"`
}

// Evaluate resolves the condition field against the context (dotted paths
// descend into nested maps) and applies the operator. Evaluation never
// errors; malformed comparisons are simply unmet.
func (c Condition) Evaluate(context map[string]any) bool {
	value, found := lookupPath(context, c.Field)

	if c.Operator == OperatorExists {
		return found && value != nil
	}

	if !found {
		return false
	}

	switch c.Operator {
	case OperatorEq:
		return equalValues(value, c.Value)
	case OperatorNeq:
		return !equalValues(value, c.Value)
	case OperatorGt:
		left, right, ok := numericPair(value, c.Value)

		return ok && left > right
	case OperatorLt:
		left, right, ok := numericPair(value, c.Value)

		return ok && left < right
	case OperatorContains:
		return containsValue(value, c.Value)
	default:
		return false
	}
}

func lookupPath(data map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	current := any(data)

	for _, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}

		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

func equalValues(left, right any) bool {
	// Numeric values compare numerically so 50 == 50.0 regardless of how
	// JSON decoding typed them.
	if l, r, ok := numericPair(left, right); ok {
		return l == r
	}

	return fmt.Sprintf("%v", left) == fmt.Sprintf("%v", right)
}

func numericPair(left, right any) (float64, float64, bool) {
	l, lok := toFloat(left)
	r, rok := toFloat(right)

	return l, r, lok && rok
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		parsed, err := strconv.ParseFloat(v, 64)

		return parsed, err == nil
	default:
		return 0, false
	}
}

func containsValue(haystack, needle any) bool {
	switch h := haystack.(type) {
	case string:
		return strings.Contains(h, fmt.Sprintf("%v", needle))
	case []any:
		for _, item := range h {
			if equalValues(item, needle) {
				return true
			}
		}

		return false
	case []string:
		for _, item := range h {
			if item == fmt.Sprintf("%v", needle) {
				return true
			}
		}

		return false
	default:
		return false
	}
}
