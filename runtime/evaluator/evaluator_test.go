package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluator_Evaluate(t *testing.T) {
	variables := map[string]interface{}{
		"value":   10,
		"ratio":   0.5,
		"name":    "node",
		"payload": map[string]interface{}{"items": []interface{}{"a", "b", "c"}, "count": float64(3)},
		"node":    struct{ Label string }{Label: "sum"},
	}
	testCases := []struct {
		description string
		expr        string
		expected    interface{}
	}{
		{description: "arithmetic", expr: "value * 2 + 1", expected: 21},
		{description: "float promotion", expr: "value * ratio", expected: 5.0},
		{description: "division", expr: "value / 4", expected: 2.5},
		{description: "string concat", expr: "name + '-' + value", expected: "node-10"},
		{description: "selector", expr: "payload.count", expected: float64(3)},
		{description: "index", expr: "payload.items[1]", expected: "b"},
		{description: "map index", expr: `payload["count"]`, expected: float64(3)},
		{description: "len", expr: "len(payload.items)", expected: 3},
		{description: "struct field", expr: "node.label", expected: "sum"},
		{description: "comparison mixed numeric", expr: "payload.count == 3", expected: true},
		{description: "logical", expr: "value > 5 && name == 'node'", expected: true},
		{description: "short circuit", expr: "false && missing.x > 1", expected: false},
		{description: "negation", expr: "!missing", expected: true},
		{description: "wrapped", expr: "${value - 3}", expected: 7},
		{description: "unknown variable", expr: "missing", expected: nil},
	}

	evaluator := New()
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			actual, err := evaluator.Evaluate(testCase.expr, variables)
			require.NoError(t, err)
			assert.Equal(t, testCase.expected, actual)
		})
	}
}

func TestEvaluator_Errors(t *testing.T) {
	evaluator := New()
	for _, expr := range []string{"", "value +", "unknown(1)", "func() {}"} {
		_, err := evaluator.Evaluate(expr, nil)
		assert.ErrorIs(t, err, ErrInvalidExpression, expr)
	}
}

func TestTruthy(t *testing.T) {
	testCases := []struct {
		value    interface{}
		expected bool
	}{
		{nil, false},
		{false, false},
		{0, false},
		{0.0, false},
		{"", false},
		{[]interface{}{}, false},
		{map[string]interface{}{}, false},
		{true, true},
		{1, true},
		{"x", true},
		{[]interface{}{1}, true},
	}
	for _, testCase := range testCases {
		assert.Equal(t, testCase.expected, Truthy(testCase.value), "%v", testCase.value)
	}
}

func TestEvaluator_Condition(t *testing.T) {
	evaluator := New()
	ok, err := evaluator.Condition("len(value) > 1", map[string]interface{}{"value": []interface{}{1, 2}})
	require.NoError(t, err)
	assert.True(t, ok)
}
