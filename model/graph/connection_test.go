package graph

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConnectionID(t *testing.T) {
	assert.Equal(t, "a-b-out-in", ConnectionID("a", "b", "out", "in"))
	assert.Equal(t, "a-b-default-default", ConnectionID("a", "b", "", ""))
}

func TestConnection_Recency(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	conn := NewConnection("a", "b", "", "", "edge-1", now)
	assert.Equal(t, now, conn.Recency())
	assert.Equal(t, DefaultPriority, conn.PriorityOrDefault())

	later := now.Add(time.Minute)
	conn.Meta.LastProcessed = &later
	assert.Equal(t, later, conn.Recency())

	clone := conn.Clone()
	*clone.Meta.LastProcessed = now
	assert.Equal(t, later, *conn.Meta.LastProcessed)
}

func TestDataTypeOf(t *testing.T) {
	testCases := []struct {
		value    interface{}
		expected string
	}{
		{value: nil, expected: "null"},
		{value: "x", expected: "string"},
		{value: 3, expected: "number"},
		{value: 1.5, expected: "number"},
		{value: true, expected: "boolean"},
		{value: map[string]interface{}{}, expected: "object"},
		{value: []interface{}{}, expected: "array"},
		{value: []int{1}, expected: "array"},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expected, DataTypeOf(tc.value))
	}
}
