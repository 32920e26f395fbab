package graph

import (
	"fmt"
	"reflect"
	"time"
)

// DefaultPriority is used by the priority strategy when a connection carries none.
const DefaultPriority = 5

// DefaultHandle is used when a connection endpoint does not name a handle.
const DefaultHandle = "default"

type (
	// Connection is a directed, data-carrying record between two node handles.
	Connection struct {
		ID           string         `json:"id" yaml:"id"`
		EdgeRef      string         `json:"edgeRef,omitempty" yaml:"edgeRef,omitempty"`
		SourceNodeID string         `json:"sourceNodeId" yaml:"sourceNodeId"`
		TargetNodeID string         `json:"targetNodeId" yaml:"targetNodeId"`
		SourceHandle string         `json:"sourceHandle" yaml:"sourceHandle"`
		TargetHandle string         `json:"targetHandle" yaml:"targetHandle"`
		Data         interface{}    `json:"data,omitempty" yaml:"data,omitempty"`
		Meta         ConnectionMeta `json:"meta" yaml:"meta"`
	}

	ConnectionMeta struct {
		Timestamp     time.Time  `json:"timestamp" yaml:"timestamp"`
		DataType      string     `json:"dataType,omitempty" yaml:"dataType,omitempty"`
		IsActive      bool       `json:"isActive" yaml:"isActive"`
		LastProcessed *time.Time `json:"lastProcessed,omitempty" yaml:"lastProcessed,omitempty"`
		Priority      *int       `json:"priority,omitempty" yaml:"priority,omitempty"`
		// Sequence orders connections by insertion.
		Sequence uint64 `json:"sequence" yaml:"sequence"`
	}
)

// ConnectionID returns the deterministic composite key of a connection.
func ConnectionID(source, target, sourceHandle, targetHandle string) string {
	return fmt.Sprintf("%s-%s-%s-%s", source, target, handleOrDefault(sourceHandle), handleOrDefault(targetHandle))
}

func handleOrDefault(handle string) string {
	if handle == "" {
		return DefaultHandle
	}
	return handle
}

// NewConnection creates an active connection record.
func NewConnection(source, target, sourceHandle, targetHandle, edgeRef string, now time.Time) *Connection {
	sourceHandle = handleOrDefault(sourceHandle)
	targetHandle = handleOrDefault(targetHandle)
	return &Connection{
		ID:           ConnectionID(source, target, sourceHandle, targetHandle),
		EdgeRef:      edgeRef,
		SourceNodeID: source,
		TargetNodeID: target,
		SourceHandle: sourceHandle,
		TargetHandle: targetHandle,
		Meta: ConnectionMeta{
			Timestamp: now,
			IsActive:  true,
		},
	}
}

// PriorityOrDefault returns the connection priority or DefaultPriority.
func (c *Connection) PriorityOrDefault() int {
	if c == nil || c.Meta.Priority == nil {
		return DefaultPriority
	}
	return *c.Meta.Priority
}

// Recency returns LastProcessed when set, Timestamp otherwise.
func (c *Connection) Recency() time.Time {
	if c.Meta.LastProcessed != nil {
		return *c.Meta.LastProcessed
	}
	return c.Meta.Timestamp
}

// Clone returns a copy of the connection; Data is shared as values are
// treated as immutable once committed.
func (c *Connection) Clone() *Connection {
	if c == nil {
		return nil
	}
	ret := *c
	if c.Meta.LastProcessed != nil {
		lp := *c.Meta.LastProcessed
		ret.Meta.LastProcessed = &lp
	}
	if c.Meta.Priority != nil {
		p := *c.Meta.Priority
		ret.Meta.Priority = &p
	}
	return &ret
}

// DataTypeOf describes value using JSON type names.
func DataTypeOf(value interface{}) string {
	if value == nil {
		return "null"
	}
	switch value.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case map[string]interface{}:
		return "object"
	case []interface{}:
		return "array"
	}
	switch reflect.TypeOf(value).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map, reflect.Struct, reflect.Ptr:
		return "object"
	}
	return "unknown"
}
