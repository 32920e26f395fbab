package aggregator

import (
	"sort"
	"time"

	"github.com/viant/nodeflow/model/graph"
)

// Strategy names understood by input.config.strategy.
const (
	StrategyMerge    = "merge"
	StrategyPriority = "priority"
	StrategyArray    = "array"
	StrategyLatest   = "latest"
	StrategyCustom   = "custom"
)

// Strategy combines refreshed connections into a single input value.
// Connections are passed in insertion order.
type Strategy func(connections []*graph.Connection) (interface{}, error)

var builtins = map[string]Strategy{
	StrategyMerge:    Merge,
	StrategyPriority: Priority,
	StrategyArray:    Array,
	StrategyLatest:   Latest,
}

// Builtin returns a built-in strategy by name.
func Builtin(name string) (Strategy, bool) {
	ret, ok := builtins[name]
	return ret, ok
}

// Merge shallow-merges object payloads, later connections winning key
// conflicts. Other payloads are stored under the source node id.
func Merge(connections []*graph.Connection) (interface{}, error) {
	ret := map[string]interface{}{}
	for _, conn := range connections {
		if conn.Data == nil {
			continue
		}
		if object, ok := conn.Data.(map[string]interface{}); ok {
			for k, v := range object {
				ret[k] = v
			}
			continue
		}
		ret[conn.SourceNodeID] = conn.Data
	}
	return ret, nil
}

// Priority merges connections sorted by ascending priority so that the
// highest priority keys win.
func Priority(connections []*graph.Connection) (interface{}, error) {
	sorted := append([]*graph.Connection{}, connections...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PriorityOrDefault() < sorted[j].PriorityOrDefault()
	})
	return Merge(sorted)
}

// Array keeps every input: {connections: [meta...], data: [...]}. Every
// connection is listed; data holds only non-nil payloads.
func Array(connections []*graph.Connection) (interface{}, error) {
	metas := make([]interface{}, 0, len(connections))
	data := make([]interface{}, 0, len(connections))
	for _, conn := range connections {
		metas = append(metas, map[string]interface{}{
			"id":           conn.ID,
			"sourceNodeId": conn.SourceNodeID,
			"sourceHandle": conn.SourceHandle,
			"targetHandle": conn.TargetHandle,
			"dataType":     conn.Meta.DataType,
			"isActive":     conn.Meta.IsActive,
			"priority":     conn.PriorityOrDefault(),
			"timestamp":    conn.Meta.Timestamp.Format(time.RFC3339Nano),
		})
		if conn.Data != nil {
			data = append(data, conn.Data)
		}
	}
	return map[string]interface{}{"connections": metas, "data": data}, nil
}

// Latest picks the most recently processed connection.
func Latest(connections []*graph.Connection) (interface{}, error) {
	var latest *graph.Connection
	for _, conn := range connections {
		if latest == nil || conn.Recency().After(latest.Recency()) {
			latest = conn
		}
	}
	if latest == nil {
		return map[string]interface{}{}, nil
	}
	return map[string]interface{}{
		"latest":    latest.Data,
		"source":    latest.SourceNodeID,
		"timestamp": latest.Recency().Format(time.RFC3339Nano),
	}, nil
}
