package criteria

import (
	"github.com/viant/nodeflow/model/graph"
	"github.com/viant/nodeflow/service/dao"
)

// MatchConnection returns true when conn satisfies every parameter.
// Source and Target match the respective endpoint, Node matches either.
// Unknown parameter names are ignored.
func MatchConnection(conn *graph.Connection, parameters []*dao.Parameter) bool {
	if conn == nil {
		return false
	}
	for _, param := range parameters {
		if param == nil {
			continue
		}
		switch param.Name {
		case dao.ParamSource:
			if !matchValue(conn.SourceNodeID, param.Value) {
				return false
			}
		case dao.ParamTarget:
			if !matchValue(conn.TargetNodeID, param.Value) {
				return false
			}
		case dao.ParamNode:
			if !matchValue(conn.SourceNodeID, param.Value) && !matchValue(conn.TargetNodeID, param.Value) {
				return false
			}
		}
	}
	return true
}

func matchValue(value string, expected interface{}) bool {
	switch actual := expected.(type) {
	case string:
		return value == actual
	case []string:
		for _, candidate := range actual {
			if value == candidate {
				return true
			}
		}
		return false
	}
	return true
}
