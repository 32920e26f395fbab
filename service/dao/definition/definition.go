package definition

import (
	"fmt"
	"sync/atomic"
)

type (
	// Definition describes a graph to load into an engine: nodes in
	// document order followed by the connections between them.
	Definition struct {
		Name        string        `json:"name" yaml:"name"`
		Source      string        `json:"source,omitempty" yaml:"source,omitempty"`
		Nodes       []*Node       `json:"nodes" yaml:"nodes" validate:"dive"`
		Connections []*Connection `json:"connections,omitempty" yaml:"connections,omitempty" validate:"dive"`
	}

	// Node holds the raw node document, sectioned or legacy flat.
	Node struct {
		ID   string                 `json:"id" yaml:"id" validate:"required"`
		Data map[string]interface{} `json:"data,omitempty" yaml:"data,omitempty"`
	}

	Connection struct {
		Source       string `json:"source" yaml:"source" validate:"required"`
		Target       string `json:"target" yaml:"target" validate:"required"`
		SourceHandle string `json:"sourceHandle,omitempty" yaml:"sourceHandle,omitempty"`
		TargetHandle string `json:"targetHandle,omitempty" yaml:"targetHandle,omitempty"`
		EdgeRef      string `json:"edgeRef,omitempty" yaml:"edgeRef,omitempty"`
	}
)

// Node returns the node with id or nil.
func (d *Definition) Node(id string) *Node {
	for _, node := range d.Nodes {
		if node.ID == id {
			return node
		}
	}
	return nil
}

var counter int32

func anonymousName() string {
	return fmt.Sprintf("anonymous-%d", atomic.AddInt32(&counter, 1))
}
