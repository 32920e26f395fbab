package event

import (
	"time"

	"github.com/viant/nodeflow/model/graph"
)

// Reasons carried by DataUpdated.
const (
	ReasonRegistered = "registered"
	ReasonUpdated    = "updated"
)

type (
	DataUpdated struct {
		Reason string          `json:"reason"`
		Node   *graph.NodeData `json:"node"`
	}

	ConnectionChange struct {
		Connection *graph.Connection `json:"connection"`
		Replaced   bool              `json:"replaced,omitempty"`
	}

	Processing struct {
		StartedAt time.Time `json:"startedAt"`
	}

	Processed struct {
		Success        bool          `json:"success"`
		Data           interface{}   `json:"data,omitempty"`
		ProcessingTime time.Duration `json:"processingTime"`
	}

	Failure struct {
		Error *graph.NodeError `json:"error"`
	}

	Paused struct {
		Skipped []string `json:"skipped"`
	}
)
