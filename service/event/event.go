package event

import (
	"time"

	"github.com/viant/nodeflow/internal/clock"
	"github.com/viant/nodeflow/internal/idgen"
)

// Type identifies a lifecycle notification.
type Type string

const (
	NodeDataUpdated   Type = "NODE_DATA_UPDATED"
	ConnectionAdded   Type = "CONNECTION_ADDED"
	ConnectionRemoved Type = "CONNECTION_REMOVED"
	NodeProcessing    Type = "NODE_PROCESSING"
	NodeProcessed     Type = "NODE_PROCESSED"
	NodeError         Type = "NODE_ERROR"
	ExecutionPaused   Type = "EXECUTION_PAUSED"
)

// Types lists every event type in declaration order.
var Types = []Type{NodeDataUpdated, ConnectionAdded, ConnectionRemoved, NodeProcessing, NodeProcessed, NodeError, ExecutionPaused}

// Event is a typed notification. Data carries one of the payload types
// declared in payload.go.
type Event[T any] struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	NodeID    string    `json:"nodeId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	Data      T         `json:"data"`
}

// NewEvent creates an event stamped with the current time.
func NewEvent[T any](eventType Type, nodeID string, data T) *Event[T] {
	return &Event[T]{
		ID:        idgen.New(),
		Type:      eventType,
		NodeID:    nodeID,
		CreatedAt: clock.Now(),
		Data:      data,
	}
}
