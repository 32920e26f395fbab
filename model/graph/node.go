package graph

import (
	"time"
)

// Category classifies a node role in the graph.
type Category string

const (
	CategoryInput   Category = "input"
	CategoryProcess Category = "process"
	CategoryOutput  Category = "output"
)

// Status represents the processing state of a node output.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusError      Status = "error"
)

// Section names addressable by directives.
const (
	SectionMeta   = "meta"
	SectionInput  = "input"
	SectionOutput = "output"
	SectionError  = "error"
	SectionPlugin = "plugin"
)

// DefaultVersion is assigned to nodes registered without a meta version.
const DefaultVersion = "1.0.0"

type (
	// NodeData is the canonical state of a node. Instances held by the
	// registry are immutable snapshots; use Clone before modifying.
	NodeData struct {
		Meta   Meta       `json:"meta" yaml:"meta"`
		Input  Input      `json:"input" yaml:"input"`
		Output Output     `json:"output" yaml:"output"`
		Error  ErrorState `json:"error" yaml:"error"`
		Plugin *Plugin    `json:"plugin,omitempty" yaml:"plugin,omitempty"`
	}

	Meta struct {
		Label        string   `json:"label,omitempty" yaml:"label,omitempty"`
		Function     string   `json:"function,omitempty" yaml:"function,omitempty"`
		Emoji        string   `json:"emoji,omitempty" yaml:"emoji,omitempty"`
		Category     Category `json:"category,omitempty" yaml:"category,omitempty"`
		Capabilities []string `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`
		Version      string   `json:"version,omitempty" yaml:"version,omitempty"`
	}

	Input struct {
		Connections map[string]*Connection `json:"connections" yaml:"connections"`
		Processed   Processed              `json:"processed" yaml:"processed"`
		Config      InputConfig            `json:"config" yaml:"config"`
	}

	// Processed records the last aggregation run.
	Processed struct {
		Strategy string        `json:"strategy,omitempty" yaml:"strategy,omitempty"`
		Data     interface{}   `json:"data,omitempty" yaml:"data,omitempty"`
		Meta     ProcessedMeta `json:"meta" yaml:"meta"`
	}

	ProcessedMeta struct {
		ConnectionCount int       `json:"connectionCount" yaml:"connectionCount"`
		Timestamp       time.Time `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
	}

	// InputConfig controls connection policy and aggregation.
	InputConfig struct {
		AllowMultipleConnections bool                   `json:"allowMultipleConnections" yaml:"allowMultipleConnections"`
		Strategy                 string                 `json:"strategy,omitempty" yaml:"strategy,omitempty"`
		Handler                  string                 `json:"handler,omitempty" yaml:"handler,omitempty"`
		Options                  map[string]interface{} `json:"options,omitempty" yaml:"options,omitempty"`
	}

	Output struct {
		Data       interface{}             `json:"data" yaml:"data"`
		Meta       OutputMeta              `json:"meta" yaml:"meta"`
		Directives map[string][]*Directive `json:"directives,omitempty" yaml:"directives,omitempty"`
	}

	OutputMeta struct {
		Status         Status        `json:"status" yaml:"status"`
		Timestamp      time.Time     `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
		ProcessingTime time.Duration `json:"processingTime" yaml:"processingTime"`
	}

	ErrorState struct {
		HasError bool         `json:"hasError" yaml:"hasError"`
		Errors   []*NodeError `json:"errors" yaml:"errors"`
	}

	Plugin struct {
		Name        string                 `json:"name" yaml:"name"`
		Config      map[string]interface{} `json:"config,omitempty" yaml:"config,omitempty"`
		Version     string                 `json:"version,omitempty" yaml:"version,omitempty"`
		LastUpdated time.Time              `json:"lastUpdated,omitempty" yaml:"lastUpdated,omitempty"`
	}
)

// IsInput returns true for data source nodes.
func (n *NodeData) IsInput() bool {
	return n != nil && n.Meta.Category == CategoryInput
}

// HasOutput reports whether output data holds a non-empty value.
func (n *NodeData) HasOutput() bool {
	if n == nil {
		return false
	}
	return !IsEmpty(n.Output.Data)
}

// HasPlugin reports whether a plugin name is configured.
func (n *NodeData) HasPlugin() bool {
	return n != nil && n.Plugin != nil && n.Plugin.Name != ""
}

// Status returns the output status.
func (n *NodeData) Status() Status {
	if n == nil {
		return ""
	}
	return n.Output.Meta.Status
}

// AddError appends err and flags the error section.
func (e *ErrorState) AddError(err *NodeError) {
	if err == nil {
		return
	}
	e.HasError = true
	e.Errors = append(e.Errors, err)
}

// Clear resets the error section.
func (e *ErrorState) Clear() {
	e.HasError = false
	e.Errors = []*NodeError{}
}

// Normalize makes sure every section is initialised. It mutates n and
// returns it for chaining.
func Normalize(n *NodeData) *NodeData {
	if n == nil {
		n = &NodeData{}
	}
	if n.Meta.Category == "" {
		n.Meta.Category = CategoryProcess
	}
	if n.Meta.Version == "" {
		n.Meta.Version = DefaultVersion
	}
	if n.Input.Connections == nil {
		n.Input.Connections = map[string]*Connection{}
	}
	if n.Output.Meta.Status == "" {
		n.Output.Meta.Status = StatusIdle
	}
	if n.Output.Directives == nil {
		n.Output.Directives = map[string][]*Directive{}
	}
	if n.Error.Errors == nil {
		n.Error.Errors = []*NodeError{}
	}
	n.Error.HasError = len(n.Error.Errors) > 0
	return n
}

// IsEmpty reports whether value is nil or an empty map, slice or string.
func IsEmpty(value interface{}) bool {
	switch actual := value.(type) {
	case nil:
		return true
	case map[string]interface{}:
		return len(actual) == 0
	case []interface{}:
		return len(actual) == 0
	case string:
		return actual == ""
	}
	return false
}
