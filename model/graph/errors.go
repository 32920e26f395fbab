package graph

import (
	"errors"
	"fmt"
	"time"
)

// Error codes recorded in NodeError.Code.
const (
	CodeValidation  = "VALIDATION_ERROR"
	CodeAggregation = "AGGREGATION_ERROR"
	CodeProcessing  = "PROCESSING_ERROR"
	CodePlugin      = "PLUGIN_ERROR"
	CodeDirective   = "DIRECTIVE_PROCESSING_ERROR"
)

// ErrNotSerializable is returned when output data cannot be encoded as JSON.
var ErrNotSerializable = errors.New("output data is not JSON serializable")

// NodeError is the structured error recorded on a node.
type NodeError struct {
	Code      string                 `json:"code" yaml:"code"`
	Message   string                 `json:"message" yaml:"message"`
	Source    string                 `json:"source" yaml:"source"`
	Timestamp time.Time              `json:"timestamp" yaml:"timestamp"`
	Details   map[string]interface{} `json:"details,omitempty" yaml:"details,omitempty"`
	cause     error
}

func (e *NodeError) Error() string {
	if e == nil {
		return ""
	}
	if e.Source == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Source)
}

// Unwrap returns the underlying cause.
func (e *NodeError) Unwrap() error { return e.cause }

// WithDetail sets a detail entry and returns e.
func (e *NodeError) WithDetail(key string, value interface{}) *NodeError {
	if e.Details == nil {
		e.Details = map[string]interface{}{}
	}
	e.Details[key] = value
	return e
}

// NewNodeError creates an error with code, wrapping cause.
func NewNodeError(code, source string, cause error, at time.Time) *NodeError {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return &NodeError{Code: code, Message: msg, Source: source, Timestamp: at, cause: cause}
}

// AsNodeError returns err as *NodeError, or wraps it with fallbackCode.
func AsNodeError(err error, fallbackCode, source string, at time.Time) *NodeError {
	if err == nil {
		return nil
	}
	var nodeErr *NodeError
	if errors.As(err, &nodeErr) {
		return nodeErr
	}
	return NewNodeError(fallbackCode, source, err, at)
}
