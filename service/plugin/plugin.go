package plugin

import (
	"context"
	"strings"

	"github.com/viant/nodeflow/model/graph"
)

type (
	// Input is a single normalised upstream value handed to a plugin.
	Input struct {
		SourceID string      `json:"sourceId" yaml:"sourceId"`
		Data     interface{} `json:"data" yaml:"data"`
	}

	// Result is returned by a plugin run. Success=false is turned into a
	// PLUGIN_ERROR carrying the joined Errors.
	Result struct {
		Success    bool                          `json:"success" yaml:"success"`
		Data       interface{}                   `json:"data,omitempty" yaml:"data,omitempty"`
		Errors     []string                      `json:"errors,omitempty" yaml:"errors,omitempty"`
		Directives map[string][]*graph.Directive `json:"directives,omitempty" yaml:"directives,omitempty"`
	}
)

// Plugin is the unit of computation attached to a node.
type Plugin interface {
	Name() string
	Process(ctx context.Context, inputs []Input, config map[string]interface{}, pctx *Context) (*Result, error)
}

// ConfigValidator is implemented by plugins that check their config
// before a run. It returns the list of problems, empty when valid.
type ConfigValidator interface {
	ValidateConfig(config map[string]interface{}) []string
}

// ProcessFunc is the signature of a function based plugin.
type ProcessFunc func(ctx context.Context, inputs []Input, config map[string]interface{}, pctx *Context) (*Result, error)

// Func adapts a function to Plugin.
type Func struct {
	name     string
	fn       ProcessFunc
	validate func(config map[string]interface{}) []string
}

// NewFunc creates a function based plugin.
func NewFunc(name string, fn ProcessFunc) *Func {
	return &Func{name: name, fn: fn}
}

// WithValidator attaches a config validator.
func (f *Func) WithValidator(validate func(config map[string]interface{}) []string) *Func {
	f.validate = validate
	return f
}

func (f *Func) Name() string { return f.name }

func (f *Func) Process(ctx context.Context, inputs []Input, config map[string]interface{}, pctx *Context) (*Result, error) {
	return f.fn(ctx, inputs, config, pctx)
}

func (f *Func) ValidateConfig(config map[string]interface{}) []string {
	if f.validate == nil {
		return nil
	}
	return f.validate(config)
}

// Succeeded returns a successful result.
func Succeeded(data interface{}) *Result {
	return &Result{Success: true, Data: data}
}

// Failed returns an unsuccessful result.
func Failed(errs ...string) *Result {
	return &Result{Success: false, Errors: errs}
}

// Error joins result errors.
func (r *Result) Error() string {
	if len(r.Errors) == 0 {
		return "plugin reported failure"
	}
	return strings.Join(r.Errors, "; ")
}
