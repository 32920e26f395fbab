// Package policy provides the execution control layer of a nodeflow engine.
// A Policy may also be attached to a single call via context, overriding the
// engine-wide one for that call only.

package policy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
)

// Execution modes recognised by the engine.
const (
	ModeAsk  = "ask"  // ask before every plugin invocation
	ModeAuto = "auto" // execute automatically (default)
	ModeDeny = "deny" // block plugin execution
)

// ErrBlocked is returned when a plugin invocation is not approved.
var ErrBlocked = errors.New("plugin execution blocked by policy")

// AskFunc is invoked when Mode==ask.  Returning true approves the plugin run,
// false rejects it.  Implementations MAY mutate the policy (for example,
// switching to ModeAuto after the first approval).
type AskFunc func(
	ctx context.Context,
	plugin string,
	nodeID string,
	p *Policy,
) bool

// Policy represents the execution settings of an engine.
//
//   - Mode controls plugin approval (ask / auto / deny).
//   - AllowList, BlockList filter plugin names regardless of Mode.
//   - Ask is only used when Mode==ask.
//   - the execute flag decides whether processed nodes propagate downstream.
//
// A nil *Policy executes and propagates everything.
type Policy struct {
	Mode      string
	AllowList []string
	BlockList []string
	Ask       AskFunc
	paused    atomic.Bool
}

// New creates an auto policy with the given execute flag.
func New(execute bool) *Policy {
	ret := &Policy{Mode: ModeAuto}
	ret.SetExecute(execute)
	return ret
}

// Execute reports whether downstream propagation is enabled.
func (p *Policy) Execute() bool {
	if p == nil {
		return true
	}
	return !p.paused.Load()
}

// SetExecute toggles downstream propagation.
func (p *Policy) SetExecute(execute bool) {
	if p == nil {
		return
	}
	p.paused.Store(!execute)
}

// Config represents the declarative, serialisable part of a Policy.
type Config struct {
	Execute   *bool    `json:"execute,omitempty" yaml:"execute,omitempty"`
	Mode      string   `json:"mode,omitempty" yaml:"mode,omitempty" validate:"omitempty,oneof=ask auto deny"`
	AllowList []string `json:"allow,omitempty" yaml:"allow,omitempty"`
	BlockList []string `json:"block,omitempty" yaml:"block,omitempty"`
}

// ToConfig converts a runtime Policy into a persistable Config.
func ToConfig(p *Policy) *Config {
	if p == nil {
		return nil
	}
	execute := p.Execute()
	return &Config{
		Execute:   &execute,
		Mode:      p.Mode,
		AllowList: append([]string(nil), p.AllowList...),
		BlockList: append([]string(nil), p.BlockList...),
	}
}

// FromConfig converts a stored Config back to a runtime Policy (without
// AskFunc).
func FromConfig(c *Config) *Policy {
	if c == nil {
		return nil
	}
	ret := &Policy{
		Mode:      c.Mode,
		AllowList: append([]string(nil), c.AllowList...),
		BlockList: append([]string(nil), c.BlockList...),
	}
	if ret.Mode == "" {
		ret.Mode = ModeAuto
	}
	ret.SetExecute(c.Execute == nil || *c.Execute)
	return ret
}

// IsAllowed evaluates AllowList / BlockList.  Both lists match the plugin
// name by case-insensitive comparison.
func (p *Policy) IsAllowed(plugin string) bool {
	if p == nil {
		return true
	}

	normalized := strings.ToLower(plugin)

	// BlockList has priority.
	for _, b := range p.BlockList {
		if normalized == strings.ToLower(b) {
			return false
		}
	}

	if len(p.AllowList) == 0 {
		return true
	}

	for _, a := range p.AllowList {
		if normalized == strings.ToLower(a) {
			return true
		}
	}

	return false
}

// Approve returns nil when plugin may run for nodeID.
func (p *Policy) Approve(ctx context.Context, plugin, nodeID string) error {
	if p == nil {
		return nil
	}
	if !p.IsAllowed(plugin) {
		return fmt.Errorf("%w: %v is not allowed", ErrBlocked, plugin)
	}
	switch p.Mode {
	case ModeDeny:
		return fmt.Errorf("%w: mode %v", ErrBlocked, p.Mode)
	case ModeAsk:
		if p.Ask == nil || !p.Ask(ctx, plugin, nodeID, p) {
			return fmt.Errorf("%w: %v was rejected for node %v", ErrBlocked, plugin, nodeID)
		}
	}
	return nil
}

type ctxKeyT struct{}

var ctxKey ctxKeyT

// WithPolicy embeds policy in ctx.
func WithPolicy(ctx context.Context, p *Policy) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey, p)
}

// FromContext extracts the policy embedded in ctx or nil.
func FromContext(ctx context.Context) *Policy {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxKey).(*Policy); ok {
		return v
	}
	return nil
}

// Resolve returns the policy attached to ctx, falling back to p.
func Resolve(ctx context.Context, p *Policy) *Policy {
	if override := FromContext(ctx); override != nil {
		return override
	}
	return p
}
