package graph

import (
	"encoding/json"
	"fmt"
)

type (
	// Patch is a partial node update merged per section:
	//   - Meta: non-zero fields override, Capabilities replaced when non-nil
	//   - Input.Connections: the whole map is replaced when non-nil
	//   - Input.Processed: replaced when non-nil
	//   - Input.Config: pointer fields override, Options merged key by key
	//   - Output.Data: replaced when SetData is true (nil allowed)
	//   - Output.Meta: non-zero fields override
	//   - Output.Directives: the whole map is replaced when non-nil
	//   - Error, Plugin: replaced when non-nil
	Patch struct {
		Meta   *Meta
		Input  *InputPatch
		Output *OutputPatch
		Error  *ErrorState
		Plugin *Plugin
	}

	InputPatch struct {
		Connections map[string]*Connection
		Processed   *Processed
		Config      *InputConfigPatch
	}

	InputConfigPatch struct {
		AllowMultipleConnections *bool
		Strategy                 *string
		Handler                  *string
		Options                  map[string]interface{}
	}

	OutputPatch struct {
		SetData         bool
		Data            interface{}
		Meta            *OutputMeta
		Directives      map[string][]*Directive
		ClearDirectives bool
	}
)

// DataPatch returns a patch replacing output data.
func DataPatch(data interface{}) *Patch {
	return &Patch{Output: &OutputPatch{SetData: true, Data: data}}
}

// Validate checks the patch can be committed.
func (p *Patch) Validate() error {
	if p == nil || p.Output == nil || !p.Output.SetData {
		return nil
	}
	return CheckSerializable(p.Output.Data)
}

// CheckSerializable returns ErrNotSerializable when value cannot be JSON encoded.
func CheckSerializable(value interface{}) error {
	if value == nil {
		return nil
	}
	if _, err := json.Marshal(value); err != nil {
		return fmt.Errorf("%w: %v", ErrNotSerializable, err)
	}
	return nil
}

// Apply merges p onto a clone of n and returns the clone; n is not modified.
func (p *Patch) Apply(n *NodeData) *NodeData {
	ret := n.Clone()
	if ret == nil {
		ret = Normalize(nil)
	}
	if p == nil {
		return ret
	}
	if p.Meta != nil {
		mergeMeta(&ret.Meta, p.Meta)
	}
	if p.Input != nil {
		p.Input.apply(&ret.Input)
	}
	if p.Output != nil {
		p.Output.apply(&ret.Output)
	}
	if p.Error != nil {
		errs := *p.Error
		errs.Errors = append([]*NodeError{}, p.Error.Errors...)
		errs.HasError = len(errs.Errors) > 0 || p.Error.HasError
		ret.Error = errs
	}
	if p.Plugin != nil {
		plugin := *p.Plugin
		plugin.Config = copyMap(p.Plugin.Config)
		ret.Plugin = &plugin
	}
	return ret
}

func mergeMeta(dest *Meta, src *Meta) {
	if src.Label != "" {
		dest.Label = src.Label
	}
	if src.Function != "" {
		dest.Function = src.Function
	}
	if src.Emoji != "" {
		dest.Emoji = src.Emoji
	}
	if src.Category != "" {
		dest.Category = src.Category
	}
	if src.Capabilities != nil {
		dest.Capabilities = append([]string(nil), src.Capabilities...)
	}
	if src.Version != "" {
		dest.Version = src.Version
	}
}

func (p *InputPatch) apply(dest *Input) {
	if p.Connections != nil {
		dest.Connections = make(map[string]*Connection, len(p.Connections))
		for id, conn := range p.Connections {
			dest.Connections[id] = conn.Clone()
		}
	}
	if p.Processed != nil {
		dest.Processed = *p.Processed
	}
	if cfg := p.Config; cfg != nil {
		if cfg.AllowMultipleConnections != nil {
			dest.Config.AllowMultipleConnections = *cfg.AllowMultipleConnections
		}
		if cfg.Strategy != nil {
			dest.Config.Strategy = *cfg.Strategy
		}
		if cfg.Handler != nil {
			dest.Config.Handler = *cfg.Handler
		}
		if cfg.Options != nil {
			if dest.Config.Options == nil {
				dest.Config.Options = map[string]interface{}{}
			}
			for k, v := range cfg.Options {
				dest.Config.Options[k] = v
			}
		}
	}
}

func (p *OutputPatch) apply(dest *Output) {
	if p.SetData {
		dest.Data = p.Data
	}
	if m := p.Meta; m != nil {
		if m.Status != "" {
			dest.Meta.Status = m.Status
		}
		if !m.Timestamp.IsZero() {
			dest.Meta.Timestamp = m.Timestamp
		}
		if m.ProcessingTime != 0 {
			dest.Meta.ProcessingTime = m.ProcessingTime
		}
	}
	if p.ClearDirectives {
		dest.Directives = map[string][]*Directive{}
	}
	if p.Directives != nil {
		dest.Directives = CloneDirectives(p.Directives)
	}
}
