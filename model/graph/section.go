package graph

import (
	"encoding/json"
	"fmt"
)

// rawKeys lists section keys carried as-is, without JSON re-typing.
var rawKeys = map[string]string{
	SectionOutput: "data",
	SectionPlugin: "config",
}

// Section returns a generic map view of the named section. Values under
// output.data and plugin.config are the stored values, not copies.
func (n *NodeData) Section(name string) (map[string]interface{}, error) {
	var source interface{}
	switch name {
	case SectionMeta:
		source = n.Meta
	case SectionInput:
		source = n.Input
	case SectionOutput:
		output := n.Output
		output.Data = nil
		output.Directives = nil
		source = output
	case SectionError:
		source = n.Error
	case SectionPlugin:
		if n.Plugin == nil {
			return map[string]interface{}{}, nil
		}
		plugin := *n.Plugin
		plugin.Config = nil
		source = plugin
	default:
		return nil, fmt.Errorf("unknown section %q", name)
	}
	data, err := json.Marshal(source)
	if err != nil {
		return nil, fmt.Errorf("failed to encode section %v: %w", name, err)
	}
	ret := map[string]interface{}{}
	if err = json.Unmarshal(data, &ret); err != nil {
		return nil, fmt.Errorf("failed to decode section %v: %w", name, err)
	}
	switch name {
	case SectionOutput:
		ret["data"] = n.Output.Data
	case SectionPlugin:
		if n.Plugin.Config != nil {
			ret["config"] = n.Plugin.Config
		}
	}
	return ret, nil
}

// WithSection returns a clone of n whose named section is rebuilt from value.
func (n *NodeData) WithSection(name string, value map[string]interface{}) (*NodeData, error) {
	ret := n.Clone()
	var raw interface{}
	hasRaw := false
	if key, ok := rawKeys[name]; ok {
		raw, hasRaw = value[key]
		trimmed := make(map[string]interface{}, len(value))
		for k, v := range value {
			if k != key {
				trimmed[k] = v
			}
		}
		value = trimmed
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode section %v: %w", name, err)
	}
	switch name {
	case SectionMeta:
		meta := Meta{}
		if err = json.Unmarshal(data, &meta); err == nil {
			ret.Meta = meta
		}
	case SectionInput:
		input := Input{}
		if err = json.Unmarshal(data, &input); err == nil {
			if input.Connections == nil {
				input.Connections = map[string]*Connection{}
			}
			ret.Input = input
		}
	case SectionOutput:
		output := Output{}
		if err = json.Unmarshal(data, &output); err == nil {
			output.Directives = ret.Output.Directives
			if hasRaw {
				output.Data = raw
			}
			ret.Output = output
		}
	case SectionError:
		state := ErrorState{}
		if err = json.Unmarshal(data, &state); err == nil {
			if state.Errors == nil {
				state.Errors = []*NodeError{}
			}
			ret.Error = state
		}
	case SectionPlugin:
		plugin := Plugin{}
		if err = json.Unmarshal(data, &plugin); err == nil {
			if hasRaw {
				cfg, ok := raw.(map[string]interface{})
				if !ok && raw != nil {
					return nil, fmt.Errorf("plugin.config must be an object, got %T", raw)
				}
				plugin.Config = cfg
			}
			ret.Plugin = &plugin
		}
	default:
		return nil, fmt.Errorf("unknown section %q", name)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid %v section: %w", name, err)
	}
	return ret, nil
}
