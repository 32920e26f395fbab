package graph

import (
	"encoding/json"
	"fmt"
)

var sectionKeys = []string{SectionMeta, SectionInput, SectionOutput, SectionError, SectionPlugin}

// IsSectioned reports whether raw already uses the meta/input/output layout.
func IsSectioned(raw map[string]interface{}) bool {
	for _, key := range sectionKeys {
		if _, ok := raw[key].(map[string]interface{}); ok {
			return true
		}
	}
	return false
}

// Migrate converts a loosely typed node description into NodeData. Both the
// sectioned layout and the legacy flat layout are accepted:
//
//	{label, function, emoji, category, capabilities, version,
//	 data, allowMultipleConnections, strategy, plugin, pluginConfig}
func Migrate(raw map[string]interface{}) (*NodeData, error) {
	if raw == nil {
		return Normalize(nil), nil
	}
	if IsSectioned(raw) {
		return decodeSectioned(raw)
	}
	ret := &NodeData{}
	ret.Meta.Label = stringValue(raw["label"])
	ret.Meta.Function = stringValue(raw["function"])
	ret.Meta.Emoji = stringValue(raw["emoji"])
	ret.Meta.Category = Category(stringValue(raw["category"]))
	ret.Meta.Version = stringValue(raw["version"])
	if caps, ok := raw["capabilities"].([]interface{}); ok {
		for _, c := range caps {
			ret.Meta.Capabilities = append(ret.Meta.Capabilities, stringValue(c))
		}
	}
	if data, ok := raw["data"]; ok {
		ret.Output.Data = data
	} else if output, ok := raw["output"]; ok {
		ret.Output.Data = output
	}
	if allow, ok := raw["allowMultipleConnections"].(bool); ok {
		ret.Input.Config.AllowMultipleConnections = allow
	}
	ret.Input.Config.Strategy = stringValue(raw["strategy"])
	switch plugin := raw["plugin"].(type) {
	case string:
		if plugin != "" {
			ret.Plugin = &Plugin{Name: plugin}
		}
	case map[string]interface{}:
		ret.Plugin = &Plugin{Name: stringValue(plugin["name"]), Version: stringValue(plugin["version"])}
		ret.Plugin.Config, _ = plugin["config"].(map[string]interface{})
	}
	if cfg, ok := raw["pluginConfig"].(map[string]interface{}); ok && ret.Plugin != nil {
		ret.Plugin.Config = cfg
	}
	return Normalize(ret), nil
}

func decodeSectioned(raw map[string]interface{}) (*NodeData, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to encode node data: %w", err)
	}
	ret := &NodeData{}
	if err = json.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("failed to decode node data: %w", err)
	}
	if output, ok := raw[SectionOutput].(map[string]interface{}); ok {
		ret.Output.Data = output["data"]
	}
	if plugin, ok := raw[SectionPlugin].(map[string]interface{}); ok && ret.Plugin != nil {
		if cfg, ok := plugin["config"].(map[string]interface{}); ok {
			ret.Plugin.Config = cfg
		}
	}
	return Normalize(ret), nil
}

func stringValue(v interface{}) string {
	switch actual := v.(type) {
	case nil:
		return ""
	case string:
		return actual
	default:
		return fmt.Sprintf("%v", actual)
	}
}
