package graph

// Clone returns a copy of n that shares no maps or slices with it. Leaf
// values such as output data are shared; they are replaced, never mutated.
func (n *NodeData) Clone() *NodeData {
	if n == nil {
		return nil
	}
	ret := *n
	if n.Meta.Capabilities != nil {
		ret.Meta.Capabilities = append([]string(nil), n.Meta.Capabilities...)
	}
	ret.Input.Connections = make(map[string]*Connection, len(n.Input.Connections))
	for id, conn := range n.Input.Connections {
		ret.Input.Connections[id] = conn.Clone()
	}
	ret.Input.Config.Options = copyMap(n.Input.Config.Options)
	ret.Output.Directives = CloneDirectives(n.Output.Directives)
	ret.Error.Errors = append([]*NodeError{}, n.Error.Errors...)
	if n.Plugin != nil {
		plugin := *n.Plugin
		plugin.Config = copyMap(n.Plugin.Config)
		ret.Plugin = &plugin
	}
	return &ret
}

func copyMap(src map[string]interface{}) map[string]interface{} {
	if src == nil {
		return nil
	}
	ret := make(map[string]interface{}, len(src))
	for k, v := range src {
		ret[k] = v
	}
	return ret
}
