package plugin

import (
	"context"
	"sort"
	"sync"

	"github.com/viant/nodeflow/internal/clock"
	"github.com/viant/nodeflow/model/graph"
)

// Host gives plugins scoped access to the engine.
type Host interface {
	UpdateNode(ctx context.Context, id string, patch *graph.Patch) (*graph.NodeData, error)
	Upstream(id string) []string
	Downstream(id string) []string
}

// Connected lists the neighbours of a node.
type Connected struct {
	Upstream   []string `json:"upstream"`
	Downstream []string `json:"downstream"`
}

// Context is passed to every plugin run.
type Context struct {
	NodeID string
	// Node is a private snapshot; changes are not persisted, use Update.
	Node       *graph.NodeData
	Aggregated interface{}
	Globals    *Namespace
	host       Host
}

// Update merges patch into this node only.
func (c *Context) Update(ctx context.Context, patch *graph.Patch) error {
	if c.host == nil {
		return nil
	}
	_, err := c.host.UpdateNode(ctx, c.NodeID, patch)
	return err
}

// Connected returns the node neighbours.
func (c *Context) Connected() Connected {
	if c.host == nil {
		return Connected{}
	}
	return Connected{Upstream: c.host.Upstream(c.NodeID), Downstream: c.host.Downstream(c.NodeID)}
}

// Emit adds d for targetID to result, stamping its meta with this node as
// the source when the plugin left it empty.
func (c *Context) Emit(result *Result, targetID string, d *graph.Directive) {
	if d.Meta == nil {
		d.Meta = &graph.DirectiveMeta{Source: c.NodeID, Timestamp: clock.Stamp()}
	}
	if result.Directives == nil {
		result.Directives = map[string][]*graph.Directive{}
	}
	result.Directives[targetID] = append(result.Directives[targetID], d)
}

// Globals is an engine wide key value bag partitioned by plugin name.
type Globals struct {
	mu     sync.RWMutex
	spaces map[string]map[string]interface{}
}

// NewGlobals creates an empty bag.
func NewGlobals() *Globals {
	return &Globals{spaces: map[string]map[string]interface{}{}}
}

// Namespace returns the view scoped to name.
func (g *Globals) Namespace(name string) *Namespace {
	return &Namespace{name: name, globals: g}
}

// Reset drops every namespace.
func (g *Globals) Reset() {
	g.mu.Lock()
	g.spaces = map[string]map[string]interface{}{}
	g.mu.Unlock()
}

// Namespace is a plugin scoped view over Globals.
type Namespace struct {
	name    string
	globals *Globals
}

func (n *Namespace) Name() string { return n.name }

func (n *Namespace) Get(key string) (interface{}, bool) {
	n.globals.mu.RLock()
	defer n.globals.mu.RUnlock()
	value, ok := n.globals.spaces[n.name][key]
	return value, ok
}

func (n *Namespace) Set(key string, value interface{}) {
	n.globals.mu.Lock()
	defer n.globals.mu.Unlock()
	space, ok := n.globals.spaces[n.name]
	if !ok {
		space = map[string]interface{}{}
		n.globals.spaces[n.name] = space
	}
	space[key] = value
}

func (n *Namespace) Delete(key string) {
	n.globals.mu.Lock()
	defer n.globals.mu.Unlock()
	delete(n.globals.spaces[n.name], key)
}

// Keys returns the sorted keys of the namespace.
func (n *Namespace) Keys() []string {
	n.globals.mu.RLock()
	defer n.globals.mu.RUnlock()
	ret := make([]string, 0, len(n.globals.spaces[n.name]))
	for k := range n.globals.spaces[n.name] {
		ret = append(ret, k)
	}
	sort.Strings(ret)
	return ret
}
