package plugin

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrPluginNotFound = errors.New("plugin not found")
	ErrInvalidConfig  = errors.New("invalid plugin config")
)

// Registry resolves and runs plugins by name.
type Registry interface {
	Has(name string) bool
	ValidatePluginConfig(name string, config map[string]interface{}) (bool, []string)
	ProcessWithPlugin(ctx context.Context, name string, inputs []Input, config map[string]interface{}, pctx *Context) (*Result, error)
}

// Service is the default in-memory plugin registry.
type Service struct {
	plugins map[string]Plugin
	mux     sync.RWMutex
}

// New creates a registry holding plugins.
func New(plugins ...Plugin) *Service {
	ret := &Service{plugins: map[string]Plugin{}}
	for _, p := range plugins {
		ret.Register(p)
	}
	return ret
}

// Register adds or replaces a plugin.
func (s *Service) Register(p Plugin) {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.plugins[p.Name()] = p
}

// Unregister removes a plugin.
func (s *Service) Unregister(name string) {
	s.mux.Lock()
	defer s.mux.Unlock()
	delete(s.plugins, name)
}

// Lookup returns a plugin by name.
func (s *Service) Lookup(name string) Plugin {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.plugins[name]
}

// Names returns registered plugin names, sorted.
func (s *Service) Names() []string {
	s.mux.RLock()
	defer s.mux.RUnlock()
	ret := make([]string, 0, len(s.plugins))
	for name := range s.plugins {
		ret = append(ret, name)
	}
	sort.Strings(ret)
	return ret
}

func (s *Service) Has(name string) bool {
	return s.Lookup(name) != nil
}

func (s *Service) ValidatePluginConfig(name string, config map[string]interface{}) (bool, []string) {
	p := s.Lookup(name)
	if p == nil {
		return false, []string{fmt.Sprintf("plugin %v is not registered", name)}
	}
	validator, ok := p.(ConfigValidator)
	if !ok {
		return true, nil
	}
	problems := validator.ValidateConfig(config)
	return len(problems) == 0, problems
}

func (s *Service) ProcessWithPlugin(ctx context.Context, name string, inputs []Input, config map[string]interface{}, pctx *Context) (*Result, error) {
	p := s.Lookup(name)
	if p == nil {
		return nil, fmt.Errorf("%w: %v", ErrPluginNotFound, name)
	}
	return p.Process(ctx, inputs, config, pctx)
}

var _ Registry = (*Service)(nil)
