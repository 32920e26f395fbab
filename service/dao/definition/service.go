package definition

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/viant/nodeflow/internal/yml"
	"github.com/viant/nodeflow/service/meta"
	"gopkg.in/yaml.v3"
)

// ErrDuplicateNode is returned when a definition declares a node id twice.
var ErrDuplicateNode = errors.New("duplicate node id")

// Service loads and caches graph definitions.
type Service struct {
	metaService *meta.Service
	validate    *validator.Validate
	mux         sync.RWMutex
	cache       map[string]*Definition
}

// DecodeYAML decodes a definition from YAML
func (s *Service) DecodeYAML(encoded []byte) (*Definition, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(encoded, &node); err != nil {
		return nil, err
	}
	return s.Parse("", &node)
}

// Load loads a definition from YAML at the specified URL. Loaded
// definitions are cached until Refresh.
func (s *Service) Load(ctx context.Context, URL string) (*Definition, error) {
	if filepath.Ext(URL) == "" {
		URL += ".yaml"
	}
	s.mux.RLock()
	cached, ok := s.cache[URL]
	s.mux.RUnlock()
	if ok {
		return cached, nil
	}
	var node yaml.Node
	if err := s.metaService.Load(ctx, URL, &node); err != nil {
		return nil, fmt.Errorf("failed to load graph from %s: %w", URL, err)
	}
	ret, err := s.Parse(URL, &node)
	if err != nil {
		return nil, err
	}
	s.Upsert(URL, ret)
	return ret, nil
}

// Upsert stores def under location.
func (s *Service) Upsert(location string, def *Definition) {
	s.mux.Lock()
	s.cache[location] = def
	s.mux.Unlock()
}

// Refresh discards the cached copy of location.
func (s *Service) Refresh(location string) {
	s.mux.Lock()
	delete(s.cache, location)
	s.mux.Unlock()
}

// Parse converts a YAML document to a Definition.
func (s *Service) Parse(URL string, node *yaml.Node) (*Definition, error) {
	ret := &Definition{Source: URL, Name: nameFromURL(URL)}
	root := (*yml.Node)(node).Root()
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("failed to parse graph %v: expected mapping", URL)
	}
	err := root.Pairs(func(key string, value *yml.Node) error {
		switch strings.ToLower(key) {
		case "name":
			ret.Name = value.Value
		case "nodes":
			nodes, err := parseNodes(value)
			if err != nil {
				return fmt.Errorf("failed to parse nodes: %w", err)
			}
			ret.Nodes = nodes
		case "connections":
			if err := value.Decode(&ret.Connections); err != nil {
				return fmt.Errorf("failed to parse connections: %w", err)
			}
		default:
			return fmt.Errorf("unsupported graph key: %v", key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse graph %v: %w", URL, err)
	}
	if ret.Name == "" {
		ret.Name = anonymousName()
	}
	if err = s.Validate(ret); err != nil {
		return nil, err
	}
	return ret, nil
}

// Validate checks required fields and node id uniqueness.
func (s *Service) Validate(def *Definition) error {
	if err := s.validate.Struct(def); err != nil {
		return fmt.Errorf("invalid graph %v: %w", def.Name, err)
	}
	seen := make(map[string]bool, len(def.Nodes))
	for _, node := range def.Nodes {
		if seen[node.ID] {
			return fmt.Errorf("invalid graph %v: %w: %v", def.Name, ErrDuplicateNode, node.ID)
		}
		seen[node.ID] = true
	}
	return nil
}

// parseNodes accepts either a mapping keyed by node id or a sequence of
// documents carrying an id field.
func parseNodes(node *yml.Node) ([]*Node, error) {
	var ret []*Node
	switch node.Kind {
	case yaml.MappingNode:
		err := node.Pairs(func(id string, value *yml.Node) error {
			data, err := nodeData(value)
			if err != nil {
				return fmt.Errorf("node %v: %w", id, err)
			}
			ret = append(ret, &Node{ID: id, Data: data})
			return nil
		})
		return ret, err
	case yaml.SequenceNode:
		err := node.Items(func(index int, value *yml.Node) error {
			data, err := nodeData(value)
			if err != nil {
				return fmt.Errorf("node[%d]: %w", index, err)
			}
			id, _ := data["id"].(string)
			delete(data, "id")
			ret = append(ret, &Node{ID: id, Data: data})
			return nil
		})
		return ret, err
	}
	return nil, fmt.Errorf("expected mapping or sequence at line %d", node.Line)
}

func nodeData(node *yml.Node) (map[string]interface{}, error) {
	switch actual := node.Interface().(type) {
	case nil:
		return map[string]interface{}{}, nil
	case map[string]interface{}:
		return actual, nil
	default:
		return nil, fmt.Errorf("expected mapping, but had %T", actual)
	}
}

func nameFromURL(URL string) string {
	if URL == "" {
		return ""
	}
	base := filepath.Base(URL)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// New creates a definition service.
func New(opts ...Option) *Service {
	ret := &Service{cache: map[string]*Definition{}}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.metaService == nil {
		ret.metaService = meta.New(nil, "")
	}
	if ret.validate == nil {
		ret.validate = validator.New()
	}
	return ret
}
