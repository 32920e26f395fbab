package nodeflow

import (
	"context"
	"fmt"

	"github.com/viant/nodeflow/service/dao/definition"
)

// LoadGraph loads the graph definition at URL and registers its nodes and
// connections. Relative locations resolve against WithMetaBaseURL.
func (s *Service) LoadGraph(ctx context.Context, URL string) (*definition.Definition, error) {
	def, err := s.definitions.Load(ctx, URL)
	if err != nil {
		return nil, err
	}
	if err = s.ApplyGraph(ctx, def); err != nil {
		return nil, err
	}
	return def, nil
}

// ApplyGraph registers every node of def in document order, then adds its
// connections. Existing nodes with the same ids are replaced.
func (s *Service) ApplyGraph(ctx context.Context, def *definition.Definition) error {
	for _, node := range def.Nodes {
		if _, err := s.registry.RegisterRaw(ctx, node.ID, node.Data, nil); err != nil {
			return fmt.Errorf("failed to register node %v of graph %v: %w", node.ID, def.Name, err)
		}
	}
	for _, conn := range def.Connections {
		if _, err := s.connections.Add(ctx, conn.Source, conn.Target, conn.SourceHandle, conn.TargetHandle, conn.EdgeRef); err != nil {
			return fmt.Errorf("failed to connect %v to %v in graph %v: %w", conn.Source, conn.Target, def.Name, err)
		}
	}
	return nil
}

// Definitions returns the graph definition loader.
func (s *Service) Definitions() *definition.Service {
	return s.definitions
}
