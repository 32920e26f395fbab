package cli

import (
	"context"

	"github.com/viant/nodeflow"
	"github.com/viant/nodeflow/service/plugin"
)

// Settings holds the persistent flags shared by every command.
type Settings struct {
	ConfigURL string
	BaseURL   string
	JSON      bool
}

// Engine builds an engine from the settings and registers plugins.
func (s *Settings) Engine(ctx context.Context, plugins ...plugin.Plugin) (*nodeflow.Service, error) {
	config := nodeflow.DefaultConfig()
	if s.ConfigURL != "" {
		var err error
		if config, err = nodeflow.LoadConfig(ctx, s.ConfigURL); err != nil {
			return nil, err
		}
	}
	srv := nodeflow.New(
		nodeflow.WithConfig(config),
		nodeflow.WithMetaBaseURL(s.BaseURL),
		nodeflow.WithPlugins(plugins...),
	)
	if err := srv.Init(ctx); err != nil {
		return nil, err
	}
	return srv, nil
}
