package cli

import (
	"strconv"

	"github.com/spf13/cobra"
	"github.com/viant/nodeflow/service/dao/definition"
)

// NewValidateCmd creates the validate command.
func NewValidateCmd(settings *Settings, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "validate GRAPH_URL...",
		Short: "Parse and validate graph definitions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			srv, err := settings.Engine(ctx)
			if err != nil {
				return err
			}
			defer srv.Cleanup(ctx)
			out := outputFn()
			var defs []*definition.Definition
			rows := make([][]string, 0, len(args))
			for _, URL := range args {
				def, err := srv.Definitions().Load(ctx, URL)
				if err != nil {
					return err
				}
				defs = append(defs, def)
				rows = append(rows, []string{def.Name, strconv.Itoa(len(def.Nodes)), strconv.Itoa(len(def.Connections)), URL})
			}
			return out.Print([]string{"NAME", "NODES", "CONNECTIONS", "SOURCE"}, rows, defs)
		},
	}
}
