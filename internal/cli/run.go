package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/viant/nodeflow"
	"github.com/viant/nodeflow/model/graph"
)

// NodeResult is the printed outcome of one node.
type NodeResult struct {
	ID     string       `json:"id"`
	Status graph.Status `json:"status"`
	Data   interface{}  `json:"data,omitempty"`
	Error  string       `json:"error,omitempty"`
}

// NewRunCmd creates the run command.
func NewRunCmd(settings *Settings, outputFn func() *Output) *cobra.Command {
	var nodes []string
	var inputs []string
	var paused bool

	cmd := &cobra.Command{
		Use:   "run GRAPH_URL",
		Short: "Load a graph and process it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			srv, err := settings.Engine(ctx)
			if err != nil {
				return err
			}
			defer srv.Cleanup(ctx)
			if _, err = srv.LoadGraph(ctx, args[0]); err != nil {
				return err
			}
			if err = applyInputs(ctx, srv, inputs); err != nil {
				return err
			}
			if paused {
				srv.SetExecute(false)
			}
			if len(nodes) == 0 {
				nodes = EntryNodes(srv)
			}
			out := outputFn()
			failed := 0
			for _, id := range nodes {
				if err := srv.ProcessNode(ctx, id); err != nil {
					failed++
					out.Message(fmt.Sprintf("node %v failed: %v", id, err))
				}
			}
			results := Results(srv)
			rows := make([][]string, 0, len(results))
			for _, result := range results {
				rows = append(rows, []string{result.ID, string(result.Status), compact(result.Data), result.Error})
			}
			if err = out.Print([]string{"ID", "STATUS", "DATA", "ERROR"}, rows, results); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d entry nodes failed", failed, len(nodes))
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&nodes, "node", nil, "Node to process (repeatable); defaults to the graph entry nodes")
	cmd.Flags().StringSliceVar(&inputs, "input", nil, "Input node data as ID=JSON (repeatable)")
	cmd.Flags().BoolVar(&paused, "paused", false, "Process the selected nodes without propagating downstream")
	return cmd
}

// EntryNodes returns the nodes to process for a whole graph run: nodes
// without upstream connections, with input nodes replaced by their targets.
func EntryNodes(srv *nodeflow.Service) []string {
	seen := map[string]bool{}
	var ret []string
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			ret = append(ret, id)
		}
	}
	ids := srv.NodeIDs()
	sort.Strings(ids)
	for _, id := range ids {
		if len(srv.Upstream(id)) > 0 {
			continue
		}
		if srv.GetNodeData(id).IsInput() {
			for _, target := range srv.Downstream(id) {
				add(target)
			}
			continue
		}
		add(id)
	}
	return ret
}

// Results returns every node outcome ordered by id.
func Results(srv *nodeflow.Service) []*NodeResult {
	ids := srv.NodeIDs()
	sort.Strings(ids)
	ret := make([]*NodeResult, 0, len(ids))
	for _, id := range ids {
		node := srv.GetNodeData(id)
		if node == nil {
			continue
		}
		result := &NodeResult{ID: id, Status: node.Status(), Data: node.Output.Data}
		if node.Error.HasError {
			var messages []string
			for _, nodeErr := range node.Error.Errors {
				messages = append(messages, nodeErr.Message)
			}
			result.Error = strings.Join(messages, "; ")
		}
		ret = append(ret, result)
	}
	return ret
}

func applyInputs(ctx context.Context, srv *nodeflow.Service, inputs []string) error {
	for _, kv := range inputs {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid input format %q, expected ID=JSON", kv)
		}
		var data interface{}
		if err := json.Unmarshal([]byte(parts[1]), &data); err != nil {
			data = parts[1]
		}
		if _, err := srv.UpdateNodeData(ctx, parts[0], graph.DataPatch(data), false); err != nil {
			return err
		}
	}
	return nil
}

func compact(data interface{}) string {
	if data == nil {
		return ""
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(encoded)
}
