// Package nodeflow provides an embeddable, in-process dataflow engine.
//
// A graph is made of nodes holding meta, input, output, error and plugin
// sections, and of connections carrying the output of one node into the
// input of another. Processing a node aggregates its incoming connections,
// runs its plugin, commits the output and, while execution is enabled,
// processes every downstream node. Plugins may also emit directives that
// mutate fields of other nodes outside of the connection flow.
//
// The engine is embedded through the Service facade exposed by the root
// package:
//
//	srv := nodeflow.New(nodeflow.WithPlugins(myPlugin))
//	_ = srv.Init(ctx)
//	_, _ = srv.LoadGraph(ctx, "graph.yaml")
//	_ = srv.ProcessNode(ctx, "source")
//	node := srv.GetNodeData("sink")
//
// Lifecycle notifications are delivered synchronously through Subscribe.
package nodeflow

// Version is the engine version reported to tracing.
const Version = "0.1.0"
