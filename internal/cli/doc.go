// Package cli implements the nodeflow command line tool.
//
// The run command loads a graph definition into an in-process engine,
// processes its entry nodes and prints every node output. The validate
// command only parses and validates a definition.
//
//	nodeflow run --config config.yaml graph.yaml
//	nodeflow validate graph.yaml --json
package cli
