// Package processor drives node processing. A run moves a node through
// idle, processing and then success or error, aggregating its inputs,
// invoking its plugin, committing the output, applying the directives it
// emits and finally fanning out to the downstream nodes.
package processor
