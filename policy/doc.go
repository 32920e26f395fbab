// Package policy controls what the engine is allowed to run: the global
// execute flag gating downstream propagation and per-plugin approval rules.
package policy
