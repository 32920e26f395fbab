// Package progress keeps aggregated node processing counters for an engine.
package progress
