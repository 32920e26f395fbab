package clock

import "time"

// NowFunc returns current time. Override in tests for determinism.
var NowFunc = time.Now

// Now is a thin wrapper around NowFunc.
func Now() time.Time { return NowFunc() }

// Since returns the time elapsed since t, measured against NowFunc.
func Since(t time.Time) time.Duration { return NowFunc().Sub(t) }

// Stamp returns the current time formatted as RFC3339 with milliseconds,
// the format used for directive and error timestamps.
func Stamp() string { return NowFunc().UTC().Format("2006-01-02T15:04:05.000Z07:00") }
