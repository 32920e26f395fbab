// Package progress provides a lightweight tracker that keeps aggregated
// processing counters (runs started, succeeded, failed, …) for a single
// engine.  The tracker is also embedded in the processing context so that
// components receiving the context can update the counters via the Delta
// helper without requiring a global registry.

package progress

import (
	"context"
	"sync"
	"time"

	"github.com/viant/nodeflow/internal/clock"
)

// Delta represents an incremental counter change emitted by the processor.
// The fields are signed and therefore can be either positive (increment) or
// negative (decrement).
type Delta struct {
	Total      int
	Completed  int
	Skipped    int
	Failed     int
	Running    int
	Paused     int
	Directives int
}

// Progress keeps aggregated node processing counters.  It is safe for
// concurrent use.
type Progress struct {
	StartedAt time.Time

	TotalRuns      int
	CompletedRuns  int
	SkippedRuns    int
	FailedRuns     int
	RunningRuns    int
	PausedRuns     int
	DirectiveFails int

	mu       sync.Mutex
	onChange func(Progress)
}

// New creates a tracker.
func New(onChange func(Progress)) *Progress {
	return &Progress{StartedAt: clock.Now(), onChange: onChange}
}

// Update applies the supplied delta to the tracker.  It is safe to call from
// multiple goroutines.  The onChange callback is invoked with a copy of the
// counters outside the critical section.
func (p *Progress) Update(d Delta) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.TotalRuns += d.Total
	p.CompletedRuns += d.Completed
	p.SkippedRuns += d.Skipped
	p.FailedRuns += d.Failed
	p.RunningRuns += d.Running
	p.PausedRuns += d.Paused
	p.DirectiveFails += d.Directives
	snapshot := p.copy()
	cb := p.onChange
	p.mu.Unlock()

	if cb != nil {
		cb(snapshot)
	}
}

// Snapshot returns a copy of the tracker suitable for read-only inspection.
func (p *Progress) Snapshot() Progress {
	if p == nil {
		return Progress{}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.copy()
}

func (p *Progress) copy() Progress {
	return Progress{
		StartedAt:      p.StartedAt,
		TotalRuns:      p.TotalRuns,
		CompletedRuns:  p.CompletedRuns,
		SkippedRuns:    p.SkippedRuns,
		FailedRuns:     p.FailedRuns,
		RunningRuns:    p.RunningRuns,
		PausedRuns:     p.PausedRuns,
		DirectiveFails: p.DirectiveFails,
	}
}

// OnChange registers a callback that is invoked after every Update.
// Passing nil disables the callback.
func (p *Progress) OnChange(cb func(Progress)) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.onChange = cb
	p.mu.Unlock()
}

// Reset zeroes the counters.
func (p *Progress) Reset() {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.StartedAt = clock.Now()
	p.TotalRuns, p.CompletedRuns, p.SkippedRuns, p.FailedRuns = 0, 0, 0, 0
	p.RunningRuns, p.PausedRuns, p.DirectiveFails = 0, 0, 0
	p.mu.Unlock()
}

type trackerKeyT struct{}

var trackerKey trackerKeyT

// WithTracker embeds tracker in a derived context.
func WithTracker(ctx context.Context, tracker *Progress) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, trackerKey, tracker)
}

// FromContext extracts the Progress tracker from ctx.
func FromContext(ctx context.Context) (*Progress, bool) {
	if ctx == nil {
		return nil, false
	}
	tr, ok := ctx.Value(trackerKey).(*Progress)
	return tr, ok
}

// UpdateCtx looks up the tracker in ctx (if any) and applies the delta.
func UpdateCtx(ctx context.Context, d Delta) {
	if tr, ok := FromContext(ctx); ok {
		tr.Update(d)
	}
}
