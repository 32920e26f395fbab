package progress

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgress_Update(t *testing.T) {
	var last Progress
	tracker := New(func(p Progress) { last = p })
	ctx := WithTracker(context.Background(), tracker)

	wg := sync.WaitGroup{}
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			UpdateCtx(ctx, Delta{Total: 1, Running: 1})
			UpdateCtx(ctx, Delta{Running: -1, Completed: 1})
		}()
	}
	wg.Wait()
	tracker.OnChange(nil)
	tracker.Update(Delta{Failed: 1})

	snapshot := tracker.Snapshot()
	assert.Equal(t, 10, snapshot.TotalRuns)
	assert.Equal(t, 10, snapshot.CompletedRuns)
	assert.Equal(t, 0, snapshot.RunningRuns)
	assert.Equal(t, 1, snapshot.FailedRuns)
	assert.Equal(t, 10, last.CompletedRuns)

	tracker.Reset()
	assert.Equal(t, 0, tracker.Snapshot().TotalRuns)
}

func TestProgress_NilSafe(t *testing.T) {
	var tracker *Progress
	assert.NotPanics(t, func() {
		tracker.Update(Delta{Total: 1})
		tracker.OnChange(nil)
		tracker.Reset()
	})
	assert.Equal(t, Progress{}, tracker.Snapshot())
	UpdateCtx(context.Background(), Delta{Total: 1})
}
