package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/nodeflow/service/messaging"
)

type testPayload struct {
	ID       string
	Priority int
}

func TestQueue_Order(t *testing.T) {
	testCases := []struct {
		description string
		less        Less[testPayload]
		input       []testPayload
		expected    []string
	}{
		{
			description: "fifo without ordering",
			input:       []testPayload{{ID: "a"}, {ID: "b"}, {ID: "c"}},
			expected:    []string{"a", "b", "c"},
		},
		{
			description: "descending priority, stable for ties",
			less:        func(a, b *testPayload) bool { return a.Priority > b.Priority },
			input:       []testPayload{{ID: "low", Priority: 1}, {ID: "high", Priority: 9}, {ID: "mid1", Priority: 5}, {ID: "mid2", Priority: 5}},
			expected:    []string{"high", "mid1", "mid2", "low"},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			var opts []Option[testPayload]
			if testCase.less != nil {
				opts = append(opts, WithLess(testCase.less))
			}
			queue := NewQueue[testPayload](DefaultConfig(), opts...)
			ctx := context.Background()
			for i := range testCase.input {
				assert.NoError(t, queue.Publish(ctx, &testCase.input[i]))
			}
			assert.Equal(t, len(testCase.input), queue.Size())
			var actual []string
			for {
				msg, err := queue.Consume(ctx)
				if errors.Is(err, messaging.ErrEmpty) {
					break
				}
				assert.NoError(t, err)
				actual = append(actual, msg.T().ID)
				assert.NoError(t, msg.Ack())
			}
			assert.Equal(t, testCase.expected, actual)
		})
	}
}

func TestQueue_AckNack(t *testing.T) {
	config := DefaultConfig()
	config.MaxRetries = 1
	queue := NewQueue[testPayload](config)
	ctx := context.Background()
	assert.NoError(t, queue.Publish(ctx, &testPayload{ID: "x"}))

	msg, err := queue.Consume(ctx)
	assert.NoError(t, err)
	assert.NoError(t, msg.Nack(errors.New("first")))
	assert.Error(t, msg.Ack(), "double processing")
	assert.Equal(t, 1, queue.Size(), "requeued under retry limit")

	msg, err = queue.Consume(ctx)
	assert.NoError(t, err)
	assert.NoError(t, msg.Nack(errors.New("second")))
	assert.Equal(t, 0, queue.Size())
	assert.Equal(t, 1, queue.DLQSize())
	assert.EqualError(t, queue.DeadLetters()[0].Err(), "second")
}

func TestQueue_Drain(t *testing.T) {
	queue := NewQueue[testPayload](DefaultConfig())
	ctx := context.Background()
	assert.NoError(t, queue.Publish(ctx, &testPayload{ID: "a"}))
	assert.NoError(t, queue.Publish(ctx, &testPayload{ID: "b"}))
	assert.Error(t, queue.Publish(ctx, nil))
	drained := queue.Drain()
	assert.Len(t, drained, 2)
	assert.Equal(t, 0, queue.Size())

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.Error(t, queue.Publish(cancelled, &testPayload{ID: "c"}))
}

func TestQueue_PurgeDeadLetters(t *testing.T) {
	queue := NewQueue[testPayload](DefaultConfig())
	ctx := context.Background()
	for _, id := range []string{"a", "b", "a"} {
		assert.NoError(t, queue.Publish(ctx, &testPayload{ID: id}))
		msg, err := queue.Consume(ctx)
		assert.NoError(t, err)
		assert.NoError(t, msg.Nack(errors.New("failed")))
	}
	assert.Equal(t, 3, queue.DLQSize())

	removed := queue.PurgeDeadLetters(func(p *testPayload) bool { return p.ID == "a" })
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, queue.DLQSize())
	assert.Equal(t, "b", queue.DeadLetters()[0].T().ID)

	assert.NoError(t, queue.Publish(ctx, &testPayload{ID: "c"}))
	queue.Reset()
	assert.Equal(t, 0, queue.Size())
	assert.Equal(t, 0, queue.DLQSize())
}
