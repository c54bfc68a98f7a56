package actions

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueRunsActionsSerially(t *testing.T) {
	queue := NewQueue(nil)
	defer queue.Stop()

	var mu sync.Mutex
	var events []string
	record := func(event string) {
		mu.Lock()
		events = append(events, event)
		mu.Unlock()
	}

	// Varying latencies: serialization must hold regardless.
	latencies := []time.Duration{30 * time.Millisecond, time.Millisecond, 10 * time.Millisecond}
	for i, latency := range latencies {
		i, latency := i, latency
		queue.Enqueue(PendingAction{
			Op: func(ctx context.Context) (any, error) {
				record(fmt.Sprintf("start-%d", i))
				time.Sleep(latency)
				record(fmt.Sprintf("end-%d", i))
				return nil, nil
			},
		})
	}

	require.Eventually(t, func() bool {
		return queue.Len() == 0
	}, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 6)
	assert.Equal(t, []string{"start-0", "end-0", "start-1", "end-1", "start-2", "end-2"}, events)
}

func TestQueueSettlesBeforeNext(t *testing.T) {
	notifier := NewNotifier()
	queue := NewQueue(notifier)
	defer queue.Stop()

	var mu sync.Mutex
	var order []string

	queue.Enqueue(PendingAction{
		Op: func(ctx context.Context) (any, error) { return "first", nil },
		OnSuccess: func(any) {
			mu.Lock()
			order = append(order, "first-settled")
			mu.Unlock()
		},
		SuccessMessage: "first done",
	})
	queue.Enqueue(PendingAction{
		Op: func(ctx context.Context) (any, error) {
			mu.Lock()
			order = append(order, "second-started")
			mu.Unlock()
			return nil, nil
		},
	})

	require.Eventually(t, func() bool {
		return queue.Len() == 0
	}, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"first-settled", "second-started"}, order)
}

func TestQueueFailureIsIsolated(t *testing.T) {
	notifier := NewNotifier()
	notifier.SetDisplayWindow(time.Minute)
	queue := NewQueue(notifier)
	defer queue.Stop()

	var errSeen error
	var succeeded bool
	var mu sync.Mutex

	queue.Enqueue(PendingAction{
		Op: func(ctx context.Context) (any, error) {
			return nil, fmt.Errorf("store unavailable")
		},
		OnError: func(err error) {
			mu.Lock()
			errSeen = err
			mu.Unlock()
		},
		ErrorMessage: "Failed to update",
	})
	queue.Enqueue(PendingAction{
		Op: func(ctx context.Context) (any, error) {
			mu.Lock()
			succeeded = true
			mu.Unlock()
			return nil, nil
		},
		SuccessMessage: "Updated",
	})

	require.Eventually(t, func() bool {
		return queue.Len() == 0
	}, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Error(t, errSeen)
	assert.True(t, succeeded)

	messages := []string{}
	for _, n := range notifier.Active() {
		messages = append(messages, n.Message)
	}
	assert.Equal(t, []string{"Failed to update", "Updated"}, messages)
}

func TestQueueDefaultErrorMessage(t *testing.T) {
	notifier := NewNotifier()
	notifier.SetDisplayWindow(time.Minute)
	queue := NewQueue(notifier)
	defer queue.Stop()

	queue.Enqueue(PendingAction{
		Op: func(ctx context.Context) (any, error) {
			return nil, fmt.Errorf("boom")
		},
	})

	require.Eventually(t, func() bool {
		active := notifier.Active()
		return len(active) == 1 && active[0].Message == "Action failed" && active[0].Kind == NotifyError
	}, 2*time.Second, 5*time.Millisecond)
}

func TestQueueStopDiscardsPending(t *testing.T) {
	queue := NewQueue(nil)

	started := make(chan struct{})
	release := make(chan struct{})
	var ran bool
	var mu sync.Mutex

	queue.Enqueue(PendingAction{
		Op: func(ctx context.Context) (any, error) {
			close(started)
			<-release
			return nil, nil
		},
	})
	queue.Enqueue(PendingAction{
		Op: func(ctx context.Context) (any, error) {
			mu.Lock()
			ran = true
			mu.Unlock()
			return nil, nil
		},
	})

	<-started
	go func() {
		time.Sleep(10 * time.Millisecond)
		close(release)
	}()
	queue.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.False(t, ran)
}
