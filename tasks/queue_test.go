package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryQueueRoundTrip(t *testing.T) {
	q := NewMemoryQueue(4)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, TaskPaymentConfirmationEmail, "pay-1"))
	assert.Equal(t, 1, q.Len())

	deliveries, err := q.Receive(ctx)
	require.NoError(t, err)
	require.Len(t, deliveries, 1)

	assert.Equal(t, TaskPaymentConfirmationEmail, deliveries[0].Message.Task)
	assert.Equal(t, []string{"pay-1"}, deliveries[0].Message.Args)
	assert.Equal(t, 0, q.Len())
}

func TestMemoryQueueFull(t *testing.T) {
	q := NewMemoryQueue(1)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, TaskBookingConfirmationEmail, "B1"))
	err := q.Enqueue(ctx, TaskBookingConfirmationEmail, "B2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "full")
}

func TestMemoryQueueNackRequeues(t *testing.T) {
	q := NewMemoryQueue(4)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, TaskPaymentFailedEmail, "pay-9"))

	deliveries, err := q.Receive(ctx)
	require.NoError(t, err)
	require.Len(t, deliveries, 1)
	require.NoError(t, deliveries[0].Nack(ctx))

	deliveries, err = q.Receive(ctx)
	require.NoError(t, err)
	require.Len(t, deliveries, 1)
	assert.Equal(t, []string{"pay-9"}, deliveries[0].Message.Args)
}

func TestMemoryQueueReceiveHonorsContext(t *testing.T) {
	q := NewMemoryQueue(1)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := q.Receive(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWorkerDispatchesToHandler(t *testing.T) {
	q := NewMemoryQueue(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan []string, 1)
	w := NewWorker(q)
	w.Handle(TaskPaymentConfirmationEmail, func(ctx context.Context, args []string) error {
		got <- args
		return nil
	})
	go w.Run(ctx)

	require.NoError(t, q.Enqueue(ctx, TaskPaymentConfirmationEmail, "pay-1"))

	select {
	case args := <-got:
		assert.Equal(t, []string{"pay-1"}, args)
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not invoked")
	}
}

func TestWorkerRedeliversAfterHandlerError(t *testing.T) {
	q := NewMemoryQueue(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	attempts := make(chan int, 4)
	calls := 0
	w := NewWorker(q)
	w.Handle(TaskPaymentFailedEmail, func(ctx context.Context, args []string) error {
		calls++
		attempts <- calls
		if calls == 1 {
			return errors.New("smtp unavailable")
		}
		return nil
	})
	go w.Run(ctx)

	require.NoError(t, q.Enqueue(ctx, TaskPaymentFailedEmail, "pay-2"))

	deadline := time.After(2 * time.Second)
	for i := 0; i < 2; i++ {
		select {
		case <-attempts:
		case <-deadline:
			t.Fatalf("expected 2 attempts, saw %d", i)
		}
	}
}

func TestWorkerDropsUnknownTask(t *testing.T) {
	q := NewMemoryQueue(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handled := make(chan struct{}, 1)
	w := NewWorker(q)
	w.Handle(TaskBookingConfirmationEmail, func(ctx context.Context, args []string) error {
		handled <- struct{}{}
		return nil
	})
	go w.Run(ctx)

	// An unrecognized task is dropped; the next message still gets through.
	require.NoError(t, q.Enqueue(ctx, "migrate_legacy_records"))
	require.NoError(t, q.Enqueue(ctx, TaskBookingConfirmationEmail, "B1"))

	select {
	case <-handled:
	case <-time.After(2 * time.Second):
		t.Fatal("known task was not handled")
	}
	assert.Equal(t, 0, q.Len())
}
