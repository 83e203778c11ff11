// Package tasks provides asynchronous, at-least-once background task
// dispatch for email notifications, decoupled from the HTTP request cycle.
package tasks

import (
	"context"
	"errors"
)

// Task names. Enqueued by the HTTP layer, executed by the worker.
const (
	TaskPaymentConfirmationEmail = "send_payment_confirmation_email"
	TaskPaymentFailedEmail       = "send_payment_failed_email"
	TaskBookingConfirmationEmail = "send_booking_confirmation_email"
)

// Message is one queued task invocation
type Message struct {
	Task string   `json:"task"`
	Args []string `json:"args"`
}

// Queue enqueues tasks for eventual execution. Enqueue returns immediately;
// delivery is at-least-once and may duplicate.
type Queue interface {
	Enqueue(ctx context.Context, task string, args ...string) error
}

// Delivery is one received message plus its acknowledgement hooks. Ack
// removes the message; Nack makes it eligible for redelivery.
type Delivery struct {
	Message Message
	Ack     func(ctx context.Context) error
	Nack    func(ctx context.Context) error
}

// Source is the consuming side of a queue
type Source interface {
	Receive(ctx context.Context) ([]Delivery, error)
}

// MemoryQueue is a process-local queue backed by a buffered channel. Used in
// development and tests; production uses the SQS queue.
type MemoryQueue struct {
	ch chan Message
}

// NewMemoryQueue creates an in-memory queue with the given capacity
func NewMemoryQueue(size int) *MemoryQueue {
	return &MemoryQueue{ch: make(chan Message, size)}
}

// Enqueue adds a message to the queue without blocking
func (q *MemoryQueue) Enqueue(ctx context.Context, task string, args ...string) error {
	select {
	case q.ch <- Message{Task: task, Args: args}:
		return nil
	default:
		return errors.New("task queue is full")
	}
}

// Receive blocks until a message is available or the context is cancelled
func (q *MemoryQueue) Receive(ctx context.Context) ([]Delivery, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case msg := <-q.ch:
		return []Delivery{{
			Message: msg,
			Ack:     func(context.Context) error { return nil },
			// Re-enqueue on failure so the message is not lost.
			Nack: func(ctx context.Context) error {
				return q.Enqueue(ctx, msg.Task, msg.Args...)
			},
		}}, nil
	}
}

// Len reports the number of queued messages
func (q *MemoryQueue) Len() int {
	return len(q.ch)
}
