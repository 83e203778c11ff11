package tasks

import (
	"context"
	"log"
)

// Handler executes one task invocation. Returning an error leaves the
// message queued for redelivery.
type Handler func(ctx context.Context, args []string) error

// Worker drains a Source and dispatches messages to registered handlers.
// A message is acknowledged only after its handler returns nil, so every
// task runs at least once.
type Worker struct {
	source   Source
	handlers map[string]Handler
}

// NewWorker creates a worker over the given source
func NewWorker(source Source) *Worker {
	return &Worker{
		source:   source,
		handlers: make(map[string]Handler),
	}
}

// Handle registers a handler for a task name
func (w *Worker) Handle(task string, h Handler) {
	w.handlers[task] = h
}

// Run consumes messages until the context is cancelled
func (w *Worker) Run(ctx context.Context) {
	log.Println("[tasks] worker started")
	for {
		deliveries, err := w.source.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Println("[tasks] worker stopped")
				return
			}
			log.Printf("[tasks] receive error: %v", err)
			continue
		}
		for _, d := range deliveries {
			w.process(ctx, d)
		}
	}
}

func (w *Worker) process(ctx context.Context, d Delivery) {
	h, ok := w.handlers[d.Message.Task]
	if !ok {
		// Unknown task; drop it so it does not poison the queue.
		log.Printf("[tasks] no handler for task %q, dropping", d.Message.Task)
		if err := d.Ack(ctx); err != nil {
			log.Printf("[tasks] ack error: %v", err)
		}
		return
	}

	if err := h(ctx, d.Message.Args); err != nil {
		log.Printf("[tasks] %s failed: %v", d.Message.Task, err)
		if err := d.Nack(ctx); err != nil {
			log.Printf("[tasks] nack error: %v", err)
		}
		return
	}

	if err := d.Ack(ctx); err != nil {
		log.Printf("[tasks] ack error: %v", err)
	}
}
