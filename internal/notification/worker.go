package notification

import (
	"context"
	"log"
)

// WorkerPool fans notification processing out over a fixed set of worker
// goroutines. Jobs carry notification IDs; each worker runs the processor
// state machine in isolation.
type WorkerPool struct {
	size      int
	jobs      chan int64
	processor *Processor
}

// NewWorkerPool creates a new worker pool over the given processor.
func NewWorkerPool(size int, processor *Processor) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	return &WorkerPool{
		size:      size,
		jobs:      make(chan int64, size),
		processor: processor,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("notification worker %d started", id)
	for {
		select {
		case notificationID := <-wp.jobs:
			if err := wp.processor.Process(ctx, notificationID); err != nil {
				log.Printf("worker %d: notification %d: %v", id, notificationID, err)
			}
		case <-ctx.Done():
			log.Printf("notification worker %d shutting down", id)
			return
		}
	}
}

// Dispatch queues a notification for processing.
func (wp *WorkerPool) Dispatch(notificationID int64) {
	wp.jobs <- notificationID
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan int64 {
	return wp.jobs
}
