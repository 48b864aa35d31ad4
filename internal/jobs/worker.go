package jobs

import (
	"context"
	"log"
	"time"
)

// Runner is one unit of periodic background work.
type Runner interface {
	RunOnce(ctx context.Context) error
}

// Worker drives a Runner on a fixed interval until stopped.
type Worker struct {
	runner   Runner
	interval time.Duration
	stopChan chan struct{}
	doneChan chan struct{}
}

func NewWorker(runner Runner, interval time.Duration) *Worker {
	return &Worker{
		runner:   runner,
		interval: interval,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start runs the loop until Stop is called or ctx is cancelled. The first
// pass runs immediately so a fresh deployment does not wait a full interval
// before backfilling.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	defer close(w.doneChan)

	log.Printf("worker started (interval %v)", w.interval)

	w.runPass(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("worker stopped: context cancelled")
			return
		case <-w.stopChan:
			log.Println("worker stopped")
			return
		case <-ticker.C:
			w.runPass(ctx)
		}
	}
}

func (w *Worker) runPass(ctx context.Context) {
	if err := w.runner.RunOnce(ctx); err != nil {
		log.Printf("worker pass failed: %v", err)
	}
}

// Stop signals the loop to exit and waits for the current pass to finish.
func (w *Worker) Stop() {
	close(w.stopChan)
	<-w.doneChan
}
