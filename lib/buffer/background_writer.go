package buffer

import (
	"log"
	"time"

	"github.com/lintang-b-s/storagecore/lib/concurrent"
)

// flusher is satisfied by both BufferPoolManagerInstance and
// ParallelBufferPoolManager.
type flusher interface {
	FlushAllPages() error
}

// BackgroundWriter periodically flushes dirty pages so an eviction rarely
// has to pay for a synchronous write. It is purely a throughput
// optimization: correctness never depends on it running, since a fetch or
// eviction that needs a frame still flushes synchronously if the
// background writer hasn't gotten to it yet. Grounded in ppdb's
// bgwriter.go and dispatched onto the teacher's worker-queue pool.
type BackgroundWriter struct {
	target   flusher
	interval time.Duration
	queue    concurrent.WorkQueue
	stop     chan struct{}
	done     chan struct{}
}

// NewBackgroundWriter builds a writer that flushes target every interval
// once started. queue is the worker pool the flush job is dispatched onto;
// pass a queue sized for at least one concurrent job.
func NewBackgroundWriter(target flusher, interval time.Duration, queue concurrent.WorkQueue) *BackgroundWriter {
	return &BackgroundWriter{
		target:   target,
		interval: interval,
		queue:    queue,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the writer's timer loop on its own goroutine.
func (w *BackgroundWriter) Start() {
	go w.run()
}

func (w *BackgroundWriter) run() {
	defer close(w.done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			w.queue <- func() {
				if err := w.target.FlushAllPages(); err != nil {
					log.Printf("background writer: flush all pages: %v", err)
				}
			}
		}
	}
}

// Stop signals the timer loop to exit and waits for it to do so. Safe to
// call once.
func (w *BackgroundWriter) Stop() {
	close(w.stop)
	<-w.done
}
