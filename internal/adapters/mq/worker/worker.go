// Package worker drains queued feedback jobs into the learner.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/vibe/internal/adapters/mq/queue"
	"github.com/okian/vibe/pkg/logger"
	"github.com/okian/vibe/pkg/metrics"
)

// Processor applies one feedback job.
type Processor interface {
	Process(ctx context.Context, j queue.Job) error
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, j queue.Job) error

// Process implements Processor.
func (f ProcessorFunc) Process(ctx context.Context, j queue.Job) error { return f(ctx, j) }

// Source is the receive side workers consume.
type Source interface {
	Dequeue() <-chan queue.Job
	Close() error
}

// Pool runs a fixed number of workers over one Source. Workers exit once the
// source is closed and drained, or when the run context is cancelled.
type Pool struct {
	source    Source
	processor Processor
	count     int
	name      string
	logger    logger.Logger

	wg    sync.WaitGroup
	mu    sync.Mutex
	stats map[string]int64 // worker name -> applied jobs
}

// NewPool creates a pool of count workers; count < 1 selects runtime.NumCPU().
func NewPool(count int, source Source, processor Processor, opts ...Option) *Pool {
	if count < 1 {
		count = runtime.NumCPU()
	}
	p := &Pool{
		source:    source,
		processor: processor,
		count:     count,
		name:      "worker",
		logger:    logger.Nop(),
		stats:     make(map[string]int64, count),
	}
	for _, opt := range opts {
		opt(p)
	}
	metrics.UpdateWorkerCount(count)
	return p
}

// Start launches the workers.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.count; i++ {
		name := p.name + "-" + strconv.Itoa(i)
		p.wg.Add(1)
		go p.run(ctx, name)
	}
}

func (p *Pool) run(ctx context.Context, name string) {
	defer p.wg.Done()
	log := p.logger.Named(name)
	jobs := p.source.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			metrics.RecordQueueDequeue()
			start := time.Now()
			err := p.processor.Process(ctx, j)
			metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
			if err != nil {
				metrics.RecordWorkerError()
				metrics.RecordErrorByComponent("worker", "process")
				log.Error(ctx, "feedback job failed",
					logger.String("event_id", j.EventID),
					logger.String("user_id", j.UserID),
					logger.Error(err))
				continue
			}
			p.mu.Lock()
			p.stats[name]++
			p.mu.Unlock()
		}
	}
}

// Processed returns the number of successfully applied jobs.
func (p *Pool) Processed() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	var n int64
	for _, c := range p.stats {
		n += c
	}
	return n
}

// Size returns the number of workers.
func (p *Pool) Size() int { return p.count }

// Shutdown closes the source and waits for workers to drain what is queued.
func (p *Pool) Shutdown(ctx context.Context) error {
	if err := p.source.Close(); err != nil {
		p.logger.Error(ctx, "error closing queue", logger.Error(err))
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		p.logger.Warn(ctx, "worker shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}
