package loadgen

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/vibe/pkg/logger"
)

// ErrServiceUnhealthy is returned when the target does not answer /stats.
var ErrServiceUnhealthy = errors.New("service unhealthy")

const settlePoll = 200 * time.Millisecond

// Run executes a complete load run against cfg.BaseURL and returns its stats.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}
	log = log.Named("loadgen")
	stats := &Stats{StartTime: time.Now()}
	c := newClient(cfg.BaseURL, cfg.Timeout)

	log.Info(ctx, "starting load run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("users", cfg.Users),
		logger.Int("feedback", cfg.Feedback),
		logger.Int("infers", cfg.Infers),
		logger.Int("workers", cfg.Workers),
		logger.Int64("seed", cfg.Seed))

	before, err := c.stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServiceUnhealthy, err)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	gen := NewGenerator(seed, cfg.Users)
	now := time.Now().Unix()

	items := gen.Feedback(cfg.Feedback, now-int64(cfg.Feedback), cfg.LikeRatio)
	stats.FeedbackGenerated = len(items)
	submitFeedback(ctx, c, items, cfg, stats)

	runInfers(ctx, c, gen.Infers(cfg.Infers, now), cfg.Workers, stats)

	stats.Processed = waitProcessed(ctx, c, counter(before, "processed"), stats.FeedbackAccepted, cfg.Settle)

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	log.Info(ctx, "load run finished",
		logger.Int64("feedbackAccepted", stats.FeedbackAccepted),
		logger.Int64("feedbackRejected", stats.FeedbackRejected),
		logger.Int64("batchesFailed", stats.BatchesFailed),
		logger.Int64("infersOK", stats.InfersOK),
		logger.Int64("infersFailed", stats.InfersFailed),
		logger.Int64("processed", stats.Processed),
		logger.Duration("duration", stats.Duration))
	return stats, nil
}

// submitFeedback posts items in batches from a fixed set of workers.
func submitFeedback(ctx context.Context, c *client, items []FeedbackItem, cfg *Config, stats *Stats) {
	size := cfg.BatchSize
	if size <= 0 {
		size = 100
	}
	batches := make(chan []FeedbackItem)
	var wg sync.WaitGroup
	for w := 0; w < max(cfg.Workers, 1); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batch := range batches {
				var out batchResponse
				status, err := c.do(ctx, http.MethodPost, "/feedback/batch", map[string]any{"items": batch}, &out)
				switch {
				case err != nil:
					atomic.AddInt64(&stats.BatchesFailed, 1)
					atomic.AddInt64(&stats.FeedbackRejected, int64(len(batch)))
				case status == http.StatusAccepted, status == http.StatusTooManyRequests:
					atomic.AddInt64(&stats.FeedbackAccepted, int64(out.Accepted))
					atomic.AddInt64(&stats.FeedbackRejected, int64(len(batch)-out.Accepted))
				default:
					atomic.AddInt64(&stats.BatchesFailed, 1)
					atomic.AddInt64(&stats.FeedbackRejected, int64(len(batch)))
				}
			}
		}()
	}

send:
	for start := 0; start < len(items); start += size {
		select {
		case batches <- items[start:min(start+size, len(items))]:
		case <-ctx.Done():
			break send
		}
	}
	close(batches)
	wg.Wait()
}

func runInfers(ctx context.Context, c *client, calls []InferCall, workers int, stats *Stats) {
	jobs := make(chan InferCall)
	var wg sync.WaitGroup
	for w := 0; w < max(workers, 1); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for call := range jobs {
				status, err := c.do(ctx, http.MethodPost, "/infer", call, nil)
				if err != nil || status != http.StatusOK {
					atomic.AddInt64(&stats.InfersFailed, 1)
					continue
				}
				atomic.AddInt64(&stats.InfersOK, 1)
			}
		}()
	}
send:
	for _, call := range calls {
		select {
		case jobs <- call:
		case <-ctx.Done():
			break send
		}
	}
	close(jobs)
	wg.Wait()
}

// waitProcessed polls /stats until the worker pool has applied want more
// items than base, or until settle elapses. It returns how many were applied.
func waitProcessed(ctx context.Context, c *client, base, want int64, settle time.Duration) int64 {
	deadline := time.Now().Add(settle)
	var done int64
	for {
		if s, err := c.stats(ctx); err == nil {
			done = counter(s, "processed") - base
		}
		if done >= want || time.Now().After(deadline) {
			return done
		}
		select {
		case <-ctx.Done():
			return done
		case <-time.After(settlePoll):
		}
	}
}

// counter reads a numeric /stats field; JSON numbers decode as float64.
func counter(stats map[string]any, key string) int64 {
	if v, ok := stats[key].(float64); ok {
		return int64(v)
	}
	return 0
}
