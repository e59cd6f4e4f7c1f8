// Package service wires the fusion aligner, preference store, scoring engine
// and feedback learner into the operations served by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/vibe/internal/adapters/catalog"
	"github.com/okian/vibe/internal/adapters/classifier"
	eventqueue "github.com/okian/vibe/internal/adapters/mq/queue"
	workerpool "github.com/okian/vibe/internal/adapters/mq/worker"
	"github.com/okian/vibe/internal/adapters/repository"
	"github.com/okian/vibe/internal/config"
	"github.com/okian/vibe/internal/domain/dedupe"
	"github.com/okian/vibe/internal/domain/fusion"
	"github.com/okian/vibe/internal/domain/learner"
	"github.com/okian/vibe/internal/domain/model"
	"github.com/okian/vibe/internal/domain/scoring"
	"github.com/okian/vibe/pkg/logger"
	"github.com/okian/vibe/pkg/metrics"
)

// Service implements the API dependencies for the recommender.
type Service struct {
	mu sync.RWMutex

	cfg *config.Config

	// Core components, built by Start.
	backend    repository.Backend
	store      *repository.ProfileStore
	aligner    *fusion.Aligner
	engine     *scoring.Engine
	learner    *learner.Learner
	classifier *classifier.Rules
	catalog    *catalog.InMemory
	deduper    dedupe.Deduper
	queue      eventqueue.Queue
	pool       *workerpool.Pool

	workerCount int
	queueSize   int
	dedupeSize  int
	rand        scoring.RandSource
	now         func() time.Time

	started atomic.Bool
	cancel  context.CancelFunc

	logger logger.Logger
}

// New constructs a Service. Nothing is opened until Start.
func New(opts ...Option) *Service {
	s := &Service{
		cfg: config.New(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.workerCount == 0 {
		s.workerCount = s.cfg.Ingest.WorkerCount
	}
	if s.queueSize == 0 {
		s.queueSize = s.cfg.Ingest.QueueSize
	}
	if s.dedupeSize == 0 {
		s.dedupeSize = s.cfg.Ingest.DedupeSize
	}
	return s
}

// Start opens the store, loads persisted profiles and starts the feedback
// workers. A load failure is logged and the service starts empty.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started.Load() {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.logger.Info(ctx, "starting recommender service...")

	loc, err := s.cfg.Location()
	if err != nil {
		return err
	}

	if s.backend == nil {
		b, err := repository.Open(s.cfg.Store.Backend, s.cfg.Store.Path)
		switch {
		case errors.Is(err, repository.ErrUnknownBackend):
			return fmt.Errorf("open store: %w", err)
		case err != nil:
			// Serve from memory; every persist reports the outage.
			s.logger.Warn(ctx, "store unavailable; profiles will not be persisted",
				logger.String("backend", s.cfg.Store.Backend),
				logger.String("path", s.cfg.Store.Path),
				logger.Error(err))
			b = repository.NewUnavailableBackend(err)
		}
		s.backend = b
	}

	// Background work outlives the request that started the service.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	s.store = repository.NewProfileStore(runCtx, s.backend,
		repository.WithDefaultEpsilon(s.cfg.Learner.DefaultEpsilon),
		repository.WithLogger(s.logger.Named("store")),
	)
	if err := s.store.Load(ctx); err != nil {
		s.logger.Warn(ctx, "starting with empty profile set", logger.Error(err))
	}

	s.aligner = fusion.New(
		fusion.WithTolerance(s.cfg.Fusion.Tolerance),
		fusion.WithDefaultGestureConfidence(s.cfg.Fusion.DefaultGestureConfidence),
		fusion.WithDefaultContextConfidence(s.cfg.Fusion.DefaultContextConfidence),
		fusion.WithLogger(s.logger.Named("fusion")),
	)

	engineOpts := []scoring.Option{
		scoring.WithPriorWeight(s.cfg.Scoring.PriorWeight),
		scoring.WithCooldownPenalty(s.cfg.Scoring.CooldownPenalty),
		scoring.WithExploreBonus(s.cfg.Scoring.ExploreBonus),
		scoring.WithExplorePoolSize(s.cfg.Scoring.ExplorePoolSize),
		scoring.WithDefaultTopN(s.cfg.Scoring.DefaultTopN),
		scoring.WithLocation(loc),
	}
	if s.rand != nil {
		engineOpts = append(engineOpts, scoring.WithRandSource(s.rand))
	}
	s.engine = scoring.NewEngine(TablesFromConfig(s.cfg), engineOpts...)

	s.learner = learner.New(
		learner.WithHalfLife(s.cfg.Learner.HalfLife),
		learner.WithRates(s.cfg.Learner.LikeRate, s.cfg.Learner.SkipRate),
		learner.WithEmotionRates(s.cfg.Learner.EmotionLikeRate, s.cfg.Learner.EmotionSkipRate),
		learner.WithCooldown(s.cfg.Learner.Cooldown),
		learner.WithClock(s.now),
	)

	s.classifier = classifier.New(classifier.WithConfidence(s.cfg.Classifier.Confidence))
	s.catalog = CatalogFromConfig(s.cfg)

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue,
		workerpool.ProcessorFunc(s.processFeedback),
		workerpool.WithName("feedback"),
		workerpool.WithLogger(s.logger.Named("worker")),
	)
	s.pool.Start(runCtx)

	s.started.Store(true)
	s.logger.Info(ctx, "recommender service started",
		logger.String("backend", s.cfg.Store.Backend),
		logger.Int("profiles", s.store.Count(ctx)),
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop drains queued feedback, writes a final snapshot and closes the store.
// It is a no-op on a service that is not running.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started.Load() {
		return nil
	}
	s.started.Store(false)
	s.logger.Info(ctx, "stopping recommender service...")

	var errs []error
	if err := s.pool.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	s.cancel()

	if err := s.store.Save(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, err)
	}
	s.backend = nil

	err := errors.Join(errs...)
	if err != nil {
		s.logger.Error(ctx, "recommender service stopped with errors", logger.Error(err))
		return err
	}
	s.logger.Info(ctx, "recommender service stopped")
	return nil
}

// AlignAndFuse pairs each gesture with its nearest context event and fuses them.
func (s *Service) AlignAndFuse(ctx context.Context, gestures, contexts []model.Event) ([]model.FusedReading, error) {
	if !s.started.Load() {
		return nil, ErrNotStarted
	}
	readings := s.aligner.AlignAndFuse(ctx, gestures, contexts)
	for _, r := range readings {
		metrics.RecordFusion(string(fusion.ResolutionOf(r)))
	}
	return readings, nil
}

// Recommend ranks genres for req.UserID. Expired cooldowns pruned during
// scoring are persisted; a persistence failure is returned together with the
// computed result.
func (s *Service) Recommend(ctx context.Context, req scoring.Request) (scoring.Result, error) {
	if !s.started.Load() {
		return scoring.Result{}, ErrNotStarted
	}

	start := time.Now()
	var res scoring.Result
	err := s.store.Mutate(ctx, req.UserID, func(p *model.Profile) (bool, error) {
		res = s.engine.Recommend(p, req)
		return res.PrunedCooldowns > 0, nil
	})

	metrics.RecordRecommendation(float64(time.Since(start).Microseconds())/1000, len(res.Recommendations))
	if res.Explored {
		metrics.RecordExploration()
	}
	if res.FallbackEmotion {
		metrics.RecordFallbackEmotion()
	}
	if res.Penalized > 0 {
		metrics.RecordCooldownPenalty(res.Penalized)
	}
	if res.PrunedCooldowns > 0 {
		metrics.RecordCooldownPrunes(res.PrunedCooldowns)
	}
	if err != nil {
		s.logger.Error(ctx, "persisting pruned cooldowns failed",
			logger.String("user_id", req.UserID), logger.Error(err))
	}
	return res, err
}

// RecordFeedback applies fb synchronously. A repeated EventID is reported as
// a duplicate and not applied again. An EventID is generated when empty.
func (s *Service) RecordFeedback(ctx context.Context, fb model.Feedback) (bool, error) {
	if !s.started.Load() {
		return false, ErrNotStarted
	}
	return s.applyFeedback(ctx, fb)
}

// applyFeedback is shared by the sync path and the workers, which keep
// draining after Stop has flipped the started flag.
func (s *Service) applyFeedback(ctx context.Context, fb model.Feedback) (bool, error) {
	if fb.EventID == "" {
		fb.EventID = uuid.NewString()
	}
	if s.deduper.SeenAndRecord(ctx, fb.EventID) {
		metrics.RecordFeedbackDuplicate()
		s.logger.Debug(ctx, "duplicate feedback skipped", logger.String("event_id", fb.EventID))
		return true, nil
	}

	err := s.store.Mutate(ctx, fb.UserID, func(p *model.Profile) (bool, error) {
		u, err := s.learner.Apply(p, fb)
		if err != nil {
			return false, err
		}
		if u.GenreClamped {
			metrics.RecordClamp("genre")
		}
		if u.EmotionClamped {
			metrics.RecordClamp("emotion")
		}
		return true, nil
	})
	switch {
	case errors.Is(err, learner.ErrInvalidOutcome):
		// Nothing was applied; the id may be retried with a valid outcome.
		s.deduper.Unrecord(ctx, fb.EventID)
		metrics.RecordFeedbackError()
		return false, err
	case err != nil:
		// The in-memory update stands, so the id stays recorded.
		metrics.RecordFeedbackError()
		return false, err
	}

	metrics.RecordFeedback(string(fb.Outcome))
	return false, nil
}

// EnqueueFeedback hands fb to the worker pool. It returns false when the
// queue is full or closed.
func (s *Service) EnqueueFeedback(ctx context.Context, fb model.Feedback) bool {
	if !s.started.Load() {
		return false
	}
	if fb.EventID == "" {
		fb.EventID = uuid.NewString()
	}
	if err := s.queue.Enqueue(ctx, fb); err != nil {
		s.logger.Debug(ctx, "feedback rejected by queue",
			logger.String("event_id", fb.EventID), logger.Error(err))
		return false
	}
	return true
}

func (s *Service) processFeedback(ctx context.Context, fb model.Feedback) error {
	_, err := s.applyFeedback(ctx, fb)
	return err
}

// Profile returns a copy of the user's profile, creating a fresh one if unseen.
func (s *Service) Profile(ctx context.Context, userID string) (*model.Profile, error) {
	if !s.started.Load() {
		return nil, ErrNotStarted
	}
	return s.store.Get(ctx, userID), nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":     s.started.Load(),
		"backend":     s.cfg.Store.Backend,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
	}

	if s.started.Load() {
		profiles := s.store.Count(ctx)
		stats["queueLength"] = s.queue.Len()
		stats["profiles"] = profiles
		stats["processed"] = s.pool.Processed()
		stats["seenEvents"] = s.deduper.Size()

		metrics.UpdateProfilesTotal(profiles)
		metrics.UpdateWorkerCount(s.workerCount)
	}
	return stats
}
