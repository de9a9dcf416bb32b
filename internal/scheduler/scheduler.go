// Package scheduler periodically sweeps active tests and applies the
// auto-completion policy to each. It owns no global state: the store,
// default policy, interval, and clock are all injected.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/splitsignal/splitsignal/internal/engine"
	"github.com/splitsignal/splitsignal/internal/store"
)

// Scheduler runs the auto-completion sweep on a fixed interval.
type Scheduler struct {
	store         store.Store
	defaultPolicy engine.Policy
	interval      time.Duration
	now           func() time.Time
	logger        *zap.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock overrides the clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func New(st store.Store, defaultPolicy engine.Policy, interval time.Duration, logger *zap.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:         st,
		defaultPolicy: defaultPolicy,
		interval:      interval,
		now:           time.Now,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run sweeps immediately, then on every interval tick until ctx is
// cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one auto-completion pass over all active tests. Failures on
// individual tests are logged and do not stop the pass.
func (s *Scheduler) Sweep(ctx context.Context) {
	started := s.now()

	tests, err := s.store.ActiveTests(ctx)
	if err != nil {
		s.logger.Error("failed to list active tests", zap.Error(err))
		return
	}

	completed := 0
	for _, test := range tests {
		result, err := s.sweepOne(ctx, test)
		if err != nil {
			s.logger.Error("auto-completion failed",
				zap.String("test_id", test.ID),
				zap.Error(err))
			continue
		}

		if result.Completed {
			completed++
			s.logger.Info("test auto-completed",
				zap.String("test_id", test.ID),
				zap.String("winner", result.Winner),
				zap.Float64("confidence", result.Confidence))
		} else {
			s.logger.Debug("test not ready to complete",
				zap.String("test_id", test.ID),
				zap.String("reason", result.Reason))
		}
	}

	s.logger.Info("auto-completion sweep finished",
		zap.Int("active_tests", len(tests)),
		zap.Int("completed", completed),
		zap.Duration("took", s.now().Sub(started)))
}

func (s *Scheduler) sweepOne(ctx context.Context, test *store.Test) (engine.CompleteResult, error) {
	variants, err := s.store.VariantsForTest(ctx, test.ID)
	if err != nil {
		return engine.CompleteResult{}, err
	}

	policy := s.policyFor(test)
	return engine.AutoCompleteTest(ctx, s.store, test, variants, policy)
}

// policyFor merges the per-test policy with scheduler defaults: a test
// with no explicit thresholds falls back to the configured ones.
func (s *Scheduler) policyFor(test *store.Test) engine.Policy {
	policy := engine.PolicyForTest(test)
	if policy.MinimumSampleSize <= 0 {
		policy.MinimumSampleSize = s.defaultPolicy.MinimumSampleSize
	}
	if policy.ConfidenceThreshold <= 0 {
		policy.ConfidenceThreshold = s.defaultPolicy.ConfidenceThreshold
	}
	return policy
}
