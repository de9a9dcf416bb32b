package scheduler_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/splitsignal/splitsignal/internal/engine"
	"github.com/splitsignal/splitsignal/internal/scheduler"
	"github.com/splitsignal/splitsignal/internal/store"
)

func setupStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedTest(t *testing.T, s *store.SQLiteStore, impressionsA, engagementsA, impressionsB, engagementsB int) *store.Test {
	t.Helper()
	ctx := context.Background()

	test := &store.Test{
		UserID:              "u1",
		Name:                "seeded",
		Platform:            "twitter",
		AutoCompleteEnabled: true,
		MinimumSampleSize:   100,
		ConfidenceThreshold: 95,
	}
	variants := []store.Variant{
		{Label: "A", Content: "variant a"},
		{Label: "B", Content: "variant b"},
	}
	created, err := s.CreateTest(ctx, test, variants)
	require.NoError(t, err)
	require.NoError(t, s.StartTest(ctx, created.ID))

	stored, err := s.VariantsForTest(ctx, created.ID)
	require.NoError(t, err)
	require.NoError(t, s.UpdateVariantMetrics(ctx, stored[0].ID,
		store.VariantMetrics{Impressions: impressionsA, Engagements: engagementsA}))
	require.NoError(t, s.UpdateVariantMetrics(ctx, stored[1].ID,
		store.VariantMetrics{Impressions: impressionsB, Engagements: engagementsB}))

	return created
}

func testPolicy() engine.Policy {
	return engine.Policy{AutoCompleteEnabled: true, MinimumSampleSize: 100, ConfidenceThreshold: 95}
}

func TestSweep_CompletesReadyTest(t *testing.T) {
	s := setupStore(t)
	ready := seedTest(t, s, 500, 200, 500, 100)

	sched := scheduler.New(s, testPolicy(), time.Minute, zap.NewNop(),
		scheduler.WithClock(func() time.Time { return time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC) }))

	sched.Sweep(context.Background())

	got, err := s.GetTest(context.Background(), ready.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, got.Status)
	require.NotNil(t, got.WinningVariantID)
	require.NotNil(t, got.ConfidenceLevel)
	assert.GreaterOrEqual(t, *got.ConfidenceLevel, 95.0)
}

func TestSweep_LeavesUnreadyTestAlone(t *testing.T) {
	s := setupStore(t)
	notReady := seedTest(t, s, 100, 11, 100, 10)

	sched := scheduler.New(s, testPolicy(), time.Minute, zap.NewNop())
	sched.Sweep(context.Background())

	got, err := s.GetTest(context.Background(), notReady.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusActive, got.Status)
	assert.Nil(t, got.WinningVariantID)
}

func TestSweep_Idempotent(t *testing.T) {
	s := setupStore(t)
	ready := seedTest(t, s, 500, 200, 500, 100)

	sched := scheduler.New(s, testPolicy(), time.Minute, zap.NewNop())
	sched.Sweep(context.Background())
	sched.Sweep(context.Background())

	got, err := s.GetTest(context.Background(), ready.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, got.Status)
}

func TestRun_StopsOnCancel(t *testing.T) {
	s := setupStore(t)

	sched := scheduler.New(s, testPolicy(), 10*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := sched.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSweep_FallsBackToDefaultPolicy(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	// A test created without explicit thresholds relies on the
	// scheduler's defaults.
	test := &store.Test{UserID: "u1", Name: "no-policy", Platform: "twitter", AutoCompleteEnabled: true}
	created, err := s.CreateTest(ctx, test, []store.Variant{
		{Label: "A", Content: "a"},
		{Label: "B", Content: "b"},
	})
	require.NoError(t, err)
	require.NoError(t, s.StartTest(ctx, created.ID))

	stored, err := s.VariantsForTest(ctx, created.ID)
	require.NoError(t, err)
	require.NoError(t, s.UpdateVariantMetrics(ctx, stored[0].ID, store.VariantMetrics{Impressions: 500, Engagements: 200}))
	require.NoError(t, s.UpdateVariantMetrics(ctx, stored[1].ID, store.VariantMetrics{Impressions: 500, Engagements: 100}))

	sched := scheduler.New(s, testPolicy(), time.Minute, zap.NewNop())
	sched.Sweep(ctx)

	got, err := s.GetTest(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, got.Status)
}
