package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/barterbridge/backend/internal/fairness"
	"github.com/barterbridge/backend/internal/repository"
)

func newFairnessService(env *testEnv) FairnessService {
	return NewFairnessService(
		repository.NewFairnessRepository(env.db),
		repository.NewServiceRepository(env.db),
		repository.NewViewEventRepository(env.db),
		zap.NewNop(),
	)
}

// Mirrors the product walkthrough: a short low-interest service requested
// against a long, in-demand one should read as the return being worth more.
func TestCompareAcrossDemandAndEffort(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := newFairnessService(env)

	for i := 0; i < 5; i++ {
		svc.RecordView(ctx, env.serviceB1)
	}
	for i := 0; i < 2; i++ {
		_, err := env.requests.Create(ctx, env.actorA, env.serviceB1, 14)
		require.NoError(t, err)
	}

	report, err := svc.Compare(ctx, env.serviceA1, env.serviceB1)
	require.NoError(t, err)
	require.NotNil(t, report)
	require.Greater(t, report.Return.Components.Demand, report.Requested.Components.Demand)
	require.Greater(t, report.Return.Components.Effort, report.Requested.Components.Effort)
	require.NotNil(t, report.Ratio)
	require.Greater(t, *report.Ratio, 1.1)
	require.Equal(t, fairness.LabelReturnHigher, report.Label)
}

func TestCompareUnknownService(t *testing.T) {
	env := newTestEnv(t)
	svc := newFairnessService(env)

	_, err := svc.Compare(context.Background(), env.serviceA1, uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSnapshotCountsOnlyActiveRequests(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	repo := repository.NewFairnessRepository(env.db)

	req, err := env.requests.Create(ctx, env.actorA, env.serviceB1, 14)
	require.NoError(t, err)
	require.NoError(t, env.flow.DeclineRequest(ctx, env.actorB, req.ID))
	_, err = env.requests.Create(ctx, env.actorA, env.serviceB1, 14)
	require.NoError(t, err)

	snap, err := repo.BuildSnapshot(ctx)
	require.NoError(t, err)
	for _, s := range snap.Services {
		if s.ID == env.serviceB1 {
			require.Equal(t, 1, s.OpenRequests)
			return
		}
	}
	t.Fatal("service missing from snapshot")
}

func TestSnapshotCompletedDealsAndRatings(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	repo := repository.NewFairnessRepository(env.db)
	deal := completedDeal(t, env)

	_, err := env.reviews.WriteReview(ctx, env.actorA, deal.ID, 5, "")
	require.NoError(t, err)

	snap, err := repo.BuildSnapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, snap.CompanyCompleted[env.companyA])
	require.Equal(t, 1, snap.CompanyCompleted[env.companyB])
	require.InDelta(t, 5.0, snap.CompanyAvgRating[env.companyB], 1e-9)
	require.Equal(t, fairness.ReviewStat{Avg: 5, Count: 1}, snap.ServiceReviews[env.serviceB1])
}

func TestSnapshotMatchedReturnSignal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	repo := repository.NewFairnessRepository(env.db)
	env.createMatch(t)

	snap, err := repo.BuildSnapshot(ctx)
	require.NoError(t, err)
	for _, s := range snap.Services {
		if s.ID == env.serviceA1 {
			require.Equal(t, 1, s.ChosenAsReturn)
			return
		}
	}
	t.Fatal("service missing from snapshot")
}

func TestRecordViewFeedsDemand(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := newFairnessService(env)
	repo := repository.NewFairnessRepository(env.db)

	svc.RecordView(ctx, env.serviceA2)
	svc.RecordView(ctx, env.serviceA2)

	snap, err := repo.BuildSnapshot(ctx)
	require.NoError(t, err)
	for _, s := range snap.Services {
		if s.ID == env.serviceA2 {
			require.Equal(t, 2, s.Views)
			return
		}
	}
	t.Fatal("service missing from snapshot")
}
