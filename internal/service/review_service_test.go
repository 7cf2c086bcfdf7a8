package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/barterbridge/backend/internal/model"
)

// completedDeal accepts the base match and walks both parties through
// delivery so the deal is reviewable.
func completedDeal(t *testing.T, env *testEnv) *model.ActiveDeal {
	t.Helper()
	ctx := context.Background()
	base := env.createMatch(t)
	deal, err := env.flow.AcceptProposal(ctx, env.actorB, base.ID)
	require.NoError(t, err)
	_, err = env.flow.MarkDelivered(ctx, env.actorA, deal.ID)
	require.NoError(t, err)
	done, err := env.flow.MarkDelivered(ctx, env.actorB, deal.ID)
	require.NoError(t, err)
	require.Equal(t, model.DealStatusCompleted, done.Status)
	return done
}

func TestWriteReviewRequiresCompletion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	base := env.createMatch(t)
	deal, err := env.flow.AcceptProposal(ctx, env.actorB, base.ID)
	require.NoError(t, err)

	_, err = env.reviews.WriteReview(ctx, env.actorA, deal.ID, 5, "great")
	require.ErrorIs(t, err, ErrDealNotCompleted)

	var count int64
	require.NoError(t, env.db.Model(&model.Review{}).Count(&count).Error)
	require.EqualValues(t, 0, count)
}

func TestWriteReviewTargets(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	deal := completedDeal(t, env)

	// company A asked for B's promo video, so A reviews it
	rv, err := env.reviews.WriteReview(ctx, env.actorA, deal.ID, 4, "solid work")
	require.NoError(t, err)
	require.Equal(t, env.companyB, rv.ReviewedCompanyID)
	require.Equal(t, env.serviceB1, rv.ReviewedServiceID)
	require.Equal(t, 4, rv.Rating)
	require.NotNil(t, rv.Comment)

	// the counterparty reviews the return service independently
	rv, err = env.reviews.WriteReview(ctx, env.actorB, deal.ID, 5, "")
	require.NoError(t, err)
	require.Equal(t, env.companyA, rv.ReviewedCompanyID)
	require.Equal(t, env.serviceA1, rv.ReviewedServiceID)
	require.Nil(t, rv.Comment)

	list, err := env.reviews.ListByDeal(ctx, env.actorA, deal.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
}

func TestWriteReviewOncePerDeal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	deal := completedDeal(t, env)

	_, err := env.reviews.WriteReview(ctx, env.actorA, deal.ID, 4, "")
	require.NoError(t, err)
	_, err = env.reviews.WriteReview(ctx, env.actorA, deal.ID, 2, "changed my mind")
	require.ErrorIs(t, err, ErrAlreadyReviewed)

	var count int64
	require.NoError(t, env.db.Model(&model.Review{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestWriteReviewRatingRange(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	deal := completedDeal(t, env)

	for _, rating := range []int{0, -1, 6} {
		_, err := env.reviews.WriteReview(ctx, env.actorA, deal.ID, rating, "")
		require.ErrorIs(t, err, ErrInvalidRating)
	}
}

func TestWriteReviewGuards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	deal := completedDeal(t, env)

	_, err := env.reviews.WriteReview(ctx, env.actorA, uuid.New(), 5, "")
	require.ErrorIs(t, err, ErrNotFound)

	companyC := seedCompany(t, env.db, "Cedar Logistics", "uid-cedar")
	actorC := Actor{UID: "uid-cedar", CompanyID: companyC}
	_, err = env.reviews.WriteReview(ctx, actorC, deal.ID, 5, "")
	require.ErrorIs(t, err, ErrForbidden)
	_, err = env.reviews.ListByDeal(ctx, actorC, deal.ID)
	require.ErrorIs(t, err, ErrForbidden)
}
