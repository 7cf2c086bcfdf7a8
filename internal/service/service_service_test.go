package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/barterbridge/backend/internal/model"
	"github.com/barterbridge/backend/internal/repository"
)

func newServiceService(env *testEnv) ServiceService {
	return NewServiceService(
		repository.NewServiceRepository(env.db),
		repository.NewReviewRepository(env.db),
		repository.NewMembershipRepository(env.db),
	)
}

func TestServiceCreateRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := newServiceService(env)

	require.NoError(t, env.db.Create(&model.User{UID: "uid-staff", Username: "uid-staff"}).Error)
	require.NoError(t, env.db.Create(&model.CompanyMember{
		ID:        uuid.New(),
		CompanyID: env.companyA,
		UserUID:   "uid-staff",
		IsAdmin:   false,
	}).Error)

	in := ServiceInput{Title: "Copywriting", DurationHours: 8, Active: true}
	_, err := svc.Create(ctx, Actor{UID: "uid-staff", CompanyID: env.companyA}, in)
	require.ErrorIs(t, err, ErrForbidden)

	created, err := svc.Create(ctx, env.actorA, in)
	require.NoError(t, err)
	require.Equal(t, env.companyA, created.CompanyID)
	require.Equal(t, "Copywriting", created.Title)
}

func TestServiceUpdateGuards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := newServiceService(env)

	in := ServiceInput{Title: "SEO audit v2", DurationHours: 12, Active: true}

	// admin of a different company cannot edit
	_, err := svc.Update(ctx, env.actorB, env.serviceA1, in)
	require.ErrorIs(t, err, ErrForbidden)

	updated, err := svc.Update(ctx, env.actorA, env.serviceA1, in)
	require.NoError(t, err)
	require.Equal(t, "SEO audit v2", updated.Title)
	require.Equal(t, 12.0, updated.DurationHours)
}

func TestServiceUpdateBlockedWhileNegotiating(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := newServiceService(env)
	env.createMatch(t)

	_, err := svc.Update(ctx, env.actorA, env.serviceA1, ServiceInput{Title: "x", DurationHours: 1, Active: true})
	require.ErrorIs(t, err, ErrServiceInUse)
}

func TestServiceListFiltersAndPages(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := newServiceService(env)

	tagged := model.Service{
		ID:            uuid.New(),
		CompanyID:     env.companyA,
		Title:         "Brand workshop",
		Category:      "design,branding",
		DurationHours: 6,
		Active:        true,
	}
	require.NoError(t, env.db.Create(&tagged).Error)
	inactive := model.Service{
		ID:            uuid.New(),
		CompanyID:     env.companyA,
		Title:         "Retired offering",
		DurationHours: 6,
		Active:        false,
	}
	require.NoError(t, env.db.Create(&inactive).Error)

	list, total, err := svc.List(ctx, "branding", 20, 0)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Len(t, list, 1)
	require.Equal(t, tagged.ID, list[0].ID)

	_, total, err = svc.List(ctx, "", 20, 0)
	require.NoError(t, err)
	require.EqualValues(t, 5, total) // 4 fixture services + tagged, inactive excluded

	page, _, err := svc.List(ctx, "", 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
}

func TestServiceDetailAggregatesReviews(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := newServiceService(env)
	deal := completedDeal(t, env)

	for i, a := range []Actor{env.actorA, env.actorB} {
		_, err := env.reviews.WriteReview(ctx, a, deal.ID, 4+i, "")
		require.NoError(t, err)
	}
	// a second completed deal adds another rating for the promo video
	second := &model.DealProposal{
		ID:            uuid.New(),
		FromCompanyID: env.companyA,
		ToCompanyID:   env.companyB,
		FromServiceID: env.serviceB1,
		ToServiceID:   env.serviceA2,
		Status:        model.ProposalStatusPending,
		CreatedAt:     time.Now().UTC(),
	}
	require.NoError(t, env.proposalRepo.Create(ctx, second))
	deal2, err := env.flow.AcceptProposal(ctx, env.actorB, second.ID)
	require.NoError(t, err)
	_, err = env.flow.MarkDelivered(ctx, env.actorA, deal2.ID)
	require.NoError(t, err)
	_, err = env.flow.MarkDelivered(ctx, env.actorB, deal2.ID)
	require.NoError(t, err)
	_, err = env.reviews.WriteReview(ctx, env.actorA, deal2.ID, 2, "late delivery")
	require.NoError(t, err)

	detail, err := svc.Get(ctx, env.serviceB1)
	require.NoError(t, err)
	require.Len(t, detail.Reviews, 2)
	require.InDelta(t, 3.0, detail.AvgRating, 1e-9) // (4+2)/2

	_, err = svc.Get(ctx, uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}
