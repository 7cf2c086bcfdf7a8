package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"

	"github.com/barterbridge/backend/internal/model"
	"github.com/barterbridge/backend/internal/repository"
)

type testEnv struct {
	db *gorm.DB

	flow     TradeflowService
	reviews  ReviewService
	requests TradeRequestService

	proposalRepo repository.ProposalRepository
	dealRepo     repository.DealRepository

	companyA, companyB uuid.UUID
	actorA, actorB     Actor
	// serviceA* owned by company A, serviceB* by company B
	serviceA1, serviceA2 uuid.UUID
	serviceB1, serviceB2 uuid.UUID
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: glogger.Default.LogMode(glogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&model.Company{},
		&model.User{},
		&model.CompanyMember{},
		&model.Service{},
		&model.ServiceViewEvent{},
		&model.TradeRequest{},
		&model.DealProposal{},
		&model.ActiveDeal{},
		&model.Review{},
		&model.TradeflowView{},
	))
	return db
}

func seedCompany(t *testing.T, db *gorm.DB, name, uid string) uuid.UUID {
	t.Helper()
	company := model.Company{ID: uuid.New(), Name: name}
	require.NoError(t, db.Create(&company).Error)
	require.NoError(t, db.Create(&model.User{UID: uid, Username: uid}).Error)
	require.NoError(t, db.Create(&model.CompanyMember{
		ID:        uuid.New(),
		CompanyID: company.ID,
		UserUID:   uid,
		IsAdmin:   true,
	}).Error)
	return company.ID
}

func seedService(t *testing.T, db *gorm.DB, companyID uuid.UUID, title string, hours float64) uuid.UUID {
	t.Helper()
	svc := model.Service{
		ID:            uuid.New(),
		CompanyID:     companyID,
		Title:         title,
		DurationHours: hours,
		Active:        true,
	}
	require.NoError(t, db.Create(&svc).Error)
	return svc.ID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)

	env := &testEnv{db: db}
	env.companyA = seedCompany(t, db, "Alder Consulting", "uid-alder")
	env.companyB = seedCompany(t, db, "Birch Media", "uid-birch")
	env.actorA = Actor{UID: "uid-alder", CompanyID: env.companyA}
	env.actorB = Actor{UID: "uid-birch", CompanyID: env.companyB}
	env.serviceA1 = seedService(t, db, env.companyA, "SEO audit", 10)
	env.serviceA2 = seedService(t, db, env.companyA, "Content strategy", 16)
	env.serviceB1 = seedService(t, db, env.companyB, "Promo video", 40)
	env.serviceB2 = seedService(t, db, env.companyB, "Podcast edit", 12)

	serviceRepo := repository.NewServiceRepository(db)
	requestRepo := repository.NewTradeRequestRepository(db)
	env.proposalRepo = repository.NewProposalRepository(db)
	env.dealRepo = repository.NewDealRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	memberRepo := repository.NewMembershipRepository(db)
	flowViewRepo := repository.NewTradeflowViewRepository(db)

	log := zap.NewNop()
	env.flow = NewTradeflowService(env.proposalRepo, requestRepo, serviceRepo, env.dealRepo, memberRepo, flowViewRepo, log)
	env.reviews = NewReviewService(reviewRepo, env.dealRepo, env.proposalRepo, memberRepo)
	env.requests = NewTradeRequestService(requestRepo, serviceRepo, memberRepo)
	return env
}

// createMatch inserts a matched proposal: company A asked for serviceB1 and
// company B put up serviceA1 as the return.
func (e *testEnv) createMatch(t *testing.T) *model.DealProposal {
	t.Helper()
	p := &model.DealProposal{
		ID:            uuid.New(),
		FromCompanyID: e.companyA,
		ToCompanyID:   e.companyB,
		FromServiceID: e.serviceB1,
		ToServiceID:   e.serviceA1,
		Status:        model.ProposalStatusMatched,
		CreatedAt:     time.Now().UTC(),
	}
	require.NoError(t, e.proposalRepo.Create(context.Background(), p))
	return p
}

func TestCreateTradeRequestValidity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req, err := env.requests.Create(ctx, env.actorA, env.serviceB1, 14)
	require.NoError(t, err)
	require.Equal(t, 14, req.ValidityDays)
	require.Equal(t, req.CreatedAt.AddDate(0, 0, 14), req.ExpiresAt)
	require.Equal(t, model.TradeRequestStatusActive, req.Status)

	// out-of-set validity is coerced to the default, not rejected
	coerced, err := env.requests.Create(ctx, env.actorA, env.serviceB2, 13)
	require.NoError(t, err)
	require.Equal(t, 14, coerced.ValidityDays)

	long, err := env.requests.Create(ctx, env.actorA, env.serviceB1, 90)
	require.NoError(t, err)
	require.Equal(t, 90, long.ValidityDays)
	require.Equal(t, long.CreatedAt.AddDate(0, 0, 90), long.ExpiresAt)
}

func TestCreateTradeRequestGuards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.requests.Create(ctx, env.actorA, env.serviceA1, 14)
	require.ErrorIs(t, err, ErrOwnService)

	_, err = env.requests.Create(ctx, env.actorA, uuid.New(), 14)
	require.ErrorIs(t, err, ErrNotFound)

	stranger := Actor{UID: "uid-stranger", CompanyID: env.companyA}
	_, err = env.requests.Create(ctx, stranger, env.serviceB1, 14)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestSelectReturnFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req, err := env.requests.Create(ctx, env.actorA, env.serviceB1, 14)
	require.NoError(t, err)

	incoming, err := env.flow.ListIncoming(ctx, env.actorB)
	require.NoError(t, err)
	require.Len(t, incoming, 1)
	require.Equal(t, req.ID, incoming[0].ID)

	// the return must be one of the requester's services
	_, err = env.flow.SelectReturn(ctx, env.actorB, req.ID, env.serviceB2)
	require.ErrorIs(t, err, ErrForbidden)

	p, err := env.flow.SelectReturn(ctx, env.actorB, req.ID, env.serviceA1)
	require.NoError(t, err)
	require.Equal(t, env.companyA, p.FromCompanyID)
	require.Equal(t, env.companyB, p.ToCompanyID)
	require.Equal(t, env.serviceB1, p.FromServiceID)
	require.Equal(t, env.serviceA1, p.ToServiceID)
	require.Equal(t, model.ProposalStatusMatched, p.Status)

	// selecting archives the request and closes it to further action
	incoming, err = env.flow.ListIncoming(ctx, env.actorB)
	require.NoError(t, err)
	require.Empty(t, incoming)

	archived, err := env.flow.ListArchived(ctx, env.actorA)
	require.NoError(t, err)
	require.Len(t, archived, 1)

	_, err = env.flow.SelectReturn(ctx, env.actorB, req.ID, env.serviceA1)
	require.ErrorIs(t, err, ErrAlreadyProcessed)
}

func TestDeclineRequest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req, err := env.requests.Create(ctx, env.actorA, env.serviceB1, 14)
	require.NoError(t, err)

	// only the company owning the requested service may decline
	require.ErrorIs(t, env.flow.DeclineRequest(ctx, env.actorA, req.ID), ErrForbidden)

	require.NoError(t, env.flow.DeclineRequest(ctx, env.actorB, req.ID))
	require.ErrorIs(t, env.flow.DeclineRequest(ctx, env.actorB, req.ID), ErrAlreadyProcessed)

	archived, err := env.flow.ListArchived(ctx, env.actorB)
	require.NoError(t, err)
	require.Len(t, archived, 1)
	require.NotNil(t, archived[0].ArchivedAt)
}

func TestSendOfferOrientationFlip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	base := env.createMatch(t)

	offer, err := env.flow.SendOffer(ctx, env.actorB, base.ID, "Let's swap", model.MoneyDirectionReceive, 150)
	require.NoError(t, err)
	require.Equal(t, model.ProposalStatusPending, offer.Status)
	// sender lands on the from side, services travel with their companies
	require.Equal(t, env.companyB, offer.FromCompanyID)
	require.Equal(t, env.companyA, offer.ToCompanyID)
	require.Equal(t, env.serviceA1, offer.FromServiceID)
	require.Equal(t, env.serviceB1, offer.ToServiceID)
	require.Equal(t, model.MoneyDirectionReceive, offer.MoneyDirection)
	require.Equal(t, 150, offer.MoneyAmount)

	got, err := env.flow.GetProposal(ctx, env.actorA, offer.ID)
	require.NoError(t, err)
	require.Equal(t, "Let's swap", got.Message)
	require.Equal(t, 150, got.Money.Amount)
	require.False(t, got.Money.IsZero())

	// no flip when the from side counters back
	counter, err := env.flow.SendOffer(ctx, env.actorA, offer.ID, "make it 100", model.MoneyDirectionGive, 100)
	require.NoError(t, err)
	require.Equal(t, env.companyA, counter.FromCompanyID)
	require.Equal(t, env.serviceB1, counter.FromServiceID)
}

func TestSendOfferDropsInvalidMoneyTerm(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	base := env.createMatch(t)

	offer, err := env.flow.SendOffer(ctx, env.actorB, base.ID, "no cash involved", model.MoneyDirection("steal"), 500)
	require.NoError(t, err)
	require.Equal(t, model.MoneyDirectionNone, offer.MoneyDirection)
	require.Equal(t, 0, offer.MoneyAmount)

	offer, err = env.flow.SendOffer(ctx, env.actorB, base.ID, "", model.MoneyDirectionGive, 0)
	require.NoError(t, err)
	require.Equal(t, model.MoneyDirectionNone, offer.MoneyDirection)
}

func TestLegacyMoneyTagDecodedOnRead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	msg := "[MONEY:receive:150] Let's swap"
	p := &model.DealProposal{
		ID:            uuid.New(),
		FromCompanyID: env.companyB,
		ToCompanyID:   env.companyA,
		FromServiceID: env.serviceA1,
		ToServiceID:   env.serviceB1,
		Status:        model.ProposalStatusPending,
		Message:       &msg,
		CreatedAt:     time.Now().UTC(),
	}
	require.NoError(t, env.proposalRepo.Create(ctx, p))

	got, err := env.flow.GetProposal(ctx, env.actorA, p.ID)
	require.NoError(t, err)
	require.Equal(t, "receive", string(got.Money.Direction))
	require.Equal(t, 150, got.Money.Amount)
	require.Equal(t, "Let's swap", got.Message)
}

func TestAcceptClosesThread(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	base := env.createMatch(t)

	offer, err := env.flow.SendOffer(ctx, env.actorB, base.ID, "deal?", model.MoneyDirectionNone, 0)
	require.NoError(t, err)

	// only the receiving side can sign
	_, err = env.flow.AcceptProposal(ctx, env.actorB, offer.ID)
	require.ErrorIs(t, err, ErrForbidden)

	deal, err := env.flow.AcceptProposal(ctx, env.actorA, offer.ID)
	require.NoError(t, err)
	require.Equal(t, offer.ID, deal.ProposalID)
	require.Equal(t, model.DealStatusInProgress, deal.Status)
	require.False(t, deal.FromCompanyCompleted)
	require.False(t, deal.ToCompanyCompleted)

	// the original match between the same companies is gone
	_, err = env.proposalRepo.FindByID(ctx, base.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// replaying the accept fails, and no second deal appears
	_, err = env.flow.AcceptProposal(ctx, env.actorA, offer.ID)
	require.ErrorIs(t, err, ErrAlreadyProcessed)

	var dealCount int64
	require.NoError(t, env.db.Model(&model.ActiveDeal{}).Count(&dealCount).Error)
	require.EqualValues(t, 1, dealCount)
}

func TestAcceptDeletesBothOrientations(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	base := env.createMatch(t)

	// a second open thread between the same pair, flipped orientation
	other := &model.DealProposal{
		ID:            uuid.New(),
		FromCompanyID: env.companyB,
		ToCompanyID:   env.companyA,
		FromServiceID: env.serviceA2,
		ToServiceID:   env.serviceB2,
		Status:        model.ProposalStatusPending,
		CreatedAt:     time.Now().UTC(),
	}
	require.NoError(t, env.proposalRepo.Create(ctx, other))

	_, err := env.flow.AcceptProposal(ctx, env.actorB, base.ID)
	require.NoError(t, err)

	_, err = env.proposalRepo.FindByID(ctx, other.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestDeclineProposal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	base := env.createMatch(t)

	offer, err := env.flow.SendOffer(ctx, env.actorB, base.ID, "", model.MoneyDirectionNone, 0)
	require.NoError(t, err)

	require.ErrorIs(t, env.flow.DeclineProposal(ctx, env.actorB, offer.ID), ErrForbidden)
	require.NoError(t, env.flow.DeclineProposal(ctx, env.actorA, offer.ID))

	// rejection is terminal for that proposal; the match survives
	_, err = env.flow.AcceptProposal(ctx, env.actorA, offer.ID)
	require.ErrorIs(t, err, ErrAlreadyProcessed)
	_, err = env.flow.SendOffer(ctx, env.actorA, offer.ID, "", model.MoneyDirectionNone, 0)
	require.ErrorIs(t, err, ErrAlreadyProcessed)

	still, err := env.proposalRepo.FindByID(ctx, base.ID)
	require.NoError(t, err)
	require.Equal(t, model.ProposalStatusMatched, still.Status)
}

func TestMarkDeliveredLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	base := env.createMatch(t)

	deal, err := env.flow.AcceptProposal(ctx, env.actorB, base.ID)
	require.NoError(t, err)

	// from side (company A) confirms first
	got, err := env.flow.MarkDelivered(ctx, env.actorA, deal.ID)
	require.NoError(t, err)
	require.True(t, got.FromCompanyCompleted)
	require.False(t, got.ToCompanyCompleted)
	require.Equal(t, model.DealStatusInProgress, got.Status)
	require.Nil(t, got.CompletedAt)

	// re-confirming is a no-op
	got, err = env.flow.MarkDelivered(ctx, env.actorA, deal.ID)
	require.NoError(t, err)
	require.True(t, got.FromCompanyCompleted)
	require.False(t, got.ToCompanyCompleted)

	got, err = env.flow.MarkDelivered(ctx, env.actorB, deal.ID)
	require.NoError(t, err)
	require.True(t, got.ToCompanyCompleted)
	require.Equal(t, model.DealStatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)
	completedAt := *got.CompletedAt

	// completed never reverts
	got, err = env.flow.MarkDelivered(ctx, env.actorA, deal.ID)
	require.NoError(t, err)
	require.Equal(t, model.DealStatusCompleted, got.Status)
	require.True(t, completedAt.Equal(*got.CompletedAt))

	ongoing, err := env.flow.ListOngoing(ctx, env.actorA)
	require.NoError(t, err)
	require.Empty(t, ongoing)
	completed, err := env.flow.ListCompleted(ctx, env.actorB)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	require.Equal(t, deal.ID, completed[0].Deal.ID)
}

func TestStaleMatchSweep(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	stale := &model.DealProposal{
		ID:            uuid.New(),
		FromCompanyID: env.companyA,
		ToCompanyID:   env.companyB,
		FromServiceID: env.serviceB2,
		ToServiceID:   env.serviceA2,
		Status:        model.ProposalStatusMatched,
		CreatedAt:     time.Now().UTC().Add(-8 * 24 * time.Hour),
	}
	require.NoError(t, env.proposalRepo.Create(ctx, stale))
	fresh := env.createMatch(t)

	matches, err := env.flow.ListMatches(ctx, env.actorB)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, fresh.ID, matches[0].Proposal.ID)

	_, err = env.proposalRepo.FindByID(ctx, stale.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestMatchPendingFlags(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	base := env.createMatch(t)

	matches, err := env.flow.ListMatches(ctx, env.actorB)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.False(t, matches[0].HasPending)

	_, err = env.flow.SendOffer(ctx, env.actorB, base.ID, "offer", model.MoneyDirectionNone, 0)
	require.NoError(t, err)

	matches, err = env.flow.ListMatches(ctx, env.actorB)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.True(t, matches[0].HasPending)
	require.True(t, matches[0].PendingSentByYou)

	matches, err = env.flow.ListMatches(ctx, env.actorA)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.True(t, matches[0].HasPending)
	require.False(t, matches[0].PendingSentByYou)
}

func TestUnreadCounts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.requests.Create(ctx, env.actorA, env.serviceB1, 14)
	require.NoError(t, err)

	counts, err := env.flow.UnreadCounts(ctx, env.actorB)
	require.NoError(t, err)
	require.EqualValues(t, 1, counts.Incoming)

	countsA, err := env.flow.UnreadCounts(ctx, env.actorA)
	require.NoError(t, err)
	require.EqualValues(t, 1, countsA.YouRequested)

	// opening the section clears its badge
	_, err = env.flow.ListIncoming(ctx, env.actorB)
	require.NoError(t, err)
	counts, err = env.flow.UnreadCounts(ctx, env.actorB)
	require.NoError(t, err)
	require.EqualValues(t, 0, counts.Incoming)

	base := env.createMatch(t)
	counts, err = env.flow.UnreadCounts(ctx, env.actorB)
	require.NoError(t, err)
	require.EqualValues(t, 1, counts.Matches)

	_, err = env.flow.SendOffer(ctx, env.actorB, base.ID, "", model.MoneyDirectionNone, 0)
	require.NoError(t, err)
	counts, err = env.flow.UnreadCounts(ctx, env.actorA)
	require.NoError(t, err)
	require.EqualValues(t, 1, counts.AwaitingSignature)
	counts, err = env.flow.UnreadCounts(ctx, env.actorB)
	require.NoError(t, err)
	require.EqualValues(t, 1, counts.AwaitingOtherParty)
}

func TestMembershipRequired(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// real user, wrong company
	impostor := Actor{UID: "uid-birch", CompanyID: env.companyA}
	_, err := env.flow.ListIncoming(ctx, impostor)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = env.flow.UnreadCounts(ctx, Actor{UID: "nobody", CompanyID: env.companyB})
	require.ErrorIs(t, err, ErrForbidden)
}

func TestGetProposalAccessControl(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	base := env.createMatch(t)

	companyC := seedCompany(t, env.db, "Cedar Logistics", "uid-cedar")
	actorC := Actor{UID: "uid-cedar", CompanyID: companyC}

	_, err := env.flow.GetProposal(ctx, actorC, base.ID)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = env.flow.GetProposal(ctx, env.actorA, uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentAcceptSingleDeal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	base := env.createMatch(t)

	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := env.flow.AcceptProposal(ctx, env.actorB, base.ID)
			results <- err
		}()
	}
	var failures int
	for i := 0; i < 2; i++ {
		if err := <-results; err != nil {
			require.ErrorIs(t, err, ErrAlreadyProcessed)
			failures++
		}
	}
	require.Equal(t, 1, failures)

	var dealCount int64
	require.NoError(t, env.db.Model(&model.ActiveDeal{}).Count(&dealCount).Error)
	require.EqualValues(t, 1, dealCount)
}
