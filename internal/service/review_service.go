package service

import (
	"context"
	"errors"
	"time"

	"github.com/barterbridge/backend/internal/model"
	"github.com/barterbridge/backend/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrDealNotCompleted = errors.New("deal_not_completed")
var ErrAlreadyReviewed = errors.New("already_reviewed")
var ErrInvalidRating = errors.New("rating must be between 1 and 5")

type ReviewService interface {
	WriteReview(ctx context.Context, actor Actor, dealID uuid.UUID, rating int, comment string) (*model.Review, error)
	ListByDeal(ctx context.Context, actor Actor, dealID uuid.UUID) ([]model.Review, error)
}

type reviewService struct {
	reviewRepo   repository.ReviewRepository
	dealRepo     repository.DealRepository
	proposalRepo repository.ProposalRepository
	memberRepo   repository.MembershipRepository
}

func NewReviewService(reviewRepo repository.ReviewRepository, dealRepo repository.DealRepository, proposalRepo repository.ProposalRepository, memberRepo repository.MembershipRepository) ReviewService {
	return &reviewService{reviewRepo: reviewRepo, dealRepo: dealRepo, proposalRepo: proposalRepo, memberRepo: memberRepo}
}

// WriteReview rates the service the actor's company received in a completed
// deal. Guards, in order: deal exists, actor is a party, deal completed,
// rating in range, not already reviewed.
func (s *reviewService) WriteReview(ctx context.Context, actor Actor, dealID uuid.UUID, rating int, comment string) (*model.Review, error) {
	ok, err := s.memberRepo.IsMember(ctx, actor.CompanyID, actor.UID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}
	deal, p, err := s.loadPartyDeal(ctx, actor, dealID)
	if err != nil {
		return nil, err
	}
	if deal.Status != model.DealStatusCompleted {
		return nil, ErrDealNotCompleted
	}
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}

	// The review targets the counterparty and the service received from
	// them: the from-side reviews from_service (what they get back came from
	// that pairing's "to" company), the to-side reviews to_service.
	var reviewedCompanyID, reviewedServiceID uuid.UUID
	if p.FromCompanyID == actor.CompanyID {
		reviewedCompanyID = p.ToCompanyID
		reviewedServiceID = p.FromServiceID
	} else {
		reviewedCompanyID = p.FromCompanyID
		reviewedServiceID = p.ToServiceID
	}

	exists, err := s.reviewRepo.Exists(ctx, dealID, actor.UID, reviewedServiceID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyReviewed
	}

	rv := &model.Review{
		ID:                uuid.New(),
		DealID:            dealID,
		ReviewerUID:       actor.UID,
		ReviewedCompanyID: reviewedCompanyID,
		ReviewedServiceID: reviewedServiceID,
		Rating:            rating,
		CreatedAt:         time.Now().UTC(),
	}
	if comment != "" {
		rv.Comment = &comment
	}
	if err := s.reviewRepo.Create(ctx, rv); err != nil {
		return nil, err
	}
	return rv, nil
}

func (s *reviewService) ListByDeal(ctx context.Context, actor Actor, dealID uuid.UUID) ([]model.Review, error) {
	ok, err := s.memberRepo.IsMember(ctx, actor.CompanyID, actor.UID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}
	if _, _, err := s.loadPartyDeal(ctx, actor, dealID); err != nil {
		return nil, err
	}
	return s.reviewRepo.ListByDeal(ctx, dealID)
}

func (s *reviewService) loadPartyDeal(ctx context.Context, actor Actor, dealID uuid.UUID) (*model.ActiveDeal, *model.DealProposal, error) {
	deal, err := s.dealRepo.FindByID(ctx, dealID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	p, err := s.proposalRepo.FindByID(ctx, deal.ProposalID)
	if err != nil {
		return nil, nil, err
	}
	if !p.Involves(actor.CompanyID) {
		return nil, nil, ErrForbidden
	}
	return deal, p, nil
}
