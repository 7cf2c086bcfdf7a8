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

var ErrOwnService = errors.New("cannot request own service")

// Allowed request validity windows in days.
var allowedValidityDays = []int{7, 14, 30, 60, 90}

const defaultValidityDays = 14

type TradeRequestService interface {
	Create(ctx context.Context, actor Actor, serviceID uuid.UUID, validityDays int) (*model.TradeRequest, error)
}

type tradeRequestService struct {
	requestRepo repository.TradeRequestRepository
	serviceRepo repository.ServiceRepository
	memberRepo  repository.MembershipRepository
}

func NewTradeRequestService(requestRepo repository.TradeRequestRepository, serviceRepo repository.ServiceRepository, memberRepo repository.MembershipRepository) TradeRequestService {
	return &tradeRequestService{requestRepo: requestRepo, serviceRepo: serviceRepo, memberRepo: memberRepo}
}

// Create registers interest in a service. An out-of-set validity silently
// falls back to the default rather than failing the submission. ExpiresAt is
// stored but not enforced by any sweep; it is advisory.
func (s *tradeRequestService) Create(ctx context.Context, actor Actor, serviceID uuid.UUID, validityDays int) (*model.TradeRequest, error) {
	ok, err := s.memberRepo.IsMember(ctx, actor.CompanyID, actor.UID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}
	svc, err := s.serviceRepo.FindByID(ctx, serviceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if svc.CompanyID == actor.CompanyID {
		return nil, ErrOwnService
	}

	days := normalizeValidityDays(validityDays)
	now := time.Now().UTC()
	req := &model.TradeRequest{
		ID:                  uuid.New(),
		RequestingCompanyID: actor.CompanyID,
		RequestedServiceID:  serviceID,
		ValidityDays:        days,
		Status:              model.TradeRequestStatusActive,
		CreatedAt:           now,
		ExpiresAt:           now.AddDate(0, 0, days),
	}
	if err := s.requestRepo.Create(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

func normalizeValidityDays(days int) int {
	for _, allowed := range allowedValidityDays {
		if days == allowed {
			return days
		}
	}
	return defaultValidityDays
}
