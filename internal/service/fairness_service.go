package service

import (
	"context"
	"errors"
	"time"

	"github.com/barterbridge/backend/internal/fairness"
	"github.com/barterbridge/backend/internal/model"
	"github.com/barterbridge/backend/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type FairnessService interface {
	// Compare scores the requested service against a candidate return
	// service. A nil report (no error) means no fairness data is available;
	// callers render that, they do not fail.
	Compare(ctx context.Context, requestedID, returnID uuid.UUID) (*fairness.Report, error)
	// RecordView appends a view event. Best-effort: analytics must never
	// break a page load, so failures are logged and swallowed.
	RecordView(ctx context.Context, serviceID uuid.UUID)
}

type fairnessService struct {
	fairnessRepo repository.FairnessRepository
	serviceRepo  repository.ServiceRepository
	viewRepo     repository.ViewEventRepository
	log          *zap.Logger
}

func NewFairnessService(fairnessRepo repository.FairnessRepository, serviceRepo repository.ServiceRepository, viewRepo repository.ViewEventRepository, log *zap.Logger) FairnessService {
	return &fairnessService{fairnessRepo: fairnessRepo, serviceRepo: serviceRepo, viewRepo: viewRepo, log: log}
}

func (s *fairnessService) Compare(ctx context.Context, requestedID, returnID uuid.UUID) (*fairness.Report, error) {
	for _, id := range []uuid.UUID{requestedID, returnID} {
		if _, err := s.serviceRepo.FindByID(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrNotFound
			}
			return nil, err
		}
	}
	snap, err := s.fairnessRepo.BuildSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return fairness.Compute(snap, requestedID, returnID), nil
}

func (s *fairnessService) RecordView(ctx context.Context, serviceID uuid.UUID) {
	ev := &model.ServiceViewEvent{
		ID:        uuid.New(),
		ServiceID: serviceID,
		ViewedAt:  time.Now().UTC(),
	}
	if err := s.viewRepo.Create(ctx, ev); err != nil {
		s.log.Warn("record service view failed", zap.String("serviceId", serviceID.String()), zap.Error(err))
	}
}
