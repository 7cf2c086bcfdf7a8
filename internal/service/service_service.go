package service

import (
	"context"
	"errors"

	"github.com/barterbridge/backend/internal/model"
	"github.com/barterbridge/backend/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("not_found")
var ErrForbidden = errors.New("forbidden")

// ErrServiceInUse rejects edits to a service sitting inside an open
// negotiation.
var ErrServiceInUse = errors.New("service_in_open_proposal")

// ServiceInput is the mutable subset of a listing.
type ServiceInput struct {
	Title         string
	Description   string
	Category      string
	DurationHours float64
	Active        bool
}

type ServiceDetail struct {
	Service   model.Service
	Reviews   []model.Review
	AvgRating float64
}

type ServiceService interface {
	Create(ctx context.Context, actor Actor, in ServiceInput) (*model.Service, error)
	Update(ctx context.Context, actor Actor, serviceID uuid.UUID, in ServiceInput) (*model.Service, error)
	List(ctx context.Context, category string, limit, offset int) ([]model.Service, int64, error)
	Get(ctx context.Context, serviceID uuid.UUID) (*ServiceDetail, error)
	ListByCompany(ctx context.Context, companyID uuid.UUID) ([]model.Service, error)
}

type serviceService struct {
	serviceRepo repository.ServiceRepository
	reviewRepo  repository.ReviewRepository
	memberRepo  repository.MembershipRepository
}

func NewServiceService(serviceRepo repository.ServiceRepository, reviewRepo repository.ReviewRepository, memberRepo repository.MembershipRepository) ServiceService {
	return &serviceService{serviceRepo: serviceRepo, reviewRepo: reviewRepo, memberRepo: memberRepo}
}

func (s *serviceService) requireAdmin(ctx context.Context, actor Actor) error {
	m, err := s.memberRepo.Find(ctx, actor.CompanyID, actor.UID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrForbidden
		}
		return err
	}
	if !m.IsAdmin {
		return ErrForbidden
	}
	return nil
}

func (s *serviceService) Create(ctx context.Context, actor Actor, in ServiceInput) (*model.Service, error) {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return nil, err
	}
	if in.Title == "" || in.DurationHours <= 0 {
		return nil, errors.New("title and a positive duration are required")
	}
	svc := &model.Service{
		ID:            uuid.New(),
		CompanyID:     actor.CompanyID,
		Title:         in.Title,
		Description:   in.Description,
		Category:      in.Category,
		DurationHours: in.DurationHours,
		Active:        in.Active,
	}
	if err := s.serviceRepo.Create(ctx, svc); err != nil {
		return nil, err
	}
	return svc, nil
}

func (s *serviceService) Update(ctx context.Context, actor Actor, serviceID uuid.UUID, in ServiceInput) (*model.Service, error) {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return nil, err
	}
	svc, err := s.serviceRepo.FindByID(ctx, serviceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if svc.CompanyID != actor.CompanyID {
		return nil, ErrForbidden
	}
	inUse, err := s.serviceRepo.HasOpenProposal(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if inUse {
		return nil, ErrServiceInUse
	}
	if in.Title == "" || in.DurationHours <= 0 {
		return nil, errors.New("title and a positive duration are required")
	}
	svc.Title = in.Title
	svc.Description = in.Description
	svc.Category = in.Category
	svc.DurationHours = in.DurationHours
	svc.Active = in.Active
	if err := s.serviceRepo.Update(ctx, svc); err != nil {
		return nil, err
	}
	return svc, nil
}

func (s *serviceService) List(ctx context.Context, category string, limit, offset int) ([]model.Service, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.serviceRepo.List(ctx, category, limit, offset)
}

func (s *serviceService) Get(ctx context.Context, serviceID uuid.UUID) (*ServiceDetail, error) {
	svc, err := s.serviceRepo.FindByID(ctx, serviceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	reviews, err := s.reviewRepo.ListByService(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	detail := &ServiceDetail{Service: *svc, Reviews: reviews}
	if len(reviews) > 0 {
		sum := 0
		for _, rv := range reviews {
			sum += rv.Rating
		}
		detail.AvgRating = float64(sum) / float64(len(reviews))
	}
	return detail, nil
}

func (s *serviceService) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]model.Service, error) {
	return s.serviceRepo.ListByCompany(ctx, companyID)
}
