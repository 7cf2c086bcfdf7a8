package repository

import (
	"context"
	"errors"
	"time"

	"github.com/barterbridge/backend/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrProposalResolved is returned when an accept races or replays against a
// proposal that already reached a terminal status.
var ErrProposalResolved = errors.New("proposal already resolved")

var openStatuses = []model.ProposalStatus{model.ProposalStatusMatched, model.ProposalStatusPending}

type ProposalRepository interface {
	Create(ctx context.Context, p *model.DealProposal) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.DealProposal, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.ProposalStatus) error
	ListMatchedByCompany(ctx context.Context, companyID uuid.UUID) ([]model.DealProposal, error)
	ListPendingTo(ctx context.Context, companyID uuid.UUID) ([]model.DealProposal, error)
	ListPendingFrom(ctx context.Context, companyID uuid.UUID) ([]model.DealProposal, error)
	FindPendingForPair(ctx context.Context, p *model.DealProposal) (*model.DealProposal, error)
	DeleteStaleMatched(ctx context.Context, cutoff time.Time) (int64, error)
	Accept(ctx context.Context, proposalID, dealID uuid.UUID, now time.Time) (*model.DealProposal, *model.ActiveDeal, error)
	CountMatchedAfter(ctx context.Context, companyID uuid.UUID, after time.Time) (int64, error)
	CountPendingToAfter(ctx context.Context, companyID uuid.UUID, after time.Time) (int64, error)
	CountPendingFromAfter(ctx context.Context, companyID uuid.UUID, after time.Time) (int64, error)
}

type proposalRepository struct {
	db *gorm.DB
}

func NewProposalRepository(db *gorm.DB) ProposalRepository {
	return &proposalRepository{db: db}
}

func (r *proposalRepository) Create(ctx context.Context, p *model.DealProposal) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *proposalRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.DealProposal, error) {
	var p model.DealProposal
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *proposalRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.ProposalStatus) error {
	return r.db.WithContext(ctx).
		Model(&model.DealProposal{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *proposalRepository) ListMatchedByCompany(ctx context.Context, companyID uuid.UUID) ([]model.DealProposal, error) {
	var list []model.DealProposal
	if err := r.db.WithContext(ctx).
		Where("status = ?", model.ProposalStatusMatched).
		Where("from_company_id = ? OR to_company_id = ?", companyID, companyID).
		Order("created_at DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *proposalRepository) ListPendingTo(ctx context.Context, companyID uuid.UUID) ([]model.DealProposal, error) {
	var list []model.DealProposal
	if err := r.db.WithContext(ctx).
		Where("to_company_id = ? AND status = ?", companyID, model.ProposalStatusPending).
		Order("created_at DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *proposalRepository) ListPendingFrom(ctx context.Context, companyID uuid.UUID) ([]model.DealProposal, error) {
	var list []model.DealProposal
	if err := r.db.WithContext(ctx).
		Where("from_company_id = ? AND status = ?", companyID, model.ProposalStatusPending).
		Order("created_at DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// FindPendingForPair looks for a pending offer covering the same service pair
// as the given proposal, in either orientation. Nil without error when none
// exists.
func (r *proposalRepository) FindPendingForPair(ctx context.Context, p *model.DealProposal) (*model.DealProposal, error) {
	var found model.DealProposal
	err := r.db.WithContext(ctx).
		Where("status = ?", model.ProposalStatusPending).
		Where(
			"(from_company_id = ? AND to_company_id = ? AND from_service_id = ? AND to_service_id = ?)"+
				" OR (from_company_id = ? AND to_company_id = ? AND from_service_id = ? AND to_service_id = ?)",
			p.FromCompanyID, p.ToCompanyID, p.FromServiceID, p.ToServiceID,
			p.ToCompanyID, p.FromCompanyID, p.ToServiceID, p.FromServiceID,
		).
		First(&found).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &found, nil
}

// DeleteStaleMatched garbage-collects matched proposals older than the
// cutoff. Called lazily when a matches list is loaded; there is no scheduler.
func (r *proposalRepository) DeleteStaleMatched(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", model.ProposalStatusMatched, cutoff).
		Delete(&model.DealProposal{})
	return res.RowsAffected, res.Error
}

// Accept marks the proposal accepted, creates its ActiveDeal, and deletes
// every other open proposal between the two companies in both orientations —
// acceptance is a company-level commitment, so the whole negotiation thread
// closes. Runs as one transaction with the proposal row locked so concurrent
// accepts cannot produce two deals; the unique index on
// active_deals.proposal_id backstops the same invariant.
func (r *proposalRepository) Accept(ctx context.Context, proposalID, dealID uuid.UUID, now time.Time) (*model.DealProposal, *model.ActiveDeal, error) {
	var (
		prop model.DealProposal
		deal *model.ActiveDeal
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx
		// SQLite serializes writes on its own and rejects FOR UPDATE.
		if tx.Dialector.Name() == "mysql" {
			q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := q.First(&prop, "id = ?", proposalID).Error; err != nil {
			return err
		}
		if prop.Status != model.ProposalStatusPending && prop.Status != model.ProposalStatusMatched {
			return ErrProposalResolved
		}
		if err := tx.Model(&model.DealProposal{}).
			Where("id = ?", proposalID).
			Update("status", model.ProposalStatusAccepted).Error; err != nil {
			return err
		}
		prop.Status = model.ProposalStatusAccepted

		deal = &model.ActiveDeal{
			ID:         dealID,
			ProposalID: proposalID,
			Status:     model.DealStatusInProgress,
			CreatedAt:  now,
		}
		if err := tx.Create(deal).Error; err != nil {
			return err
		}

		return tx.
			Where("id <> ? AND status IN ?", proposalID, openStatuses).
			Where(
				"(from_company_id = ? AND to_company_id = ?) OR (from_company_id = ? AND to_company_id = ?)",
				prop.FromCompanyID, prop.ToCompanyID, prop.ToCompanyID, prop.FromCompanyID,
			).
			Delete(&model.DealProposal{}).Error
	})
	if err != nil {
		return nil, nil, err
	}
	return &prop, deal, nil
}

func (r *proposalRepository) CountMatchedAfter(ctx context.Context, companyID uuid.UUID, after time.Time) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).
		Model(&model.DealProposal{}).
		Where("status = ? AND created_at > ?", model.ProposalStatusMatched, after).
		Where("from_company_id = ? OR to_company_id = ?", companyID, companyID).
		Count(&cnt).Error
	return cnt, err
}

func (r *proposalRepository) CountPendingToAfter(ctx context.Context, companyID uuid.UUID, after time.Time) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).
		Model(&model.DealProposal{}).
		Where("to_company_id = ? AND status = ? AND created_at > ?", companyID, model.ProposalStatusPending, after).
		Count(&cnt).Error
	return cnt, err
}

func (r *proposalRepository) CountPendingFromAfter(ctx context.Context, companyID uuid.UUID, after time.Time) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).
		Model(&model.DealProposal{}).
		Where("from_company_id = ? AND status = ? AND created_at > ?", companyID, model.ProposalStatusPending, after).
		Count(&cnt).Error
	return cnt, err
}
