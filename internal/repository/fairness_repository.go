package repository

import (
	"context"

	"github.com/barterbridge/backend/internal/fairness"
	"github.com/barterbridge/backend/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FairnessRepository assembles the population-wide aggregates the fairness
// engine scores against. Every call scans the full dataset; fine at this
// scale, memoize before it is not.
type FairnessRepository interface {
	BuildSnapshot(ctx context.Context) (fairness.Snapshot, error)
}

type fairnessRepository struct {
	db *gorm.DB
}

func NewFairnessRepository(db *gorm.DB) FairnessRepository {
	return &fairnessRepository{db: db}
}

type idCount struct {
	ID    uuid.UUID `gorm:"column:id"`
	Count int       `gorm:"column:cnt"`
}

type idAvgCount struct {
	ID    uuid.UUID `gorm:"column:id"`
	Avg   float64   `gorm:"column:avg_rating"`
	Count int       `gorm:"column:cnt"`
}

func (r *fairnessRepository) BuildSnapshot(ctx context.Context) (fairness.Snapshot, error) {
	snap := fairness.Snapshot{
		ServiceReviews:   map[uuid.UUID]fairness.ReviewStat{},
		CompanyCompleted: map[uuid.UUID]int{},
		CompanyAvgRating: map[uuid.UUID]float64{},
	}

	var services []model.Service
	if err := r.db.WithContext(ctx).
		Select("id", "company_id", "duration_hours").
		Find(&services).Error; err != nil {
		return snap, err
	}

	views, err := r.groupCount(ctx,
		"SELECT service_id AS id, COUNT(*) AS cnt FROM service_view_events GROUP BY service_id")
	if err != nil {
		return snap, err
	}
	openRequests, err := r.groupCount(ctx,
		"SELECT requested_service_id AS id, COUNT(*) AS cnt FROM trade_requests WHERE status = 'active' GROUP BY requested_service_id")
	if err != nil {
		return snap, err
	}
	chosenReturn, err := r.groupCount(ctx,
		"SELECT to_service_id AS id, COUNT(*) AS cnt FROM deal_proposals WHERE status = 'matched' GROUP BY to_service_id")
	if err != nil {
		return snap, err
	}

	snap.Services = make([]fairness.ServiceStat, 0, len(services))
	for _, svc := range services {
		snap.Services = append(snap.Services, fairness.ServiceStat{
			ID:             svc.ID,
			CompanyID:      svc.CompanyID,
			DurationHours:  svc.DurationHours,
			Views:          views[svc.ID],
			OpenRequests:   openRequests[svc.ID],
			ChosenAsReturn: chosenReturn[svc.ID],
		})
	}

	var reviewRows []idAvgCount
	if err := r.db.WithContext(ctx).
		Raw("SELECT reviewed_service_id AS id, AVG(rating) AS avg_rating, COUNT(*) AS cnt FROM reviews GROUP BY reviewed_service_id").
		Scan(&reviewRows).Error; err != nil {
		return snap, err
	}
	for _, row := range reviewRows {
		snap.ServiceReviews[row.ID] = fairness.ReviewStat{Avg: row.Avg, Count: row.Count}
	}

	// Completed-deal counts per company, summing both sides of each deal's
	// proposal.
	for _, side := range []string{"from_company_id", "to_company_id"} {
		rows, err := r.groupCount(ctx,
			"SELECT deal_proposals."+side+" AS id, COUNT(*) AS cnt"+
				" FROM active_deals JOIN deal_proposals ON deal_proposals.id = active_deals.proposal_id"+
				" WHERE active_deals.status = 'completed' GROUP BY deal_proposals."+side)
		if err != nil {
			return snap, err
		}
		for id, cnt := range rows {
			snap.CompanyCompleted[id] += cnt
		}
	}

	var companyRows []idAvgCount
	if err := r.db.WithContext(ctx).
		Raw("SELECT services.company_id AS id, AVG(reviews.rating) AS avg_rating, COUNT(*) AS cnt" +
			" FROM reviews JOIN services ON services.id = reviews.reviewed_service_id" +
			" GROUP BY services.company_id").
		Scan(&companyRows).Error; err != nil {
		return snap, err
	}
	for _, row := range companyRows {
		snap.CompanyAvgRating[row.ID] = row.Avg
	}

	return snap, nil
}

func (r *fairnessRepository) groupCount(ctx context.Context, query string) (map[uuid.UUID]int, error) {
	var rows []idCount
	if err := r.db.WithContext(ctx).Raw(query).Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]int, len(rows))
	for _, row := range rows {
		out[row.ID] = row.Count
	}
	return out, nil
}
