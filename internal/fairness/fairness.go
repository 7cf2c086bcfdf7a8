// Package fairness computes the Service Value Index (SVI) used to judge
// whether a proposed barter swap is balanced. It is a pure function over an
// aggregate Snapshot of the whole service population; building the snapshot
// from storage is the repository layer's job.
package fairness

import "github.com/google/uuid"

// SVI weights. They sum to 1.0 and must stay exact so historical ratios
// remain reproducible.
const (
	weightEffort = 0.45
	weightDemand = 0.30
	weightReview = 0.15
	weightTrust  = 0.10
)

// Trust sub-score weights. They intentionally sum to 0.8, matching the
// scoring formula this system inherited; rebalancing would shift every
// stored fairness ratio.
const (
	trustWeightCompleted = 0.5
	trustWeightReview    = 0.3
)

// DefaultSmoothingK damps low-volume review averages.
const DefaultSmoothingK = 3

// Ratio thresholds for the qualitative label.
const (
	LabelBalanced     = "balanced"
	LabelReturnLower  = "return lower"
	LabelReturnHigher = "return higher"
)

// ServiceStat is one service's raw fairness inputs.
type ServiceStat struct {
	ID             uuid.UUID
	CompanyID      uuid.UUID
	DurationHours  float64
	Views          int
	OpenRequests   int
	ChosenAsReturn int
}

// ReviewStat is the aggregated rating of one service.
type ReviewStat struct {
	Avg   float64
	Count int
}

// Snapshot carries every aggregate the engine needs, computed over the full
// service population at call time.
type Snapshot struct {
	Services         []ServiceStat
	ServiceReviews   map[uuid.UUID]ReviewStat
	CompanyCompleted map[uuid.UUID]int
	// CompanyAvgRating is the raw 1-5 average over all reviews of a
	// company's services; companies without reviews are absent.
	CompanyAvgRating map[uuid.UUID]float64
}

type Components struct {
	Effort float64 `json:"effort"`
	Demand float64 `json:"demand"`
	Review float64 `json:"review"`
	Trust  float64 `json:"trust"`
}

type Raw struct {
	DurationHours float64 `json:"durationHours"`
	DemandRaw     float64 `json:"demandRaw"`
}

type ServiceMetrics struct {
	SVI        float64    `json:"svi"`
	Components Components `json:"components"`
	Raw        Raw        `json:"raw"`
}

// Report compares a requested service against a candidate return service.
// Ratio is nil when the requested SVI is zero.
type Report struct {
	Requested ServiceMetrics `json:"requested"`
	Return    ServiceMetrics `json:"return"`
	Ratio     *float64       `json:"fairnessRatio"`
	Label     string         `json:"label"`
}

// Compute returns nil when either service is missing from the snapshot or
// the snapshot holds no services at all.
func Compute(snap Snapshot, requestedID, returnID uuid.UUID) *Report {
	return ComputeWithSmoothing(snap, requestedID, returnID, DefaultSmoothingK)
}

func ComputeWithSmoothing(snap Snapshot, requestedID, returnID uuid.UUID, smoothingK int) *Report {
	if len(snap.Services) == 0 {
		return nil
	}
	requested, ok := snap.service(requestedID)
	if !ok {
		return nil
	}
	ret, ok := snap.service(returnID)
	if !ok {
		return nil
	}

	effortMin, effortMax := snap.effortRange()
	demandMin, demandMax := snap.demandRange()
	completedMin, completedMax := snap.completedRange()

	score := func(s ServiceStat) ServiceMetrics {
		effort := minMaxNorm(s.DurationHours, effortMin, effortMax, 0)
		raw := demandRaw(s)
		demand := minMaxNorm(raw, demandMin, demandMax, 0)
		review := reviewComponent(snap.ServiceReviews[s.ID], smoothingK)
		trust := trustComponent(
			float64(snap.CompanyCompleted[s.CompanyID]),
			completedMin, completedMax,
			snap.CompanyAvgRating, s.CompanyID,
		)
		svi := weightEffort*effort + weightDemand*demand + weightReview*review + weightTrust*trust
		return ServiceMetrics{
			SVI:        svi,
			Components: Components{Effort: effort, Demand: demand, Review: review, Trust: trust},
			Raw:        Raw{DurationHours: s.DurationHours, DemandRaw: raw},
		}
	}

	report := &Report{
		Requested: score(requested),
		Return:    score(ret),
		Label:     LabelBalanced,
	}
	if report.Requested.SVI != 0 {
		ratio := report.Return.SVI / report.Requested.SVI
		report.Ratio = &ratio
		switch {
		case ratio < 0.9:
			report.Label = LabelReturnLower
		case ratio > 1.1:
			report.Label = LabelReturnHigher
		}
	}
	return report
}

func (s Snapshot) service(id uuid.UUID) (ServiceStat, bool) {
	for _, svc := range s.Services {
		if svc.ID == id {
			return svc, true
		}
	}
	return ServiceStat{}, false
}

func (s Snapshot) effortRange() (min, max float64) {
	for i, svc := range s.Services {
		if i == 0 || svc.DurationHours < min {
			min = svc.DurationHours
		}
		if i == 0 || svc.DurationHours > max {
			max = svc.DurationHours
		}
	}
	return min, max
}

func (s Snapshot) demandRange() (min, max float64) {
	for i, svc := range s.Services {
		raw := demandRaw(svc)
		if i == 0 || raw < min {
			min = raw
		}
		if i == 0 || raw > max {
			max = raw
		}
	}
	return min, max
}

// completedRange spans every company that owns a service, so companies
// without completed deals count as zero instead of falling below the range.
func (s Snapshot) completedRange() (min, max float64) {
	for i, svc := range s.Services {
		n := float64(s.CompanyCompleted[svc.CompanyID])
		if i == 0 || n < min {
			min = n
		}
		if i == 0 || n > max {
			max = n
		}
	}
	return min, max
}

// demandRaw weighs direct interest signals: a page view counts once, an open
// trade request three times, being picked as the return side of a match twice.
func demandRaw(s ServiceStat) float64 {
	return float64(s.Views) + 3*float64(s.OpenRequests) + 2*float64(s.ChosenAsReturn)
}

// minMaxNorm returns def for a degenerate range.
func minMaxNorm(value, min, max, def float64) float64 {
	if max == min {
		return def
	}
	return (value - min) / (max - min)
}

// reviewComponent maps the 1-5 average onto [-1,1], applies additive
// smoothing so a handful of ratings cannot dominate, and rescales to [0,1].
// No reviews yields the neutral prior 0.5, not 0.
func reviewComponent(stat ReviewStat, smoothingK int) float64 {
	if stat.Count == 0 {
		return 0.5
	}
	mapped := (stat.Avg - 3.0) / 2.0
	smoothed := float64(stat.Count) * mapped / float64(stat.Count+smoothingK)
	return (smoothed + 1) / 2
}

func trustComponent(completed, completedMin, completedMax float64, companyAvg map[uuid.UUID]float64, companyID uuid.UUID) float64 {
	completedNorm := minMaxNorm(completed, completedMin, completedMax, 0)
	reviewNorm := 0.5
	if avg, ok := companyAvg[companyID]; ok {
		reviewNorm = ((avg-3.0)/2.0 + 1) / 2
	}
	return trustWeightCompleted*completedNorm + trustWeightReview*reviewNorm
}
