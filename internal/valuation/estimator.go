package valuation

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/denisok6893-rgb/stay-pricing/internal/domain"
)

// Estimator blends a market baseline with per-property adjustments.
type Estimator struct {
	cfg Config
	now func() time.Time
}

func NewEstimator(cfg Config, now func() time.Time) *Estimator {
	if now == nil {
		now = time.Now
	}
	return &Estimator{cfg: cfg, now: now}
}

func (e *Estimator) Estimate(baseline domain.MarketBaseline, in domain.ValuationInputs) domain.ValuationResult {
	base := baseline.AveragePrice
	if in.Area.Valid {
		base = base.Add(in.Area.Decimal.Mul(baseline.PricePerAreaUnit))
	}
	if in.Bedrooms != nil {
		base = base.Add(e.cfg.BedroomValue.Mul(decimal.NewFromInt(int64(*in.Bedrooms))))
	}
	if in.Bathrooms != nil {
		base = base.Add(e.cfg.BathroomValue.Mul(decimal.NewFromInt(int64(*in.Bathrooms))))
	}

	return domain.ValuationResult{
		EstimatedValue: base.Round(2),
		Confidence:     e.confidence(baseline.ListingCount),
		Factors: domain.ValuationFactors{
			LocationRating:       e.cfg.LocationRating,
			PropertyCondition:    e.cfg.PropertyCondition,
			DevelopmentPotential: e.cfg.DevelopmentPotential,
			MarketTrend:          MarketTrend(baseline),
		},
		ValidUntil: e.now().AddDate(0, e.cfg.ValidityMonths, 0),
	}
}

func (e *Estimator) confidence(listings int) domain.Confidence {
	switch {
	case listings > e.cfg.HighConfidenceListings:
		return domain.ConfidenceHigh
	case listings > e.cfg.MediumConfidenceListings:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}
