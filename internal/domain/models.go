package domain

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

type ListingKind string

const (
	ShortStay      ListingKind = "short_stay"
	LongTermRental ListingKind = "long_term_rental"
)

func (k ListingKind) Valid() bool {
	return k == ShortStay || k == LongTermRental
}

type Tier string

const (
	TierMonthly Tier = "monthly"
	TierWeekly  Tier = "weekly"
	TierNightly Tier = "nightly"
	TierDaily   Tier = "daily"
)

// DaysPerUnit is the number of days one unit of the tier covers.
func (t Tier) DaysPerUnit() int {
	switch t {
	case TierMonthly:
		return 30
	case TierWeekly:
		return 7
	default:
		return 1
	}
}

// RateCard is a snapshot of a listing's tier rates. An invalid NullDecimal
// means the tier is not offered; a valid zero means it is offered for free.
type RateCard struct {
	Kind        ListingKind         `json:"listing_kind" validate:"required,oneof=short_stay long_term_rental"`
	NightlyRate decimal.NullDecimal `json:"nightly_rate"`
	WeeklyRate  decimal.NullDecimal `json:"weekly_rate"`
	MonthlyRate decimal.NullDecimal `json:"monthly_rate"`
	DailyRate   decimal.NullDecimal `json:"daily_rate"`
}

// Rate returns the rate configured for tier, if any.
func (c RateCard) Rate(t Tier) (decimal.Decimal, bool) {
	var r decimal.NullDecimal
	switch t {
	case TierMonthly:
		r = c.MonthlyRate
	case TierWeekly:
		r = c.WeeklyRate
	case TierNightly:
		r = c.NightlyRate
	case TierDaily:
		r = c.DailyRate
	}
	return r.Decimal, r.Valid
}

type StayRequest struct {
	StartDate civil.Date `json:"start_date"`
	EndDate   civil.Date `json:"end_date"`
}

// Days is EndDate - StartDate in calendar days; start inclusive, end exclusive.
func (r StayRequest) Days() int {
	return r.EndDate.DaysSince(r.StartDate)
}

type LineItem struct {
	Tier      Tier            `json:"tier"`
	UnitCount int             `json:"unit_count"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type PriceBreakdown struct {
	TotalDays   int             `json:"total_days"`
	LineItems   []LineItem      `json:"line_items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

type Property struct {
	ID        string          `json:"id"`
	Title     string          `json:"title" validate:"required"`
	Location  string          `json:"location" validate:"required"`
	Category  string          `json:"category" validate:"required"`
	Price     decimal.Decimal `json:"price"`
	Bedrooms  int             `json:"bedrooms" validate:"min=0"`
	Bathrooms int             `json:"bathrooms" validate:"min=0"`
	AreaSQM   decimal.Decimal `json:"area_sqm"`
	Amenities []string        `json:"amenities"`
	Rates     RateCard        `json:"rates"`
	CreatedAt time.Time       `json:"created_at"`
}

type PricePoint struct {
	Period string          `json:"period"`
	Price  decimal.Decimal `json:"price"`
}

type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// MarketBaseline holds aggregate statistics for a (location, category) pair.
// HistoricalPrices is chronological. Trend may be precomputed by whoever
// produced the baseline; empty means "derive from history".
type MarketBaseline struct {
	Location            string          `json:"location"`
	Category            string          `json:"category"`
	AveragePrice        decimal.Decimal `json:"average_price"`
	PricePerAreaUnit    decimal.Decimal `json:"price_per_area_unit"`
	ListingCount        int             `json:"listing_count"`
	AverageDaysOnMarket int             `json:"average_days_on_market"`
	HistoricalPrices    []PricePoint    `json:"historical_prices"`
	Trend               Trend           `json:"trend,omitempty"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

type ValuationInputs struct {
	Location  string              `json:"location"`
	Category  string              `json:"category"`
	Area      decimal.NullDecimal `json:"area"`
	Bedrooms  *int                `json:"bedrooms,omitempty"`
	Bathrooms *int                `json:"bathrooms,omitempty"`
}

type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// ValuationFactors are qualitative labels attached to an estimate. Only
// MarketTrend is derived from data; the rest are fixed placeholders.
type ValuationFactors struct {
	LocationRating       string `json:"location_rating"`
	PropertyCondition    string `json:"property_condition"`
	DevelopmentPotential string `json:"development_potential"`
	MarketTrend          Trend  `json:"market_trend"`
}

type ValuationResult struct {
	EstimatedValue decimal.Decimal  `json:"estimated_value"`
	Confidence     Confidence       `json:"confidence_level"`
	Factors        ValuationFactors `json:"factors"`
	ValidUntil     time.Time        `json:"valid_until"`
}

// ValuationReport is a persisted valuation together with what produced it.
type ValuationReport struct {
	ID         string          `json:"id"`
	PropertyID string          `json:"property_id,omitempty"`
	Inputs     ValuationInputs `json:"inputs"`
	Result     ValuationResult `json:"result"`
	CreatedAt  time.Time       `json:"created_at"`
}
