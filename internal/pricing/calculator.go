package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/denisok6893-rgb/stay-pricing/internal/domain"
)

// Calculator prices a stay against a rate card. It holds no state and is safe
// for concurrent use.
type Calculator struct{}

// NewCalculator returns a ready Calculator.
func NewCalculator() *Calculator {
	return &Calculator{}
}

// Compute decomposes the stay into the largest available tiers first and
// returns the priced breakdown.
func (c *Calculator) Compute(card domain.RateCard, req domain.StayRequest) (domain.PriceBreakdown, error) {
	days := req.Days()
	if days <= 0 {
		return domain.PriceBreakdown{}, &InvalidRangeError{Start: req.StartDate, End: req.EndDate}
	}
	if err := validateRates(card); err != nil {
		return domain.PriceBreakdown{}, err
	}

	var (
		items []domain.LineItem
		err   error
	)
	switch card.Kind {
	case domain.ShortStay:
		items, err = shortStayLines(card, days)
	case domain.LongTermRental:
		items, err = longTermLines(card, days)
	default:
		return domain.PriceBreakdown{}, fmt.Errorf("%w: %q", ErrUnknownListingKind, card.Kind)
	}
	if err != nil {
		return domain.PriceBreakdown{}, err
	}

	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.LineTotal)
	}
	return domain.PriceBreakdown{
		TotalDays:   days,
		LineItems:   items,
		TotalAmount: total,
	}, nil
}

func shortStayLines(card domain.RateCard, days int) ([]domain.LineItem, error) {
	nightly, ok := card.Rate(domain.TierNightly)
	if !ok {
		return nil, &MissingRateError{Kind: card.Kind, Tier: domain.TierNightly}
	}

	var items []domain.LineItem
	remaining := days

	if monthly, ok := card.Rate(domain.TierMonthly); ok {
		if months := remaining / 30; months > 0 {
			items = append(items, line(domain.TierMonthly, months, monthly))
			remaining -= months * 30
		}
	}
	if weekly, ok := card.Rate(domain.TierWeekly); ok {
		if weeks := remaining / 7; weeks > 0 {
			items = append(items, line(domain.TierWeekly, weeks, weekly))
			remaining -= weeks * 7
		}
	}
	if remaining > 0 {
		items = append(items, line(domain.TierNightly, remaining, nightly))
	}
	return items, nil
}

func longTermLines(card domain.RateCard, days int) ([]domain.LineItem, error) {
	daily, hasDaily := card.Rate(domain.TierDaily)
	missingDaily := &MissingRateError{Kind: card.Kind, Tier: domain.TierDaily}

	monthly, hasMonthly := card.Rate(domain.TierMonthly)
	if days >= 30 && hasMonthly {
		months := days / 30
		items := []domain.LineItem{line(domain.TierMonthly, months, monthly)}
		if rest := days % 30; rest > 0 {
			if !hasDaily {
				return nil, missingDaily
			}
			items = append(items, line(domain.TierDaily, rest, daily))
		}
		return items, nil
	}

	if !hasDaily {
		return nil, missingDaily
	}
	return []domain.LineItem{line(domain.TierDaily, days, daily)}, nil
}

func line(t domain.Tier, units int, price decimal.Decimal) domain.LineItem {
	return domain.LineItem{
		Tier:      t,
		UnitCount: units,
		UnitPrice: price,
		LineTotal: price.Mul(decimal.NewFromInt(int64(units))),
	}
}

func validateRates(card domain.RateCard) error {
	for _, t := range []domain.Tier{domain.TierMonthly, domain.TierWeekly, domain.TierNightly, domain.TierDaily} {
		if r, ok := card.Rate(t); ok && r.IsNegative() {
			return &InvalidRateError{Tier: t}
		}
	}
	return nil
}
