package valuation

import "github.com/denisok6893-rgb/stay-pricing/internal/domain"

// MarketTrend returns the baseline's precomputed trend when present, otherwise
// the direction from the earliest to the latest historical price.
func MarketTrend(b domain.MarketBaseline) domain.Trend {
	if b.Trend != "" {
		return b.Trend
	}
	if len(b.HistoricalPrices) < 2 {
		return domain.TrendStable
	}
	first := b.HistoricalPrices[0].Price
	last := b.HistoricalPrices[len(b.HistoricalPrices)-1].Price
	switch last.Cmp(first) {
	case 1:
		return domain.TrendIncreasing
	case -1:
		return domain.TrendDecreasing
	default:
		return domain.TrendStable
	}
}
