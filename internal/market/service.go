package market

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/denisok6893-rgb/stay-pricing/internal/domain"
	"github.com/denisok6893-rgb/stay-pricing/internal/logging"
	"github.com/denisok6893-rgb/stay-pricing/internal/storage"
)

// Repository is the slice of storage the market service needs.
type Repository interface {
	ListingSamples(ctx context.Context, location, category string) ([]storage.ListingSample, error)
	GetBaseline(ctx context.Context, location, category string) (domain.MarketBaseline, bool, error)
	UpsertBaseline(ctx context.Context, b domain.MarketBaseline) error
	CreateBaselineIfAbsent(ctx context.Context, b domain.MarketBaseline) (bool, error)
}

// Cache is an optional read-through cache in front of the repository.
type Cache interface {
	Get(ctx context.Context, location, category string) (domain.MarketBaseline, bool, error)
	Set(ctx context.Context, b domain.MarketBaseline) error
	Delete(ctx context.Context, location, category string) error
}

// MinSamples is the fewest listings a recompute will publish a baseline from.
const MinSamples = 3

type Service struct {
	repo  Repository
	cache Cache
	log   *logging.Logger
	now   func() time.Time
}

// NewService wires the service; cache may be nil.
func NewService(repo Repository, cache Cache, log *logging.Logger, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Service{repo: repo, cache: cache, log: log, now: now}
}

// Key normalises a (location, category) pair the way baselines are stored.
func Key(location, category string) (string, string) {
	return strings.ToLower(strings.TrimSpace(location)), strings.ToLower(strings.TrimSpace(category))
}

// Baseline returns the stored baseline for the pair, creating a zeroed one on
// first read.
func (s *Service) Baseline(ctx context.Context, location, category string) (domain.MarketBaseline, error) {
	location, category = Key(location, category)

	if s.cache != nil {
		b, ok, err := s.cache.Get(ctx, location, category)
		if err != nil {
			s.log.Warn("[MARKET] cache get %s / %s: %v", location, category, err)
		} else if ok {
			return b, nil
		}
	}

	b, ok, err := s.repo.GetBaseline(ctx, location, category)
	if err != nil {
		return domain.MarketBaseline{}, err
	}
	if !ok {
		// A concurrent recompute may have published a row since the miss; only
		// insert when still absent and serve whatever is stored afterwards.
		created, err := s.repo.CreateBaselineIfAbsent(ctx, domain.MarketBaseline{
			Location:         location,
			Category:         category,
			AveragePrice:     decimal.Zero,
			PricePerAreaUnit: decimal.Zero,
			UpdatedAt:        s.now().UTC(),
		})
		if err != nil {
			return domain.MarketBaseline{}, err
		}
		if created {
			s.log.Info("[MARKET] created empty baseline %s / %s", location, category)
		}
		b, ok, err = s.repo.GetBaseline(ctx, location, category)
		if err != nil {
			return domain.MarketBaseline{}, err
		}
		if !ok {
			return domain.MarketBaseline{}, fmt.Errorf("market: baseline %s / %s vanished after create", location, category)
		}
	}

	s.cacheSet(ctx, b)
	return b, nil
}

// Recompute rebuilds the baseline for the pair from stored listings and
// records this month's average in its history. It reports false when there
// were too few listings to publish.
func (s *Service) Recompute(ctx context.Context, location, category string) (domain.MarketBaseline, bool, error) {
	location, category = Key(location, category)

	samples, err := s.repo.ListingSamples(ctx, location, category)
	if err != nil {
		return domain.MarketBaseline{}, false, err
	}
	if len(samples) < MinSamples {
		s.log.Info("[MARKET] skipping %s / %s (samples=%d)", location, category, len(samples))
		return domain.MarketBaseline{}, false, nil
	}

	prev, _, err := s.repo.GetBaseline(ctx, location, category)
	if err != nil {
		return domain.MarketBaseline{}, false, err
	}

	avg, perArea := aggregate(samples)
	now := s.now().UTC()
	b := domain.MarketBaseline{
		Location:            location,
		Category:            category,
		AveragePrice:        avg,
		PricePerAreaUnit:    perArea,
		ListingCount:        len(samples),
		AverageDaysOnMarket: prev.AverageDaysOnMarket,
		HistoricalPrices:    mergePoint(prev.HistoricalPrices, domain.PricePoint{Period: now.Format("2006-01"), Price: avg}),
		UpdatedAt:           now,
	}

	if err := s.repo.UpsertBaseline(ctx, b); err != nil {
		return domain.MarketBaseline{}, false, err
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, location, category); err != nil {
			s.log.Warn("[MARKET] cache delete %s / %s: %v", location, category, err)
		}
	}

	s.log.Info("[MARKET] %s / %s → avg=%s per_area=%s samples=%d", location, category, avg, perArea, len(samples))
	return b, true, nil
}

func (s *Service) cacheSet(ctx context.Context, b domain.MarketBaseline) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, b); err != nil {
		s.log.Warn("[MARKET] cache set %s / %s: %v", b.Location, b.Category, err)
	}
}

// aggregate returns the mean price and the mean price per area unit over
// listings with a positive area, both rounded to cents.
func aggregate(samples []storage.ListingSample) (decimal.Decimal, decimal.Decimal) {
	sum := decimal.Zero
	perAreaSum := decimal.Zero
	withArea := 0
	for _, ls := range samples {
		sum = sum.Add(ls.Price)
		if ls.AreaSQM.IsPositive() {
			perAreaSum = perAreaSum.Add(ls.Price.Div(ls.AreaSQM))
			withArea++
		}
	}

	avg := sum.Div(decimal.NewFromInt(int64(len(samples)))).Round(2)
	perArea := decimal.Zero
	if withArea > 0 {
		perArea = perAreaSum.Div(decimal.NewFromInt(int64(withArea))).Round(2)
	}
	return avg, perArea
}

// mergePoint replaces the point for pt.Period or appends it, keeping order.
func mergePoint(history []domain.PricePoint, pt domain.PricePoint) []domain.PricePoint {
	out := make([]domain.PricePoint, 0, len(history)+1)
	replaced := false
	for _, h := range history {
		if h.Period == pt.Period {
			out = append(out, pt)
			replaced = true
			continue
		}
		out = append(out, h)
	}
	if !replaced {
		out = append(out, pt)
	}
	return out
}
