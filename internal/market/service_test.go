package market

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/denisok6893-rgb/stay-pricing/internal/domain"
	"github.com/denisok6893-rgb/stay-pricing/internal/storage"
)

// --------------------------------------------------
// Fakes
// --------------------------------------------------

type fakeRepo struct {
	samples   map[string][]storage.ListingSample
	baselines map[string]domain.MarketBaseline
	upserts   int
	creates   int

	// onMiss runs once after GetBaseline reports a missing pair.
	onMiss func()
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		samples:   make(map[string][]storage.ListingSample),
		baselines: make(map[string]domain.MarketBaseline),
	}
}

func (r *fakeRepo) ListingSamples(_ context.Context, location, category string) ([]storage.ListingSample, error) {
	return r.samples[location+"|"+category], nil
}

func (r *fakeRepo) GetBaseline(_ context.Context, location, category string) (domain.MarketBaseline, bool, error) {
	b, ok := r.baselines[location+"|"+category]
	if !ok && r.onMiss != nil {
		hook := r.onMiss
		r.onMiss = nil
		hook()
	}
	return b, ok, nil
}

func (r *fakeRepo) CreateBaselineIfAbsent(_ context.Context, b domain.MarketBaseline) (bool, error) {
	key := b.Location + "|" + b.Category
	if _, ok := r.baselines[key]; ok {
		return false, nil
	}
	r.creates++
	r.baselines[key] = b
	return true, nil
}

func (r *fakeRepo) UpsertBaseline(_ context.Context, b domain.MarketBaseline) error {
	r.upserts++
	r.baselines[b.Location+"|"+b.Category] = b
	return nil
}

type fakeCache struct {
	items  map[string]domain.MarketBaseline
	getErr error
}

func newFakeCache() *fakeCache {
	return &fakeCache{items: make(map[string]domain.MarketBaseline)}
}

func (c *fakeCache) Get(_ context.Context, location, category string) (domain.MarketBaseline, bool, error) {
	if c.getErr != nil {
		return domain.MarketBaseline{}, false, c.getErr
	}
	b, ok := c.items[location+"|"+category]
	return b, ok, nil
}

func (c *fakeCache) Set(_ context.Context, b domain.MarketBaseline) error {
	c.items[b.Location+"|"+b.Category] = b
	return nil
}

func (c *fakeCache) Delete(_ context.Context, location, category string) error {
	delete(c.items, location+"|"+category)
	return nil
}

func sample(price, area int64) storage.ListingSample {
	return storage.ListingSample{Price: decimal.NewFromInt(price), AreaSQM: decimal.NewFromInt(area)}
}

var clock = func() time.Time { return time.Date(2024, time.March, 10, 9, 0, 0, 0, time.UTC) }

// --------------------------------------------------
// Tests
// --------------------------------------------------

func TestBaseline_UpsertOnRead(t *testing.T) {
	repo := newFakeRepo()
	cache := newFakeCache()
	svc := NewService(repo, cache, nil, clock)

	b, err := svc.Baseline(context.Background(), "  Valencia ", "Villa")
	if err != nil {
		t.Fatalf("Baseline: %v", err)
	}
	if b.Location != "valencia" || b.Category != "villa" {
		t.Fatalf("key not normalised: %q / %q", b.Location, b.Category)
	}
	if !b.AveragePrice.IsZero() || b.ListingCount != 0 {
		t.Fatalf("expected zeroed baseline, got %+v", b)
	}
	if repo.creates != 1 || repo.upserts != 0 {
		t.Fatalf("creates=%d upserts=%d want 1/0", repo.creates, repo.upserts)
	}
	if _, ok := cache.items["valencia|villa"]; !ok {
		t.Fatal("baseline not cached")
	}

	// Served from cache, no new write.
	if _, err := svc.Baseline(context.Background(), "valencia", "villa"); err != nil {
		t.Fatalf("Baseline: %v", err)
	}
	if repo.creates != 1 {
		t.Fatalf("creates=%d want 1 after cached read", repo.creates)
	}
}

func TestBaseline_CacheErrorFallsBackToRepo(t *testing.T) {
	repo := newFakeRepo()
	repo.baselines["valencia|villa"] = domain.MarketBaseline{Location: "valencia", Category: "villa", ListingCount: 9}
	cache := newFakeCache()
	cache.getErr = errors.New("connection refused")

	b, err := NewService(repo, cache, nil, clock).Baseline(context.Background(), "valencia", "villa")
	if err != nil {
		t.Fatalf("Baseline: %v", err)
	}
	if b.ListingCount != 9 {
		t.Fatalf("listing_count=%d want 9", b.ListingCount)
	}
}

func TestBaseline_KeepsRecomputeThatLandsAfterMiss(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	repo.samples["nairobi|apartment"] = []storage.ListingSample{
		sample(100000, 50),
		sample(200000, 100),
		sample(300000, 150),
	}
	writer := NewService(repo, nil, nil, clock)
	repo.onMiss = func() {
		if _, ok, err := writer.Recompute(ctx, "nairobi", "apartment"); err != nil || !ok {
			t.Errorf("Recompute ok=%v err=%v", ok, err)
		}
	}

	b, err := NewService(repo, nil, nil, clock).Baseline(ctx, "nairobi", "apartment")
	if err != nil {
		t.Fatalf("Baseline: %v", err)
	}
	if b.ListingCount != 3 || !b.AveragePrice.Equal(decimal.NewFromInt(200000)) {
		t.Fatalf("served baseline=%+v, want the recomputed one", b)
	}
	stored := repo.baselines["nairobi|apartment"]
	if stored.ListingCount != 3 || !stored.AveragePrice.Equal(decimal.NewFromInt(200000)) {
		t.Fatalf("stored baseline overwritten: %+v", stored)
	}
	if repo.creates != 0 {
		t.Fatalf("creates=%d want 0", repo.creates)
	}
}

func TestRecompute(t *testing.T) {
	repo := newFakeRepo()
	repo.samples["valencia|villa"] = []storage.ListingSample{
		sample(300000, 100),
		sample(450000, 150),
		sample(600000, 0),
	}
	repo.baselines["valencia|villa"] = domain.MarketBaseline{
		Location: "valencia", Category: "villa", AverageDaysOnMarket: 41,
		HistoricalPrices: []domain.PricePoint{
			{Period: "2024-01", Price: decimal.NewFromInt(400000)},
			{Period: "2024-03", Price: decimal.NewFromInt(1)},
		},
	}
	cache := newFakeCache()
	cache.items["valencia|villa"] = domain.MarketBaseline{Location: "valencia", Category: "villa"}

	b, ok, err := NewService(repo, cache, nil, clock).Recompute(context.Background(), "Valencia", "VILLA")
	if err != nil || !ok {
		t.Fatalf("Recompute ok=%v err=%v", ok, err)
	}
	if !b.AveragePrice.Equal(decimal.NewFromInt(450000)) {
		t.Fatalf("average_price=%s want 450000", b.AveragePrice)
	}
	// Only listings with area count: 3000 and 3000.
	if !b.PricePerAreaUnit.Equal(decimal.NewFromInt(3000)) {
		t.Fatalf("price_per_area_unit=%s want 3000", b.PricePerAreaUnit)
	}
	if b.ListingCount != 3 || b.AverageDaysOnMarket != 41 {
		t.Fatalf("baseline=%+v", b)
	}
	if len(b.HistoricalPrices) != 2 || b.HistoricalPrices[1].Period != "2024-03" || !b.HistoricalPrices[1].Price.Equal(decimal.NewFromInt(450000)) {
		t.Fatalf("history=%+v", b.HistoricalPrices)
	}
	if _, cached := cache.items["valencia|villa"]; cached {
		t.Fatal("stale cache entry not invalidated")
	}
	if stored := repo.baselines["valencia|villa"]; stored.ListingCount != 3 {
		t.Fatalf("stored baseline=%+v", stored)
	}
}

func TestRecompute_TooFewSamples(t *testing.T) {
	repo := newFakeRepo()
	repo.samples["madrid|loft"] = []storage.ListingSample{sample(1, 1), sample(2, 1)}

	_, ok, err := NewService(repo, nil, nil, clock).Recompute(context.Background(), "madrid", "loft")
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if ok || repo.upserts != 0 {
		t.Fatalf("ok=%v upserts=%d, want skip", ok, repo.upserts)
	}
}
