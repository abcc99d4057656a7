package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/denisok6893-rgb/stay-pricing/internal/domain"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	if err := st.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	return st
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func nd(s string) decimal.NullDecimal { return decimal.NewNullDecimal(dec(s)) }

func sampleProperties() []domain.Property {
	return []domain.Property{
		{
			ID: "villa-1", Title: "Sea villa", Location: "Valencia", Category: "villa",
			Price: dec("450000"), Bedrooms: 4, Bathrooms: 2, AreaSQM: dec("140"),
			Amenities: []string{"pool"},
			Rates:     domain.RateCard{Kind: domain.ShortStay, NightlyRate: nd("180.50"), WeeklyRate: nd("1100")},
		},
		{
			ID: "flat-1", Title: "Old town flat", Location: "Valencia center", Category: "apartment",
			Price: dec("320000"), Bedrooms: 3, Bathrooms: 1, AreaSQM: dec("110"),
			Rates: domain.RateCard{Kind: domain.LongTermRental, DailyRate: nd("45"), MonthlyRate: nd("1200")},
		},
		{
			ID: "flat-2", Title: "Madrid loft", Location: "Madrid", Category: "apartment",
			Price: dec("500000"), Bedrooms: 4, Bathrooms: 3, AreaSQM: dec("160"),
			Rates: domain.RateCard{Kind: domain.LongTermRental, DailyRate: nd("60")},
		},
	}
}

func TestSQLiteStore_PropertiesRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	if err := st.UpsertMany(ctx, sampleProperties()); err != nil {
		t.Fatalf("UpsertMany: %v", err)
	}
	// Second seed must not duplicate.
	if err := st.UpsertMany(ctx, sampleProperties()); err != nil {
		t.Fatalf("UpsertMany again: %v", err)
	}
	n, err := st.CountProperties(ctx)
	if err != nil || n != 3 {
		t.Fatalf("CountProperties=%d err=%v want 3", n, err)
	}

	p, ok, err := st.GetProperty(ctx, "villa-1")
	if err != nil || !ok {
		t.Fatalf("GetProperty ok=%v err=%v", ok, err)
	}
	if !p.Rates.NightlyRate.Valid || !p.Rates.NightlyRate.Decimal.Equal(dec("180.50")) {
		t.Fatalf("nightly_rate=%+v", p.Rates.NightlyRate)
	}
	if p.Rates.MonthlyRate.Valid {
		t.Fatalf("monthly_rate should be absent, got %s", p.Rates.MonthlyRate.Decimal)
	}
	if p.Rates.Kind != domain.ShortStay || len(p.Amenities) != 1 || p.CreatedAt.IsZero() {
		t.Fatalf("unexpected property %+v", p)
	}

	if _, ok, _ := st.GetProperty(ctx, "nope"); ok {
		t.Fatal("GetProperty on missing id returned ok")
	}

	zeroWeekly := domain.RateCard{Kind: domain.ShortStay, NightlyRate: nd("100"), WeeklyRate: nd("0")}
	if ok, err := st.UpdateRates(ctx, "villa-1", zeroWeekly); err != nil || !ok {
		t.Fatalf("UpdateRates ok=%v err=%v", ok, err)
	}
	p, _, _ = st.GetProperty(ctx, "villa-1")
	if !p.Rates.WeeklyRate.Valid || !p.Rates.WeeklyRate.Decimal.IsZero() {
		t.Fatalf("zero weekly rate not preserved as present: %+v", p.Rates.WeeklyRate)
	}

	if ok, err := st.DeleteProperty(ctx, "flat-2"); err != nil || !ok {
		t.Fatalf("DeleteProperty ok=%v err=%v", ok, err)
	}
	if ok, _ := st.DeleteProperty(ctx, "flat-2"); ok {
		t.Fatal("second delete reported a row")
	}
}

func TestSQLiteStore_ListPropertiesFiltered(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	if err := st.UpsertMany(ctx, sampleProperties()); err != nil {
		t.Fatalf("UpsertMany: %v", err)
	}

	got, total, err := st.ListPropertiesFiltered(ctx, ListFilter{Location: "VALENCIA", MinPrice: 400000, MinBedrooms: 4, Sort: "price_desc"})
	if err != nil {
		t.Fatalf("ListPropertiesFiltered: %v", err)
	}
	if total != 1 || len(got) != 1 || got[0].ID != "villa-1" {
		t.Fatalf("total=%d items=%+v", total, got)
	}

	got, total, err = st.ListPropertiesFiltered(ctx, ListFilter{Category: "apartment", Sort: "price_asc"})
	if err != nil {
		t.Fatalf("ListPropertiesFiltered: %v", err)
	}
	if total != 2 || got[0].ID != "flat-1" || got[1].ID != "flat-2" {
		t.Fatalf("total=%d items=%+v", total, got)
	}

	got, total, err = st.ListPropertiesFiltered(ctx, ListFilter{Kind: domain.LongTermRental, Limit: 1, Offset: 1, Sort: "price_asc"})
	if err != nil {
		t.Fatalf("ListPropertiesFiltered: %v", err)
	}
	if total != 2 || len(got) != 1 || got[0].ID != "flat-2" {
		t.Fatalf("paged total=%d items=%+v", total, got)
	}

	samples, err := st.ListingSamples(ctx, "valencia", "VILLA")
	if err != nil || len(samples) != 1 || !samples[0].AreaSQM.Equal(dec("140")) {
		t.Fatalf("ListingSamples=%+v err=%v", samples, err)
	}
}

func TestSQLiteStore_Baselines(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	if _, ok, err := st.GetBaseline(ctx, "valencia", "villa"); ok || err != nil {
		t.Fatalf("empty GetBaseline ok=%v err=%v", ok, err)
	}

	b := domain.MarketBaseline{
		Location: "valencia", Category: "villa",
		AveragePrice: dec("450000"), PricePerAreaUnit: dec("3214.29"), ListingCount: 4,
		HistoricalPrices: []domain.PricePoint{{Period: "2024-02", Price: dec("440000")}, {Period: "2024-01", Price: dec("430000")}},
		UpdatedAt:        time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := st.UpsertBaseline(ctx, b); err != nil {
		t.Fatalf("UpsertBaseline: %v", err)
	}

	b.ListingCount = 5
	b.HistoricalPrices = []domain.PricePoint{{Period: "2024-02", Price: dec("455000")}, {Period: "2024-03", Price: dec("460000")}}
	if err := st.UpsertBaseline(ctx, b); err != nil {
		t.Fatalf("UpsertBaseline again: %v", err)
	}

	got, ok, err := st.GetBaseline(ctx, "valencia", "villa")
	if err != nil || !ok {
		t.Fatalf("GetBaseline ok=%v err=%v", ok, err)
	}
	if got.ListingCount != 5 || !got.PricePerAreaUnit.Equal(dec("3214.29")) {
		t.Fatalf("baseline=%+v", got)
	}
	wantPeriods := []string{"2024-01", "2024-02", "2024-03"}
	if len(got.HistoricalPrices) != len(wantPeriods) {
		t.Fatalf("history=%+v", got.HistoricalPrices)
	}
	for i, p := range wantPeriods {
		if got.HistoricalPrices[i].Period != p {
			t.Fatalf("history[%d]=%s want %s", i, got.HistoricalPrices[i].Period, p)
		}
	}
	if !got.HistoricalPrices[1].Price.Equal(dec("455000")) {
		t.Fatalf("2024-02 price=%s want 455000", got.HistoricalPrices[1].Price)
	}
}

func TestSQLiteStore_CreateBaselineIfAbsent(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	empty := domain.MarketBaseline{Location: "nairobi", Category: "apartment", AveragePrice: dec("0"), PricePerAreaUnit: dec("0")}
	created, err := st.CreateBaselineIfAbsent(ctx, empty)
	if err != nil || !created {
		t.Fatalf("first create created=%v err=%v", created, err)
	}

	published := domain.MarketBaseline{
		Location: "nairobi", Category: "apartment",
		AveragePrice: dec("200000"), PricePerAreaUnit: dec("2000"), ListingCount: 3,
	}
	if err := st.UpsertBaseline(ctx, published); err != nil {
		t.Fatalf("UpsertBaseline: %v", err)
	}

	created, err = st.CreateBaselineIfAbsent(ctx, empty)
	if err != nil || created {
		t.Fatalf("second create created=%v err=%v", created, err)
	}
	got, ok, err := st.GetBaseline(ctx, "nairobi", "apartment")
	if err != nil || !ok {
		t.Fatalf("GetBaseline ok=%v err=%v", ok, err)
	}
	if got.ListingCount != 3 || !got.AveragePrice.Equal(dec("200000")) {
		t.Fatalf("published baseline overwritten: %+v", got)
	}
}

func TestSQLiteStore_CorruptAmenities(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	if err := st.UpsertMany(ctx, sampleProperties()); err != nil {
		t.Fatalf("UpsertMany: %v", err)
	}
	if _, err := st.db.ExecContext(ctx, `UPDATE properties SET amenities_json = '{not json' WHERE id = 'villa-1'`); err != nil {
		t.Fatalf("corrupt row: %v", err)
	}

	if _, _, err := st.GetProperty(ctx, "villa-1"); err == nil {
		t.Fatal("GetProperty on corrupt amenities: expected error")
	}
	if _, _, err := st.ListPropertiesFiltered(ctx, ListFilter{Category: "villa"}); err == nil {
		t.Fatal("ListPropertiesFiltered on corrupt amenities: expected error")
	}
	if _, ok, err := st.GetProperty(ctx, "flat-1"); err != nil || !ok {
		t.Fatalf("intact row ok=%v err=%v", ok, err)
	}
}

func TestSQLiteStore_ValuationReports(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	beds := 3
	r := domain.ValuationReport{
		ID:         "7d3f9b1e-3a52-4c1e-9a3c-0f4d6c2b8e11",
		PropertyID: "villa-1",
		Inputs:     domain.ValuationInputs{Location: "valencia", Category: "villa", Area: nd("200"), Bedrooms: &beds},
		Result: domain.ValuationResult{
			EstimatedValue: dec("5400000"),
			Confidence:     domain.ConfidenceHigh,
			Factors:        domain.ValuationFactors{MarketTrend: domain.TrendStable},
			ValidUntil:     time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		},
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := st.SaveValuationReport(ctx, r); err != nil {
		t.Fatalf("SaveValuationReport: %v", err)
	}

	got, ok, err := st.GetValuationReport(ctx, r.ID)
	if err != nil || !ok {
		t.Fatalf("GetValuationReport ok=%v err=%v", ok, err)
	}
	if !got.Result.EstimatedValue.Equal(r.Result.EstimatedValue) || got.Result.Confidence != domain.ConfidenceHigh {
		t.Fatalf("result=%+v", got.Result)
	}
	if got.Inputs.Bedrooms == nil || *got.Inputs.Bedrooms != 3 || got.Inputs.Bathrooms != nil {
		t.Fatalf("inputs=%+v", got.Inputs)
	}
	if !got.Inputs.Area.Valid || !got.Inputs.Area.Decimal.Equal(dec("200")) {
		t.Fatalf("area=%+v", got.Inputs.Area)
	}

	if _, ok, _ := st.GetValuationReport(ctx, "missing"); ok {
		t.Fatal("missing report returned ok")
	}
}

func TestLoadPropertiesFromFile(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.json")
	if err := os.WriteFile(good, []byte(`[
  {"id": "p-1", "title": "A", "location": "Valencia", "category": "villa", "price": 1000,
   "rates": {"listing_kind": "short_stay", "nightly_rate": "90", "weekly_rate": null}}
]`), 0o600); err != nil {
		t.Fatal(err)
	}
	props, err := LoadPropertiesFromFile(good)
	if err != nil {
		t.Fatalf("LoadPropertiesFromFile: %v", err)
	}
	if len(props) != 1 || !props[0].Rates.NightlyRate.Valid || props[0].Rates.WeeklyRate.Valid {
		t.Fatalf("props=%+v", props)
	}

	for name, body := range map[string]string{
		"bad_kind.json":      `[{"title": "A", "location": "V", "category": "villa", "rates": {"listing_kind": "hourly"}}]`,
		"missing_title.json": `[{"location": "V", "category": "villa", "rates": {"listing_kind": "short_stay"}}]`,
		"negative.json":      `[{"title": "A", "location": "V", "category": "villa", "rates": {"listing_kind": "short_stay", "nightly_rate": -5}}]`,
	} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadPropertiesFromFile(path); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}
