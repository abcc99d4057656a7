package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/denisok6893-rgb/stay-pricing/internal/domain"
)

type PostgresStore struct {
	db *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// OpenPostgres connects a pool to dsn and pings it.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour

	db, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{`
		CREATE TABLE IF NOT EXISTS properties (
			id           TEXT PRIMARY KEY,
			title        TEXT NOT NULL,
			location     TEXT NOT NULL,
			category     TEXT NOT NULL,
			listing_kind VARCHAR(32) NOT NULL,
			price        NUMERIC NOT NULL DEFAULT 0,
			bedrooms     INTEGER NOT NULL DEFAULT 0,
			bathrooms    INTEGER NOT NULL DEFAULT 0,
			area_sqm     NUMERIC NOT NULL DEFAULT 0,
			amenities    TEXT[] NOT NULL DEFAULT '{}',
			nightly_rate NUMERIC NULL,
			weekly_rate  NUMERIC NULL,
			monthly_rate NUMERIC NULL,
			daily_rate   NUMERIC NULL,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_properties_location ON properties(location)`,
		`CREATE INDEX IF NOT EXISTS idx_properties_category ON properties(category)`,
		`
		CREATE TABLE IF NOT EXISTS market_baselines (
			location               TEXT NOT NULL,
			category               TEXT NOT NULL,
			average_price          NUMERIC NOT NULL DEFAULT 0,
			price_per_area_unit    NUMERIC NOT NULL DEFAULT 0,
			listing_count          INTEGER NOT NULL DEFAULT 0,
			average_days_on_market INTEGER NOT NULL DEFAULT 0,
			trend                  VARCHAR(16) NOT NULL DEFAULT '',
			updated_at             TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (location, category)
		)`,
		`
		CREATE TABLE IF NOT EXISTS baseline_price_points (
			location TEXT NOT NULL,
			category TEXT NOT NULL,
			period   VARCHAR(16) NOT NULL,
			price    NUMERIC NOT NULL,
			PRIMARY KEY (location, category, period),
			FOREIGN KEY (location, category) REFERENCES market_baselines(location, category) ON DELETE CASCADE
		)`,
		`
		CREATE TABLE IF NOT EXISTS valuation_reports (
			id              UUID PRIMARY KEY,
			property_id     TEXT NOT NULL DEFAULT '',
			location        TEXT NOT NULL,
			category        TEXT NOT NULL,
			estimated_value NUMERIC NOT NULL,
			confidence      VARCHAR(16) NOT NULL,
			inputs          JSONB NOT NULL,
			result          JSONB NOT NULL,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}
	for _, q := range stmts {
		if _, err := s.db.Exec(ctx, q); err != nil {
			return fmt.Errorf("postgres: ensure schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) CountProperties(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM properties`).Scan(&n)
	return n, err
}

const pgPropertyColumns = `id, title, location, category, listing_kind, price, bedrooms, bathrooms, area_sqm,
	amenities, nightly_rate, weekly_rate, monthly_rate, daily_rate, created_at`

func pgPropertyArgs(p domain.Property) []any {
	return []any{
		p.ID, p.Title, p.Location, p.Category, string(p.Rates.Kind), p.Price, p.Bedrooms, p.Bathrooms, p.AreaSQM,
		p.Amenities, p.Rates.NightlyRate, p.Rates.WeeklyRate, p.Rates.MonthlyRate, p.Rates.DailyRate, p.CreatedAt,
	}
}

func pgScanProperty(r pgx.Row) (domain.Property, error) {
	var p domain.Property
	var kind string
	if err := r.Scan(
		&p.ID, &p.Title, &p.Location, &p.Category, &kind, &p.Price, &p.Bedrooms, &p.Bathrooms, &p.AreaSQM,
		&p.Amenities, &p.Rates.NightlyRate, &p.Rates.WeeklyRate, &p.Rates.MonthlyRate, &p.Rates.DailyRate, &p.CreatedAt,
	); err != nil {
		return domain.Property{}, err
	}
	p.Rates.Kind = domain.ListingKind(kind)
	return p, nil
}

func (s *PostgresStore) UpsertMany(ctx context.Context, items []domain.Property) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, p := range items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO properties (`+pgPropertyColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
			ON CONFLICT (id) DO NOTHING
		`, pgPropertyArgs(prepareProperty(p))...); err != nil {
			return fmt.Errorf("postgres: upsert property %q: %w", p.ID, err)
		}
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) CreateProperty(ctx context.Context, p domain.Property) (domain.Property, error) {
	p = prepareProperty(p)
	_, err := s.db.Exec(ctx, `
		INSERT INTO properties (`+pgPropertyColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, pgPropertyArgs(p)...)
	return p, err
}

func (s *PostgresStore) GetProperty(ctx context.Context, id string) (domain.Property, bool, error) {
	p, err := pgScanProperty(s.db.QueryRow(ctx, `SELECT `+pgPropertyColumns+` FROM properties WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Property{}, false, nil
	}
	if err != nil {
		return domain.Property{}, false, err
	}
	return p, true, nil
}

func (s *PostgresStore) DeleteProperty(ctx context.Context, id string) (bool, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM properties WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) UpdateRates(ctx context.Context, id string, card domain.RateCard) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE properties
		SET listing_kind = $1, nightly_rate = $2, weekly_rate = $3, monthly_rate = $4, daily_rate = $5
		WHERE id = $6
	`, string(card.Kind), card.NightlyRate, card.WeeklyRate, card.MonthlyRate, card.DailyRate, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) ListPropertiesFiltered(ctx context.Context, f ListFilter) ([]domain.Property, int, error) {
	f = f.normalized()

	where := make([]string, 0, 6)
	args := make([]any, 0, 8)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Location != "" {
		where = append(where, "location ILIKE '%' || "+arg(f.Location)+" || '%'")
	}
	if f.Category != "" {
		where = append(where, "LOWER(category) = LOWER("+arg(f.Category)+")")
	}
	if f.Kind != "" {
		where = append(where, "listing_kind = "+arg(string(f.Kind)))
	}
	if f.MinPrice > 0 {
		where = append(where, "price >= "+arg(f.MinPrice))
	}
	if f.MaxPrice > 0 {
		where = append(where, "price <= "+arg(f.MaxPrice))
	}
	if f.MinBedrooms > 0 {
		where = append(where, "bedrooms >= "+arg(f.MinBedrooms))
	}

	whereSQL := ""
	if len(where) > 0 {
		whereSQL = "WHERE " + strings.Join(where, " AND ")
	}

	orderSQL := "ORDER BY created_at, id"
	switch f.Sort {
	case "price_asc":
		orderSQL = "ORDER BY price ASC, id"
	case "price_desc":
		orderSQL = "ORDER BY price DESC, id"
	case "newest":
		orderSQL = "ORDER BY created_at DESC, id"
	}

	var total int
	if err := s.db.QueryRow(ctx, "SELECT COUNT(*) FROM properties "+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, offset := arg(f.Limit), arg(f.Offset)
	rows, err := s.db.Query(ctx,
		"SELECT "+pgPropertyColumns+" FROM properties "+whereSQL+" "+orderSQL+" LIMIT "+limit+" OFFSET "+offset,
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []domain.Property
	for rows.Next() {
		p, err := pgScanProperty(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *PostgresStore) ListingSamples(ctx context.Context, location, category string) ([]ListingSample, error) {
	rows, err := s.db.Query(ctx, `
		SELECT price, area_sqm FROM properties
		WHERE LOWER(location) = LOWER($1) AND LOWER(category) = LOWER($2)
	`, location, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ListingSample
	for rows.Next() {
		var ls ListingSample
		if err := rows.Scan(&ls.Price, &ls.AreaSQM); err != nil {
			return nil, err
		}
		out = append(out, ls)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetBaseline(ctx context.Context, location, category string) (domain.MarketBaseline, bool, error) {
	b := domain.MarketBaseline{Location: location, Category: category}
	var trend string
	err := s.db.QueryRow(ctx, `
		SELECT average_price, price_per_area_unit, listing_count, average_days_on_market, trend, updated_at
		FROM market_baselines
		WHERE location = $1 AND category = $2
	`, location, category).Scan(&b.AveragePrice, &b.PricePerAreaUnit, &b.ListingCount, &b.AverageDaysOnMarket, &trend, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.MarketBaseline{}, false, nil
	}
	if err != nil {
		return domain.MarketBaseline{}, false, err
	}
	b.Trend = domain.Trend(trend)

	rows, err := s.db.Query(ctx, `
		SELECT period, price FROM baseline_price_points
		WHERE location = $1 AND category = $2
		ORDER BY period
	`, location, category)
	if err != nil {
		return domain.MarketBaseline{}, false, err
	}
	defer rows.Close()
	for rows.Next() {
		var pt domain.PricePoint
		if err := rows.Scan(&pt.Period, &pt.Price); err != nil {
			return domain.MarketBaseline{}, false, err
		}
		b.HistoricalPrices = append(b.HistoricalPrices, pt)
	}
	return b, true, rows.Err()
}

func (s *PostgresStore) UpsertBaseline(ctx context.Context, b domain.MarketBaseline) error {
	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = time.Now().UTC()
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		INSERT INTO market_baselines (
			location, category, average_price, price_per_area_unit,
			listing_count, average_days_on_market, trend, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (location, category)
		DO UPDATE SET
			average_price = EXCLUDED.average_price,
			price_per_area_unit = EXCLUDED.price_per_area_unit,
			listing_count = EXCLUDED.listing_count,
			average_days_on_market = EXCLUDED.average_days_on_market,
			trend = EXCLUDED.trend,
			updated_at = EXCLUDED.updated_at
	`, b.Location, b.Category, b.AveragePrice, b.PricePerAreaUnit, b.ListingCount, b.AverageDaysOnMarket, string(b.Trend), b.UpdatedAt); err != nil {
		return fmt.Errorf("postgres: upsert baseline: %w", err)
	}

	for _, pt := range b.HistoricalPrices {
		if _, err := tx.Exec(ctx, `
			INSERT INTO baseline_price_points (location, category, period, price)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (location, category, period) DO UPDATE SET price = EXCLUDED.price
		`, b.Location, b.Category, pt.Period, pt.Price); err != nil {
			return fmt.Errorf("postgres: upsert price point %s: %w", pt.Period, err)
		}
	}
	return tx.Commit(ctx)
}

// CreateBaselineIfAbsent inserts the baseline row only when none exists for the
// pair; an existing row is never touched. Price points are not written.
func (s *PostgresStore) CreateBaselineIfAbsent(ctx context.Context, b domain.MarketBaseline) (bool, error) {
	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = time.Now().UTC()
	}
	tag, err := s.db.Exec(ctx, `
		INSERT INTO market_baselines (
			location, category, average_price, price_per_area_unit,
			listing_count, average_days_on_market, trend, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (location, category) DO NOTHING
	`, b.Location, b.Category, b.AveragePrice, b.PricePerAreaUnit, b.ListingCount, b.AverageDaysOnMarket, string(b.Trend), b.UpdatedAt)
	if err != nil {
		return false, fmt.Errorf("postgres: create baseline: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) SaveValuationReport(ctx context.Context, r domain.ValuationReport) error {
	in, err := json.Marshal(r.Inputs)
	if err != nil {
		return fmt.Errorf("marshal valuation inputs: %w", err)
	}
	res, err := json.Marshal(r.Result)
	if err != nil {
		return fmt.Errorf("marshal valuation result: %w", err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO valuation_reports
			(id, property_id, location, category, estimated_value, confidence, inputs, result, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, r.ID, r.PropertyID, r.Inputs.Location, r.Inputs.Category, r.Result.EstimatedValue, string(r.Result.Confidence),
		in, res, r.CreatedAt)
	return err
}

func (s *PostgresStore) GetValuationReport(ctx context.Context, id string) (domain.ValuationReport, bool, error) {
	r := domain.ValuationReport{ID: id}
	var in, res []byte
	err := s.db.QueryRow(ctx, `
		SELECT property_id, inputs, result, created_at
		FROM valuation_reports
		WHERE id = $1
	`, id).Scan(&r.PropertyID, &in, &res, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ValuationReport{}, false, nil
	}
	if err != nil {
		return domain.ValuationReport{}, false, err
	}
	if err := json.Unmarshal(in, &r.Inputs); err != nil {
		return domain.ValuationReport{}, false, fmt.Errorf("unmarshal valuation inputs: %w", err)
	}
	if err := json.Unmarshal(res, &r.Result); err != nil {
		return domain.ValuationReport{}, false, fmt.Errorf("unmarshal valuation result: %w", err)
	}
	return r, true, nil
}
