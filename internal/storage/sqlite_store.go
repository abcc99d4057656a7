package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/denisok6893-rgb/stay-pricing/internal/domain"
)

type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

// Decimals are stored as TEXT to keep them exact; numeric filters cast to REAL.
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{`
CREATE TABLE IF NOT EXISTS properties (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  location TEXT NOT NULL,
  category TEXT NOT NULL,
  listing_kind TEXT NOT NULL,
  price TEXT NOT NULL DEFAULT '0',
  bedrooms INTEGER NOT NULL DEFAULT 0,
  bathrooms INTEGER NOT NULL DEFAULT 0,
  area_sqm TEXT NOT NULL DEFAULT '0',
  amenities_json TEXT NOT NULL DEFAULT '[]',
  nightly_rate TEXT NULL,
  weekly_rate TEXT NULL,
  monthly_rate TEXT NULL,
  daily_rate TEXT NULL,
  created_at TIMESTAMP NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS idx_properties_location ON properties(location);`,
		`CREATE INDEX IF NOT EXISTS idx_properties_category ON properties(category);`,
		`
CREATE TABLE IF NOT EXISTS market_baselines (
  location TEXT NOT NULL,
  category TEXT NOT NULL,
  average_price TEXT NOT NULL DEFAULT '0',
  price_per_area_unit TEXT NOT NULL DEFAULT '0',
  listing_count INTEGER NOT NULL DEFAULT 0,
  average_days_on_market INTEGER NOT NULL DEFAULT 0,
  trend TEXT NOT NULL DEFAULT '',
  updated_at TIMESTAMP NOT NULL,
  PRIMARY KEY (location, category)
);`,
		`
CREATE TABLE IF NOT EXISTS baseline_price_points (
  location TEXT NOT NULL,
  category TEXT NOT NULL,
  period TEXT NOT NULL,
  price TEXT NOT NULL,
  PRIMARY KEY (location, category, period),
  FOREIGN KEY (location, category) REFERENCES market_baselines(location, category) ON DELETE CASCADE
);`,
		`
CREATE TABLE IF NOT EXISTS valuation_reports (
  id TEXT PRIMARY KEY,
  property_id TEXT NOT NULL DEFAULT '',
  location TEXT NOT NULL,
  category TEXT NOT NULL,
  estimated_value TEXT NOT NULL,
  confidence TEXT NOT NULL,
  inputs_json TEXT NOT NULL,
  result_json TEXT NOT NULL,
  created_at TIMESTAMP NOT NULL
);`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("sqlite: ensure schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) CountProperties(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM properties`).Scan(&n)
	return n, err
}

const propertyColumns = `id, title, location, category, listing_kind, price, bedrooms, bathrooms, area_sqm,
amenities_json, nightly_rate, weekly_rate, monthly_rate, daily_rate, created_at`

func propertyArgs(p domain.Property) ([]any, error) {
	am, err := json.Marshal(p.Amenities)
	if err != nil {
		return nil, fmt.Errorf("marshal amenities: %w", err)
	}
	return []any{
		p.ID, p.Title, p.Location, p.Category, string(p.Rates.Kind), p.Price, p.Bedrooms, p.Bathrooms, p.AreaSQM,
		string(am), p.Rates.NightlyRate, p.Rates.WeeklyRate, p.Rates.MonthlyRate, p.Rates.DailyRate, p.CreatedAt,
	}, nil
}

func prepareProperty(p domain.Property) domain.Property {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if p.Amenities == nil {
		p.Amenities = []string{}
	}
	return p
}

// UpsertMany inserts a seed dataset without duplicating by id.
func (s *SQLiteStore) UpsertMany(ctx context.Context, items []domain.Property) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
INSERT OR IGNORE INTO properties (`+propertyColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range items {
		args, err := propertyArgs(prepareProperty(p))
		if err != nil {
			return fmt.Errorf("sqlite: upsert property %q: %w", p.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("sqlite: upsert property %q: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) CreateProperty(ctx context.Context, p domain.Property) (domain.Property, error) {
	p = prepareProperty(p)
	args, err := propertyArgs(p)
	if err != nil {
		return domain.Property{}, err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO properties (`+propertyColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, args...)
	return p, err
}

func (s *SQLiteStore) DeleteProperty(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM properties WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	aff, _ := res.RowsAffected()
	return aff > 0, nil
}

func (s *SQLiteStore) UpdateRates(ctx context.Context, id string, card domain.RateCard) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
UPDATE properties
SET listing_kind = ?, nightly_rate = ?, weekly_rate = ?, monthly_rate = ?, daily_rate = ?
WHERE id = ?
`, string(card.Kind), card.NightlyRate, card.WeeklyRate, card.MonthlyRate, card.DailyRate, id)
	if err != nil {
		return false, err
	}
	aff, _ := res.RowsAffected()
	return aff > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProperty(r rowScanner) (domain.Property, error) {
	var p domain.Property
	var kind, amJSON string
	if err := r.Scan(
		&p.ID, &p.Title, &p.Location, &p.Category, &kind, &p.Price, &p.Bedrooms, &p.Bathrooms, &p.AreaSQM,
		&amJSON, &p.Rates.NightlyRate, &p.Rates.WeeklyRate, &p.Rates.MonthlyRate, &p.Rates.DailyRate, &p.CreatedAt,
	); err != nil {
		return domain.Property{}, err
	}
	p.Rates.Kind = domain.ListingKind(kind)
	if err := json.Unmarshal([]byte(amJSON), &p.Amenities); err != nil {
		return domain.Property{}, fmt.Errorf("property %q: decode amenities: %w", p.ID, err)
	}
	return p, nil
}

func (s *SQLiteStore) GetProperty(ctx context.Context, id string) (domain.Property, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+propertyColumns+` FROM properties WHERE id = ?`, id)
	p, err := scanProperty(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Property{}, false, nil
	}
	if err != nil {
		return domain.Property{}, false, err
	}
	return p, true, nil
}

func (s *SQLiteStore) ListPropertiesFiltered(ctx context.Context, f ListFilter) ([]domain.Property, int, error) {
	f = f.normalized()

	where := make([]string, 0, 6)
	args := make([]any, 0, 8)

	if f.Location != "" {
		where = append(where, "LOWER(location) LIKE '%' || LOWER(?) || '%'")
		args = append(args, f.Location)
	}
	if f.Category != "" {
		where = append(where, "LOWER(category) = LOWER(?)")
		args = append(args, f.Category)
	}
	if f.Kind != "" {
		where = append(where, "listing_kind = ?")
		args = append(args, string(f.Kind))
	}
	if f.MinPrice > 0 {
		where = append(where, "CAST(price AS REAL) >= ?")
		args = append(args, f.MinPrice)
	}
	if f.MaxPrice > 0 {
		where = append(where, "CAST(price AS REAL) <= ?")
		args = append(args, f.MaxPrice)
	}
	if f.MinBedrooms > 0 {
		where = append(where, "bedrooms >= ?")
		args = append(args, f.MinBedrooms)
	}

	whereSQL := ""
	if len(where) > 0 {
		whereSQL = "WHERE " + strings.Join(where, " AND ")
	}

	orderSQL := "ORDER BY created_at, id"
	switch f.Sort {
	case "price_asc":
		orderSQL = "ORDER BY CAST(price AS REAL) ASC, id"
	case "price_desc":
		orderSQL = "ORDER BY CAST(price AS REAL) DESC, id"
	case "newest":
		orderSQL = "ORDER BY created_at DESC, id"
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM properties "+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rowsSQL := "SELECT " + propertyColumns + "\nFROM properties\n" + whereSQL + "\n" + orderSQL + "\nLIMIT ? OFFSET ?"
	rowsArgs := append(append([]any{}, args...), f.Limit, f.Offset)

	rows, err := s.db.QueryContext(ctx, rowsSQL, rowsArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []domain.Property
	for rows.Next() {
		p, err := scanProperty(rows)
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

func (s *SQLiteStore) ListingSamples(ctx context.Context, location, category string) ([]ListingSample, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT price, area_sqm FROM properties
WHERE LOWER(location) = LOWER(?) AND LOWER(category) = LOWER(?)
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

func (s *SQLiteStore) GetBaseline(ctx context.Context, location, category string) (domain.MarketBaseline, bool, error) {
	b := domain.MarketBaseline{Location: location, Category: category}
	var trend string
	err := s.db.QueryRowContext(ctx, `
SELECT average_price, price_per_area_unit, listing_count, average_days_on_market, trend, updated_at
FROM market_baselines WHERE location = ? AND category = ?
`, location, category).Scan(&b.AveragePrice, &b.PricePerAreaUnit, &b.ListingCount, &b.AverageDaysOnMarket, &trend, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.MarketBaseline{}, false, nil
	}
	if err != nil {
		return domain.MarketBaseline{}, false, err
	}
	b.Trend = domain.Trend(trend)

	rows, err := s.db.QueryContext(ctx, `
SELECT period, price FROM baseline_price_points
WHERE location = ? AND category = ?
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

// UpsertBaseline writes the baseline row and merges its price points by period.
func (s *SQLiteStore) UpsertBaseline(ctx context.Context, b domain.MarketBaseline) error {
	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
INSERT INTO market_baselines
(location, category, average_price, price_per_area_unit, listing_count, average_days_on_market, trend, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (location, category) DO UPDATE SET
  average_price = excluded.average_price,
  price_per_area_unit = excluded.price_per_area_unit,
  listing_count = excluded.listing_count,
  average_days_on_market = excluded.average_days_on_market,
  trend = excluded.trend,
  updated_at = excluded.updated_at
`, b.Location, b.Category, b.AveragePrice, b.PricePerAreaUnit, b.ListingCount, b.AverageDaysOnMarket, string(b.Trend), b.UpdatedAt); err != nil {
		return fmt.Errorf("sqlite: upsert baseline: %w", err)
	}

	for _, pt := range b.HistoricalPrices {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO baseline_price_points (location, category, period, price)
VALUES (?, ?, ?, ?)
ON CONFLICT (location, category, period) DO UPDATE SET price = excluded.price
`, b.Location, b.Category, pt.Period, pt.Price); err != nil {
			return fmt.Errorf("sqlite: upsert price point %s: %w", pt.Period, err)
		}
	}
	return tx.Commit()
}

// CreateBaselineIfAbsent inserts the baseline row only when none exists for the
// pair; an existing row is never touched. Price points are not written.
func (s *SQLiteStore) CreateBaselineIfAbsent(ctx context.Context, b domain.MarketBaseline) (bool, error) {
	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
INSERT INTO market_baselines
(location, category, average_price, price_per_area_unit, listing_count, average_days_on_market, trend, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (location, category) DO NOTHING
`, b.Location, b.Category, b.AveragePrice, b.PricePerAreaUnit, b.ListingCount, b.AverageDaysOnMarket, string(b.Trend), b.UpdatedAt)
	if err != nil {
		return false, fmt.Errorf("sqlite: create baseline: %w", err)
	}
	aff, _ := res.RowsAffected()
	return aff > 0, nil
}

func (s *SQLiteStore) SaveValuationReport(ctx context.Context, r domain.ValuationReport) error {
	in, err := json.Marshal(r.Inputs)
	if err != nil {
		return fmt.Errorf("marshal valuation inputs: %w", err)
	}
	res, err := json.Marshal(r.Result)
	if err != nil {
		return fmt.Errorf("marshal valuation result: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO valuation_reports
(id, property_id, location, category, estimated_value, confidence, inputs_json, result_json, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`, r.ID, r.PropertyID, r.Inputs.Location, r.Inputs.Category, r.Result.EstimatedValue, string(r.Result.Confidence),
		string(in), string(res), r.CreatedAt)
	return err
}

func (s *SQLiteStore) GetValuationReport(ctx context.Context, id string) (domain.ValuationReport, bool, error) {
	r := domain.ValuationReport{ID: id}
	var inJSON, resJSON string
	err := s.db.QueryRowContext(ctx, `
SELECT property_id, inputs_json, result_json, created_at FROM valuation_reports WHERE id = ?
`, id).Scan(&r.PropertyID, &inJSON, &resJSON, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ValuationReport{}, false, nil
	}
	if err != nil {
		return domain.ValuationReport{}, false, err
	}
	if err := json.Unmarshal([]byte(inJSON), &r.Inputs); err != nil {
		return domain.ValuationReport{}, false, fmt.Errorf("unmarshal valuation inputs: %w", err)
	}
	if err := json.Unmarshal([]byte(resJSON), &r.Result); err != nil {
		return domain.ValuationReport{}, false, fmt.Errorf("unmarshal valuation result: %w", err)
	}
	return r, true, nil
}
