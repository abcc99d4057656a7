package storage

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/denisok6893-rgb/stay-pricing/internal/domain"
)

// Store is the persistence contract shared by the SQLite and Postgres backends.
type Store interface {
	EnsureSchema(ctx context.Context) error
	Close() error

	CountProperties(ctx context.Context) (int, error)
	UpsertMany(ctx context.Context, items []domain.Property) error
	CreateProperty(ctx context.Context, p domain.Property) (domain.Property, error)
	GetProperty(ctx context.Context, id string) (domain.Property, bool, error)
	DeleteProperty(ctx context.Context, id string) (bool, error)
	UpdateRates(ctx context.Context, id string, card domain.RateCard) (bool, error)
	ListPropertiesFiltered(ctx context.Context, f ListFilter) ([]domain.Property, int, error)
	ListingSamples(ctx context.Context, location, category string) ([]ListingSample, error)

	GetBaseline(ctx context.Context, location, category string) (domain.MarketBaseline, bool, error)
	UpsertBaseline(ctx context.Context, b domain.MarketBaseline) error
	CreateBaselineIfAbsent(ctx context.Context, b domain.MarketBaseline) (bool, error)

	SaveValuationReport(ctx context.Context, r domain.ValuationReport) error
	GetValuationReport(ctx context.Context, id string) (domain.ValuationReport, bool, error)
}

type ListFilter struct {
	Limit       int
	Offset      int
	Location    string
	Category    string
	Kind        domain.ListingKind
	MinPrice    float64
	MaxPrice    float64
	MinBedrooms int
	Sort        string // price_asc | price_desc | newest
}

func (f ListFilter) normalized() ListFilter {
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	f.Location = strings.TrimSpace(f.Location)
	f.Category = strings.TrimSpace(f.Category)
	return f
}

// ListingSample is the slice of a listing the market baseline is built from.
type ListingSample struct {
	Price   decimal.Decimal
	AreaSQM decimal.Decimal
}
