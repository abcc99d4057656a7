package valuation

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
)

// Config holds the heuristic constants used by the estimator. None of them
// has a principled derivation; they are business defaults.
type Config struct {
	BedroomValue             decimal.Decimal `json:"bedroom_value"`
	BathroomValue            decimal.Decimal `json:"bathroom_value"`
	ValidityMonths           int             `json:"validity_months"`
	HighConfidenceListings   int             `json:"high_confidence_listings"`
	MediumConfidenceListings int             `json:"medium_confidence_listings"`

	LocationRating       string `json:"location_rating"`
	PropertyCondition    string `json:"property_condition"`
	DevelopmentPotential string `json:"development_potential"`
}

func DefaultConfig() Config {
	return Config{
		BedroomValue:             decimal.NewFromInt(50000),
		BathroomValue:            decimal.NewFromInt(25000),
		ValidityMonths:           3,
		HighConfidenceListings:   10,
		MediumConfidenceListings: 5,
		LocationRating:           "good",
		PropertyCondition:        "average",
		DevelopmentPotential:     "moderate",
	}
}

// LoadConfigFromFile overlays a JSON file on DefaultConfig. On error the
// defaults are returned alongside it.
func LoadConfigFromFile(path string) (Config, error) {
	cfg := DefaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read valuation config: %w", err)
	}
	if err := json.Unmarshal(b, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("unmarshal valuation config: %w", err)
	}
	if cfg.ValidityMonths <= 0 {
		return DefaultConfig(), fmt.Errorf("validity_months must be > 0, got %d", cfg.ValidityMonths)
	}
	if cfg.MediumConfidenceListings > cfg.HighConfidenceListings {
		return DefaultConfig(), fmt.Errorf("medium_confidence_listings (%d) exceeds high_confidence_listings (%d)",
			cfg.MediumConfidenceListings, cfg.HighConfidenceListings)
	}
	return cfg, nil
}
