package storage

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/denisok6893-rgb/stay-pricing/internal/domain"
)

var validate = validator.New()

// LoadPropertiesFromFile reads seed properties from a JSON file. Every record
// must pass struct validation, including its rate card's listing kind.
func LoadPropertiesFromFile(path string) ([]domain.Property, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read properties file: %w", err)
	}

	var props []domain.Property
	if err := json.Unmarshal(b, &props); err != nil {
		return nil, fmt.Errorf("unmarshal properties: %w", err)
	}
	for i, p := range props {
		if err := ValidateProperty(p); err != nil {
			return nil, fmt.Errorf("property %d (%q): %w", i, p.ID, err)
		}
	}
	return props, nil
}

func ValidateProperty(p domain.Property) error {
	if err := validate.Struct(p); err != nil {
		return err
	}
	return ValidateRateCard(p.Rates)
}

// ValidateRateCard checks the listing kind and that no configured rate is
// negative. Tier availability is left to the calculator.
func ValidateRateCard(c domain.RateCard) error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	rates := []struct {
		name string
		rate decimal.NullDecimal
	}{
		{"nightly_rate", c.NightlyRate},
		{"weekly_rate", c.WeeklyRate},
		{"monthly_rate", c.MonthlyRate},
		{"daily_rate", c.DailyRate},
	}
	for _, r := range rates {
		if r.rate.Valid && r.rate.Decimal.IsNegative() {
			return fmt.Errorf("%s must not be negative", r.name)
		}
	}
	return nil
}
