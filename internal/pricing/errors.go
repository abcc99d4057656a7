package pricing

import (
	"errors"
	"fmt"

	"cloud.google.com/go/civil"

	"github.com/denisok6893-rgb/stay-pricing/internal/domain"
)

var (
	ErrInvalidRange       = errors.New("invalid date range")
	ErrMissingRate        = errors.New("missing rate")
	ErrInvalidRate        = errors.New("invalid rate")
	ErrUnknownListingKind = errors.New("unknown listing kind")
)

// InvalidRangeError reports a stay whose end date is not after its start date.
type InvalidRangeError struct {
	Start civil.Date
	End   civil.Date
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid date range: end %s must be after start %s", e.End, e.Start)
}

func (e *InvalidRangeError) Is(target error) bool { return target == ErrInvalidRange }

// MissingRateError names the tier a rate card lacks for the requested duration.
type MissingRateError struct {
	Kind domain.ListingKind
	Tier domain.Tier
}

func (e *MissingRateError) Error() string {
	return fmt.Sprintf("missing %s rate for %s listing", e.Tier, e.Kind)
}

func (e *MissingRateError) Is(target error) bool { return target == ErrMissingRate }

// InvalidRateError reports a configured tier rate below zero.
type InvalidRateError struct {
	Tier domain.Tier
}

func (e *InvalidRateError) Error() string {
	return fmt.Sprintf("%s rate must not be negative", e.Tier)
}

func (e *InvalidRateError) Is(target error) bool { return target == ErrInvalidRate }
