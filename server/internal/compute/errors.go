package compute

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/shelfsight/shelfsight/pkg/types"
)

// Sentinel errors wrapped by ValidationError.
var (
	// ErrInvalidValue marks a field whose value breaks a data invariant
	// (non-positive price, out-of-range rating, negative reviews, ...).
	ErrInvalidValue = errors.New("invalid value")

	// ErrMissingColumn marks a required column absent from the source.
	ErrMissingColumn = errors.New("missing column")

	// ErrEmptyDataset is returned by Build when there is nothing to derive from.
	ErrEmptyDataset = errors.New("dataset has no records")
)

// ValidationError describes one rejected input field.
// Row is 1-based and counts data rows only; 0 means "not row-specific".
type ValidationError struct {
	Row   int
	Field string
	Value string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("row %d: %s %q: %v", e.Row, e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(field string, v float64, reason string) *ValidationError {
	return &ValidationError{
		Field: field,
		Value: strconv.FormatFloat(v, 'g', -1, 64),
		Err:   fmt.Errorf("%w: %s", ErrInvalidValue, reason),
	}
}

// Validate checks the data invariants of one product record.
// maxRating <= 0 disables the upper rating bound.
func Validate(p types.Product, maxRating float64) error {
	if p.Name == "" {
		return &ValidationError{Field: "product_name", Err: fmt.Errorf("%w: empty", ErrInvalidValue)}
	}
	if p.Tier == "" {
		return &ValidationError{Field: "price_tier", Err: fmt.Errorf("%w: empty", ErrInvalidValue)}
	}
	if math.IsNaN(p.Price) || math.IsInf(p.Price, 0) || p.Price <= 0 {
		return invalid("price", p.Price, "must be a positive finite number")
	}
	if math.IsNaN(p.Rating) || math.IsInf(p.Rating, 0) || p.Rating < 0 {
		return invalid("rating", p.Rating, "must be a non-negative finite number")
	}
	if maxRating > 0 && p.Rating > maxRating {
		return invalid("rating", p.Rating, fmt.Sprintf("exceeds maximum %g", maxRating))
	}
	if p.Reviews < 0 {
		return invalid("reviews", float64(p.Reviews), "must not be negative")
	}
	return nil
}
