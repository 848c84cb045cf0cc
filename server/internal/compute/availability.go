package compute

import "github.com/shelfsight/shelfsight/pkg/types"

// Default heuristic parameters for the stock proxy.
const (
	DefaultHighQuantile   = 0.75
	DefaultMediumQuantile = 0.5
	DefaultRatingFloor    = 4.8
)

// Heuristic holds the tunable parameters of the availability heuristic.
type Heuristic struct {
	// HighQuantile is the review-count quantile a product must exceed
	// (together with RatingFloor) to be labelled High Availability.
	HighQuantile float64

	// MediumQuantile is the review-count quantile a product must exceed to be
	// labelled Medium. 0.5 is the median.
	MediumQuantile float64

	// RatingFloor is the minimum rating (inclusive) for High Availability.
	RatingFloor float64
}

// DefaultHeuristic returns the 0.75 / median / 4.8 heuristic.
func DefaultHeuristic() Heuristic {
	return Heuristic{
		HighQuantile:   DefaultHighQuantile,
		MediumQuantile: DefaultMediumQuantile,
		RatingFloor:    DefaultRatingFloor,
	}
}

// Thresholds are the concrete cut-offs of one dataset.
type Thresholds struct {
	High        float64 `json:"high_reviews"`
	Medium      float64 `json:"medium_reviews"`
	RatingFloor float64 `json:"rating_floor"`
}

// ComputeThresholds evaluates h over the review counts of the full dataset.
// Recomputing on a different subset changes every label.
func ComputeThresholds(products []types.Product, h Heuristic) Thresholds {
	reviews := make([]float64, len(products))
	for i, p := range products {
		reviews[i] = float64(p.Reviews)
	}
	return Thresholds{
		High:        Quantile(reviews, h.HighQuantile),
		Medium:      Quantile(reviews, h.MediumQuantile),
		RatingFloor: h.RatingFloor,
	}
}

// Label assigns the availability proxy for one product.
func Label(reviews int64, rating float64, t Thresholds) types.Availability {
	r := float64(reviews)
	switch {
	case r > t.High && rating >= t.RatingFloor:
		return types.AvailabilityHigh
	case r > t.Medium:
		return types.AvailabilityMedium
	default:
		return types.AvailabilityLow
	}
}
