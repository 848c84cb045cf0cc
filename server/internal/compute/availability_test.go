package compute

import (
	"testing"

	"github.com/shelfsight/shelfsight/pkg/types"
)

func TestLabel_Example(t *testing.T) {
	th := Thresholds{High: 500, Medium: 100, RatingFloor: DefaultRatingFloor}

	if got := Label(1000, 4.9, th); got != types.AvailabilityHigh {
		t.Errorf("first row: got %q, want %q", got, types.AvailabilityHigh)
	}
	if got := Label(10, 4.0, th); got != types.AvailabilityLow {
		t.Errorf("second row: got %q, want %q", got, types.AvailabilityLow)
	}
}

func TestLabel_Boundaries(t *testing.T) {
	th := Thresholds{High: 500, Medium: 100, RatingFloor: 4.8}
	tests := []struct {
		name    string
		reviews int64
		rating  float64
		want    types.Availability
	}{
		{"above q75, rating exactly at floor", 501, 4.8, types.AvailabilityHigh},
		{"above q75, rating just below floor", 501, 4.79, types.AvailabilityMedium},
		{"exactly q75 is not above it", 500, 5.0, types.AvailabilityMedium},
		{"exactly median is not above it", 100, 5.0, types.AvailabilityLow},
		{"just above median", 101, 1.0, types.AvailabilityMedium},
		{"no reviews", 0, 5.0, types.AvailabilityLow},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Label(tc.reviews, tc.rating, th); got != tc.want {
				t.Errorf("Label(%d, %.2f) = %q, want %q", tc.reviews, tc.rating, got, tc.want)
			}
		})
	}
}

func TestLabel_AlwaysOneOfThree(t *testing.T) {
	th := Thresholds{High: 40, Medium: 10, RatingFloor: 4.5}
	for reviews := int64(0); reviews < 100; reviews += 7 {
		for rating := 0.0; rating <= 5; rating += 0.25 {
			if l := Label(reviews, rating, th); !l.Valid() {
				t.Fatalf("Label(%d, %.2f) = %q, not a known label", reviews, rating, l)
			}
		}
	}
}

func TestComputeThresholds(t *testing.T) {
	products := []types.Product{
		{Reviews: 10}, {Reviews: 20}, {Reviews: 30}, {Reviews: 40}, {Reviews: 50},
	}
	th := ComputeThresholds(products, DefaultHeuristic())
	if th.High != 40 {
		t.Errorf("High = %v, want 40", th.High)
	}
	if th.Medium != 30 {
		t.Errorf("Medium = %v, want 30", th.Medium)
	}
	if th.RatingFloor != DefaultRatingFloor {
		t.Errorf("RatingFloor = %v, want %v", th.RatingFloor, DefaultRatingFloor)
	}
}

func TestComputeThresholds_CustomHeuristic(t *testing.T) {
	products := []types.Product{{Reviews: 0}, {Reviews: 100}}
	th := ComputeThresholds(products, Heuristic{HighQuantile: 0.9, MediumQuantile: 0.2, RatingFloor: 4})
	if !almostEqual(th.High, 90, 1e-9) || !almostEqual(th.Medium, 20, 1e-9) {
		t.Errorf("thresholds = %+v, want high 90 medium 20", th)
	}
}

func TestEnrich_DatasetRelative(t *testing.T) {
	// The same product gets a different label once the dataset changes.
	target := types.Product{Name: "target", Price: 10, Rating: 4.9, Reviews: 300, Tier: "Mid"}
	small := []types.Product{
		target,
		{Name: "a", Price: 10, Rating: 4, Reviews: 10, Tier: "Mid"},
		{Name: "b", Price: 10, Rating: 4, Reviews: 20, Tier: "Mid"},
		{Name: "c", Price: 10, Rating: 4, Reviews: 30, Tier: "Mid"},
	}
	scored, _, err := Enrich(small, DefaultHeuristic())
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if scored[0].Availability != types.AvailabilityHigh {
		t.Fatalf("small dataset: got %q, want High", scored[0].Availability)
	}

	big := append([]types.Product{}, small...)
	big = append(big,
		types.Product{Name: "d", Price: 10, Rating: 4, Reviews: 5000, Tier: "Mid"},
		types.Product{Name: "e", Price: 10, Rating: 4, Reviews: 6000, Tier: "Mid"},
		types.Product{Name: "f", Price: 10, Rating: 4, Reviews: 7000, Tier: "Mid"},
	)
	scored, _, err = Enrich(big, DefaultHeuristic())
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if scored[0].Availability == types.AvailabilityHigh {
		t.Errorf("big dataset: target still High, thresholds should have moved")
	}
}
