package types

// Product is one row of the pre-cleaned product dataset.
// Records are read once per load pass and never mutated afterwards.
type Product struct {
	// Name is the product_name column.
	Name string `json:"product_name"`

	// Price is strictly positive; the value score takes log(1+price).
	Price float64 `json:"price"`

	// Rating is in the range 0..MaxRating (5 unless configured otherwise).
	Rating float64 `json:"rating"`

	// Reviews is the non-negative review count.
	Reviews int64 `json:"reviews"`

	// Tier is the categorical price bucket assigned upstream.
	Tier string `json:"price_tier"`
}

// Availability is the coarse stock proxy derived from review volume and rating.
// It is a heuristic, not inventory data.
type Availability string

// The three availability labels. Every scored product carries exactly one.
const (
	AvailabilityHigh   Availability = "High Availability"
	AvailabilityMedium Availability = "Medium"
	AvailabilityLow    Availability = "Low"
)

// Availabilities lists the labels in canonical order (High, Medium, Low).
var Availabilities = []Availability{AvailabilityHigh, AvailabilityMedium, AvailabilityLow}

// Valid reports whether a is one of the three known labels.
func (a Availability) Valid() bool {
	switch a {
	case AvailabilityHigh, AvailabilityMedium, AvailabilityLow:
		return true
	}
	return false
}

// Rank returns the canonical position of a (0 for High) or len(Availabilities)
// for unknown labels.
func (a Availability) Rank() int {
	for i, l := range Availabilities {
		if l == a {
			return i
		}
	}
	return len(Availabilities)
}
