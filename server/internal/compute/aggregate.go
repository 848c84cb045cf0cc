package compute

import (
	"sort"

	"github.com/shelfsight/shelfsight/pkg/types"
)

// ScoredProduct is a product record with its derived columns attached.
type ScoredProduct struct {
	types.Product
	ValueScore   float64            `json:"value_score"`
	Availability types.Availability `json:"stock_proxy"`
}

// TierValue is the mean value score of one price tier.
type TierValue struct {
	Tier           string  `json:"price_tier"`
	MeanValueScore float64 `json:"mean_value_score"`
	Count          int     `json:"count"`
}

// AggregateByTier groups products by price tier and returns the mean value
// score per tier, highest mean first. Equal means are ordered by tier name.
// The counts always sum to len(products).
func AggregateByTier(products []ScoredProduct) []TierValue {
	type acc struct {
		sum   float64
		count int
	}
	groups := make(map[string]*acc)
	for _, p := range products {
		a, ok := groups[p.Tier]
		if !ok {
			a = &acc{}
			groups[p.Tier] = a
		}
		a.sum += p.ValueScore
		a.count++
	}

	out := make([]TierValue, 0, len(groups))
	for tier, a := range groups {
		out = append(out, TierValue{
			Tier:           tier,
			MeanValueScore: a.sum / float64(a.count),
			Count:          a.count,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MeanValueScore != out[j].MeanValueScore {
			return out[i].MeanValueScore > out[j].MeanValueScore
		}
		return out[i].Tier < out[j].Tier
	})
	return out
}

// AvailabilitySlice is one wedge of the availability pie.
type AvailabilitySlice struct {
	Label types.Availability `json:"label"`
	Count int                `json:"count"`
	Pct   float64            `json:"pct"`
}

// AvailabilityBreakdown counts products per availability label. Only labels
// that occur are returned, most frequent first; equal counts keep the
// canonical High, Medium, Low order.
func AvailabilityBreakdown(products []ScoredProduct) []AvailabilitySlice {
	counts := make(map[types.Availability]int, len(types.Availabilities))
	for _, p := range products {
		counts[p.Availability]++
	}

	out := make([]AvailabilitySlice, 0, len(counts))
	for label, n := range counts {
		out = append(out, AvailabilitySlice{
			Label: label,
			Count: n,
			Pct:   float64(n) / float64(len(products)) * 100,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label.Rank() < out[j].Label.Rank()
	})
	return out
}

// TopNByReviews returns the min(n, len(products)) most-reviewed products,
// reviews descending. Ties keep their input order.
func TopNByReviews(products []ScoredProduct, n int) []ScoredProduct {
	if n <= 0 {
		return []ScoredProduct{}
	}
	sorted := make([]ScoredProduct, len(products))
	copy(sorted, products)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Reviews > sorted[j].Reviews
	})
	if n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}
