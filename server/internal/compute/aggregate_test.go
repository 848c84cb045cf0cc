package compute

import (
	"testing"

	"github.com/shelfsight/shelfsight/pkg/types"
)

func scored(name, tier string, reviews int64, value float64, label types.Availability) ScoredProduct {
	return ScoredProduct{
		Product:      types.Product{Name: name, Tier: tier, Reviews: reviews, Price: 10, Rating: 4},
		ValueScore:   value,
		Availability: label,
	}
}

// --- AggregateByTier ---

func TestAggregateByTier_SortedDescending(t *testing.T) {
	products := []ScoredProduct{
		scored("a", "Premium", 1, 1.0, types.AvailabilityLow),
		scored("b", "Budget", 1, 3.0, types.AvailabilityLow),
		scored("c", "Budget", 1, 2.0, types.AvailabilityLow),
		scored("d", "Mid", 1, 2.0, types.AvailabilityLow),
		scored("e", "Premium", 1, 0.5, types.AvailabilityLow),
	}
	got := AggregateByTier(products)

	want := []struct {
		tier  string
		mean  float64
		count int
	}{
		{"Budget", 2.5, 2},
		{"Mid", 2.0, 1},
		{"Premium", 0.75, 2},
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d (%+v)", len(got), len(want), got)
	}
	for i, w := range want {
		if got[i].Tier != w.tier || !almostEqual(got[i].MeanValueScore, w.mean, 1e-9) || got[i].Count != w.count {
			t.Errorf("[%d] = %+v, want tier=%s mean=%.2f count=%d", i, got[i], w.tier, w.mean, w.count)
		}
	}
}

func TestAggregateByTier_CountsSumToTotal(t *testing.T) {
	var products []ScoredProduct
	tiers := []string{"A", "B", "C", "D"}
	for i := 0; i < 37; i++ {
		products = append(products, scored("p", tiers[i%len(tiers)], 0, float64(i%5), types.AvailabilityLow))
	}
	var sum int
	res := AggregateByTier(products)
	for i, tv := range res {
		sum += tv.Count
		if i > 0 && tv.MeanValueScore > res[i-1].MeanValueScore {
			t.Errorf("tiers not sorted descending at %d: %+v", i, res)
		}
	}
	if sum != len(products) {
		t.Errorf("sum of counts = %d, want %d", sum, len(products))
	}
}

func TestAggregateByTier_TiesByName(t *testing.T) {
	products := []ScoredProduct{
		scored("a", "Zeta", 0, 1, types.AvailabilityLow),
		scored("b", "Alpha", 0, 1, types.AvailabilityLow),
	}
	got := AggregateByTier(products)
	if got[0].Tier != "Alpha" || got[1].Tier != "Zeta" {
		t.Errorf("tie order = %s,%s, want Alpha,Zeta", got[0].Tier, got[1].Tier)
	}
}

func TestAggregateByTier_Empty(t *testing.T) {
	if got := AggregateByTier(nil); len(got) != 0 {
		t.Errorf("AggregateByTier(nil) = %+v, want empty", got)
	}
}

// --- AvailabilityBreakdown ---

func TestAvailabilityBreakdown(t *testing.T) {
	products := []ScoredProduct{
		scored("a", "t", 0, 0, types.AvailabilityLow),
		scored("b", "t", 0, 0, types.AvailabilityLow),
		scored("c", "t", 0, 0, types.AvailabilityMedium),
		scored("d", "t", 0, 0, types.AvailabilityLow),
	}
	got := AvailabilityBreakdown(products)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2 (absent labels are omitted): %+v", len(got), got)
	}
	if got[0].Label != types.AvailabilityLow || got[0].Count != 3 || got[0].Pct != 75 {
		t.Errorf("[0] = %+v, want Low 3 75%%", got[0])
	}
	if got[1].Label != types.AvailabilityMedium || got[1].Count != 1 || got[1].Pct != 25 {
		t.Errorf("[1] = %+v, want Medium 1 25%%", got[1])
	}
}

func TestAvailabilityBreakdown_TiesCanonicalOrder(t *testing.T) {
	products := []ScoredProduct{
		scored("a", "t", 0, 0, types.AvailabilityLow),
		scored("b", "t", 0, 0, types.AvailabilityMedium),
		scored("c", "t", 0, 0, types.AvailabilityHigh),
	}
	got := AvailabilityBreakdown(products)
	for i, want := range types.Availabilities {
		if got[i].Label != want {
			t.Errorf("[%d] = %q, want %q", i, got[i].Label, want)
		}
	}
}

// --- TopNByReviews ---

func TestTopNByReviews(t *testing.T) {
	var products []ScoredProduct
	for i := int64(0); i < 15; i++ {
		products = append(products, scored(string(rune('a'+i)), "t", i*10, 0, types.AvailabilityLow))
	}
	got := TopNByReviews(products, 10)
	if len(got) != 10 {
		t.Fatalf("len = %d, want 10", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Reviews > got[i-1].Reviews {
			t.Errorf("not sorted descending at %d: %d > %d", i, got[i].Reviews, got[i-1].Reviews)
		}
	}
	if got[0].Reviews != 140 {
		t.Errorf("top reviews = %d, want 140", got[0].Reviews)
	}
	if products[0].Reviews != 0 {
		t.Errorf("TopNByReviews reordered its input")
	}
}

func TestTopNByReviews_FewerThanN(t *testing.T) {
	products := []ScoredProduct{
		scored("a", "t", 5, 0, types.AvailabilityLow),
		scored("b", "t", 9, 0, types.AvailabilityLow),
	}
	got := TopNByReviews(products, 10)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Name != "b" {
		t.Errorf("first = %q, want b", got[0].Name)
	}
}

func TestTopNByReviews_StableTies(t *testing.T) {
	products := []ScoredProduct{
		scored("first", "t", 50, 0, types.AvailabilityLow),
		scored("big", "t", 90, 0, types.AvailabilityLow),
		scored("second", "t", 50, 0, types.AvailabilityLow),
		scored("third", "t", 50, 0, types.AvailabilityLow),
	}
	got := TopNByReviews(products, 3)
	names := []string{got[0].Name, got[1].Name, got[2].Name}
	want := []string{"big", "first", "second"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("order = %v, want %v", names, want)
		}
	}
}

func TestTopNByReviews_NonPositiveN(t *testing.T) {
	products := []ScoredProduct{scored("a", "t", 1, 0, types.AvailabilityLow)}
	if got := TopNByReviews(products, 0); len(got) != 0 {
		t.Errorf("n=0: len = %d, want 0", len(got))
	}
}
