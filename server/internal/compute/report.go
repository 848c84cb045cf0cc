package compute

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shelfsight/shelfsight/pkg/types"
)

// DefaultTopN is the number of most-reviewed products in a Report.
const DefaultTopN = 10

// Options controls one Build pass.
type Options struct {
	Heuristic       Heuristic
	HistogramBins   int
	TopN            int
	TrendFrac       float64
	TrendIterations int

	// Source and RejectedRows describe the load that produced the records.
	// They are copied into the Summary unchanged.
	Source       string
	RejectedRows int
}

// DefaultOptions returns the dashboard defaults: 0.75/median/4.8 heuristic,
// 50 histogram bins, top 10, LOWESS frac 2/3 with 3 robustifying passes.
func DefaultOptions() Options {
	return Options{
		Heuristic:       DefaultHeuristic(),
		HistogramBins:   DefaultHistogramBins,
		TopN:            DefaultTopN,
		TrendFrac:       DefaultTrendFrac,
		TrendIterations: DefaultTrendIterations,
	}
}

// Summary holds dataset-wide statistics shown in the dashboard header.
type Summary struct {
	Source         string     `json:"source"`
	RecordCount    int        `json:"record_count"`
	RejectedRows   int        `json:"rejected_rows"`
	TierCount      int        `json:"tier_count"`
	MeanPrice      float64    `json:"mean_price"`
	MedianPrice    float64    `json:"median_price"`
	MeanRating     float64    `json:"mean_rating"`
	MeanValueScore float64    `json:"mean_value_score"`
	MedianReviews  float64    `json:"median_reviews"`
	Thresholds     Thresholds `json:"thresholds"`
}

// ScatterPoint is one product in the rating-vs-price plot.
type ScatterPoint struct {
	Name   string  `json:"product_name"`
	Price  float64 `json:"price"`
	Rating float64 `json:"rating"`
	Tier   string  `json:"price_tier"`
}

// Scatter is the rating-vs-price view with its smoothed trend line.
type Scatter struct {
	Points []ScatterPoint `json:"points"`
	Trend  []Point        `json:"trend"`
}

// Report is the immutable result of one Build pass: every derived column and
// all five dashboard views. Callers must not modify a Report once built.
type Report struct {
	ID           string              `json:"id"`
	GeneratedAt  time.Time           `json:"generated_at"`
	Summary      Summary             `json:"summary"`
	Tiers        []TierValue         `json:"tiers"`
	Availability []AvailabilitySlice `json:"availability"`
	Prices       Histogram           `json:"prices"`
	Ratings      Scatter             `json:"ratings"`
	TopReviewed  []ScoredProduct     `json:"top_reviewed"`
	Products     []ScoredProduct     `json:"-"`
}

// Enrich attaches the value score and availability label to every product.
// Thresholds are computed over all of products. The first record that fails
// Validate (without an upper rating bound) or whose value score cannot be
// computed aborts enrichment with its 1-based row number.
func Enrich(products []types.Product, h Heuristic) ([]ScoredProduct, Thresholds, error) {
	th := ComputeThresholds(products, h)
	out := make([]ScoredProduct, len(products))
	for i, p := range products {
		err := Validate(p, 0)
		var score float64
		if err == nil {
			score, err = ValueScore(p.Rating, p.Price)
		}
		if err != nil {
			var ve *ValidationError
			if errors.As(err, &ve) {
				ve.Row = i + 1
			}
			return nil, Thresholds{}, err
		}
		out[i] = ScoredProduct{
			Product:      p,
			ValueScore:   score,
			Availability: Label(p.Reviews, p.Rating, th),
		}
	}
	return out, th, nil
}

// RatingVsPrice builds the scatter view and fits the trend line.
func RatingVsPrice(products []ScoredProduct, frac float64, iterations int) Scatter {
	sc := Scatter{Points: make([]ScatterPoint, len(products))}
	xs := make([]float64, len(products))
	ys := make([]float64, len(products))
	for i, p := range products {
		sc.Points[i] = ScatterPoint{Name: p.Name, Price: p.Price, Rating: p.Rating, Tier: p.Tier}
		xs[i], ys[i] = p.Price, p.Rating
	}
	sc.Trend = Lowess(xs, ys, frac, iterations)
	if sc.Trend == nil {
		sc.Trend = []Point{}
	}
	return sc
}

// Build derives all metrics and views for products.
//
// now is passed explicitly so callers (and tests) control the clock.
// Use time.Now() in production.
func Build(products []types.Product, opts Options, now time.Time) (*Report, error) {
	if len(products) == 0 {
		return nil, fmt.Errorf("compute: %w", ErrEmptyDataset)
	}
	if opts.HistogramBins <= 0 {
		opts.HistogramBins = DefaultHistogramBins
	}
	if opts.TopN <= 0 {
		opts.TopN = DefaultTopN
	}

	scored, th, err := Enrich(products, opts.Heuristic)
	if err != nil {
		return nil, fmt.Errorf("compute: %w", err)
	}

	prices := make([]float64, len(scored))
	ratings := make([]float64, len(scored))
	scores := make([]float64, len(scored))
	reviews := make([]float64, len(scored))
	for i, p := range scored {
		prices[i] = p.Price
		ratings[i] = p.Rating
		scores[i] = p.ValueScore
		reviews[i] = float64(p.Reviews)
	}

	tiers := AggregateByTier(scored)
	return &Report{
		ID:          uuid.NewString(),
		GeneratedAt: now.UTC(),
		Summary: Summary{
			Source:         opts.Source,
			RecordCount:    len(scored),
			RejectedRows:   opts.RejectedRows,
			TierCount:      len(tiers),
			MeanPrice:      mean(prices),
			MedianPrice:    Median(prices),
			MeanRating:     mean(ratings),
			MeanValueScore: mean(scores),
			MedianReviews:  Median(reviews),
			Thresholds:     th,
		},
		Tiers:        tiers,
		Availability: AvailabilityBreakdown(scored),
		Prices:       BuildHistogram(prices, opts.HistogramBins),
		Ratings:      RatingVsPrice(scored, opts.TrendFrac, opts.TrendIterations),
		TopReviewed:  TopNByReviews(scored, opts.TopN),
		Products:     scored,
	}, nil
}

// AvailabilityPct returns the share (0 to 100) of products labelled l.
func (r *Report) AvailabilityPct(l types.Availability) float64 {
	for _, s := range r.Availability {
		if s.Label == l {
			return s.Pct
		}
	}
	return 0
}
