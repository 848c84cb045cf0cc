package api

import (
	"fmt"
	"sort"

	"github.com/shelfsight/shelfsight/pkg/types"
	"github.com/shelfsight/shelfsight/server/internal/compute"
)

// Insight levels, most severe first.
const (
	LevelCritical = "critical"
	LevelWarning  = "warning"
	LevelInfo     = "info"
	LevelOK       = "ok"
)

var levelRank = map[string]int{LevelCritical: 0, LevelWarning: 1, LevelInfo: 2, LevelOK: 3}

// Insight thresholds.
const (
	smallSample        = 30   // fewer records make quantile thresholds jumpy
	rejectedCritical   = 0.05 // share of skipped rows treated as critical
	skewRatio          = 1.5  // mean/median price ratio considered right-skewed
	flatTrendTolerance = 0.05 // rating change across the price range treated as flat
)

// Insight is one human-readable observation about the current report.
// The dashboard shows Title as a chip and Detail on hover.
type Insight struct {
	// Key is a stable machine-readable identifier.
	Key string `json:"key"`
	// Level is "critical" | "warning" | "info" | "ok".
	Level  string   `json:"level"`
	Title  string   `json:"title"`
	Detail string   `json:"detail"`
	Value  *float64 `json:"value,omitempty"`
}

// ComputeInsights derives insights from r, ordered critical first, then
// warnings, info and ok.
func ComputeInsights(r *compute.Report) []Insight {
	var out []Insight
	s := r.Summary

	if s.RejectedRows > 0 {
		total := s.RecordCount + s.RejectedRows
		share := float64(s.RejectedRows) / float64(total)
		level := LevelWarning
		if share >= rejectedCritical {
			level = LevelCritical
		}
		v := float64(s.RejectedRows)
		out = append(out, Insight{
			Key:   "rejected_rows",
			Level: level,
			Title: fmt.Sprintf("%d rows skipped", s.RejectedRows),
			Detail: fmt.Sprintf(
				"%d of %d input rows (%.1f%%) failed validation and were left out. "+
					"Every chart on this page is computed from the remaining %d products. "+
					"Check the server log for the row numbers and the offending fields.",
				s.RejectedRows, total, share*100, s.RecordCount),
			Value: &v,
		})
	}

	if s.RecordCount < smallSample {
		v := float64(s.RecordCount)
		out = append(out, Insight{
			Key:   "small_sample",
			Level: LevelWarning,
			Title: "Small sample",
			Detail: fmt.Sprintf(
				"Only %d products were loaded. Availability labels are relative to this "+
					"dataset's review quantiles, so with so few rows a single product can move "+
					"the thresholds noticeably.", s.RecordCount),
			Value: &v,
		})
	}

	if len(r.Tiers) > 0 {
		best := r.Tiers[0]
		v := best.MeanValueScore
		detail := fmt.Sprintf("Products in the %q tier average a value score of %.3f across %d products.",
			best.Tier, best.MeanValueScore, best.Count)
		if len(r.Tiers) > 1 {
			worst := r.Tiers[len(r.Tiers)-1]
			detail += fmt.Sprintf(" The %q tier trails at %.3f.", worst.Tier, worst.MeanValueScore)
		}
		out = append(out, Insight{
			Key:    "best_value_tier",
			Level:  LevelInfo,
			Title:  fmt.Sprintf("Best value: %s", best.Tier),
			Detail: detail,
			Value:  &v,
		})
	}

	high := r.AvailabilityPct(types.AvailabilityHigh)
	if high == 0 {
		out = append(out, Insight{
			Key:   "no_high_availability",
			Level: LevelWarning,
			Title: "No high-availability products",
			Detail: fmt.Sprintf(
				"No product has more than %.0f reviews together with a rating of at least %.1f. "+
					"Either ratings are generally lower or review volume is concentrated in "+
					"lower-rated products.", s.Thresholds.High, s.Thresholds.RatingFloor),
		})
	} else {
		v := high
		out = append(out, Insight{
			Key:   "high_availability_share",
			Level: LevelInfo,
			Title: fmt.Sprintf("%.1f%% likely in stock", high),
			Detail: fmt.Sprintf(
				"%.1f%% of products combine more than %.0f reviews with a rating of at least %.1f, "+
					"which the stock proxy reads as high availability. This is an estimate from "+
					"engagement, not inventory data.", high, s.Thresholds.High, s.Thresholds.RatingFloor),
			Value: &v,
		})
	}

	if s.MedianPrice > 0 && s.MeanPrice/s.MedianPrice >= skewRatio {
		v := s.MeanPrice / s.MedianPrice
		out = append(out, Insight{
			Key:   "price_skew",
			Level: LevelInfo,
			Title: "Prices are right-skewed",
			Detail: fmt.Sprintf(
				"The mean price (%.2f) is %.1fx the median (%.2f): a few expensive products pull "+
					"the average up. The price histogram uses a log-scaled frequency axis so the "+
					"long tail stays visible.", s.MeanPrice, v, s.MedianPrice),
			Value: &v,
		})
	}

	if t := r.Ratings.Trend; len(t) >= 2 {
		delta := t[len(t)-1].Y - t[0].Y
		v := delta
		in := Insight{Key: "rating_trend", Level: LevelInfo, Value: &v}
		switch {
		case delta > flatTrendTolerance:
			in.Title = "Ratings rise with price"
			in.Detail = fmt.Sprintf("Along the smoothed trend, ratings go from %.2f at the cheapest "+
				"products to %.2f at the most expensive.", t[0].Y, t[len(t)-1].Y)
		case delta < -flatTrendTolerance:
			in.Title = "Ratings fall with price"
			in.Detail = fmt.Sprintf("Along the smoothed trend, ratings drop from %.2f at the cheapest "+
				"products to %.2f at the most expensive.", t[0].Y, t[len(t)-1].Y)
		default:
			in.Title = "Rating flat across prices"
			in.Detail = fmt.Sprintf("The smoothed trend stays within %.2f rating points across the "+
				"whole price range: paying more does not buy a better-rated product here.", flatTrendTolerance)
		}
		out = append(out, in)
	}

	worst := LevelOK
	for _, in := range out {
		if levelRank[in.Level] < levelRank[worst] {
			worst = in.Level
		}
	}
	if levelRank[worst] > levelRank[LevelWarning] {
		out = append(out, Insight{
			Key:    "healthy",
			Level:  LevelOK,
			Title:  "Dataset looks healthy",
			Detail: "Every row passed validation and the sample is large enough for stable thresholds.",
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return levelRank[out[i].Level] < levelRank[out[j].Level] })
	return out
}
