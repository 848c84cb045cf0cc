package compute

import "math"

// DefaultHistogramBins is the number of price bins when none is configured.
const DefaultHistogramBins = 50

// Bin is one histogram bucket covering [Lower, Upper). The last bin of a
// Histogram also includes its upper edge.
type Bin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// Histogram is an equal-width frequency distribution.
type Histogram struct {
	Bins []Bin `json:"bins"`

	// LogScale marks the frequency axis as logarithmic. Prices are usually
	// heavily skewed, so the dashboard plots counts on a log axis.
	LogScale bool    `json:"log_scale"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Total    int     `json:"total"`
}

// BuildHistogram splits [min(values), max(values)] into bins equal-width
// buckets and counts values per bucket. When every value is identical the
// range is widened to value±0.5 so the single spike stays centred.
func BuildHistogram(values []float64, bins int) Histogram {
	if bins <= 0 {
		bins = DefaultHistogramBins
	}
	h := Histogram{LogScale: true, Bins: []Bin{}}
	if len(values) == 0 {
		return h
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	h.Min, h.Max = lo, hi
	if lo == hi {
		lo -= 0.5
		hi += 0.5
	}

	width := (hi - lo) / float64(bins)
	h.Bins = make([]Bin, bins)
	for i := range h.Bins {
		h.Bins[i].Lower = lo + float64(i)*width
		h.Bins[i].Upper = lo + float64(i+1)*width
	}
	h.Bins[bins-1].Upper = hi

	for _, v := range values {
		idx := int((v - lo) / width)
		if idx >= bins {
			idx = bins - 1
		}
		if idx < 0 {
			idx = 0
		}
		// The division can round across an edge; the stored edges decide.
		if idx > 0 && v < h.Bins[idx].Lower {
			idx--
		} else if idx < bins-1 && v >= h.Bins[idx].Upper {
			idx++
		}
		h.Bins[idx].Count++
	}
	h.Total = len(values)
	return h
}

// MaxCount returns the largest bin count, or 0 for an empty histogram.
func (h Histogram) MaxCount() int {
	var m int
	for _, b := range h.Bins {
		if b.Count > m {
			m = b.Count
		}
	}
	return m
}
