package compute

import (
	"math"
	"sort"
)

// Default LOWESS smoothing parameters.
const (
	DefaultTrendFrac       = 2.0 / 3.0
	DefaultTrendIterations = 3
)

// Point is one (x, y) pair of a fitted curve.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Lowess fits a locally weighted linear regression of ys on xs.
//
// Each fitted value uses the int(frac*n) nearest neighbours (at least two),
// weighted by the tricube kernel of the distance scaled to the farthest
// neighbour. iterations robustifying passes then down-weight outliers with
// bisquare weights of the residuals scaled by six median absolute residuals.
//
// The result has one point per input, sorted by x. Mismatched or empty input
// returns nil.
func Lowess(xs, ys []float64, frac float64, iterations int) []Point {
	n := len(xs)
	if n == 0 || len(ys) != n {
		return nil
	}
	if frac <= 0 || frac > 1 {
		frac = DefaultTrendFrac
	}
	if iterations < 0 {
		iterations = 0
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return xs[idx[a]] < xs[idx[b]] })
	x := make([]float64, n)
	y := make([]float64, n)
	for i, j := range idx {
		x[i], y[i] = xs[j], ys[j]
	}

	if n == 1 {
		return []Point{{X: x[0], Y: y[0]}}
	}

	k := int(frac*float64(n) + 1e-10)
	if k < 2 {
		k = 2
	}
	if k > n {
		k = n
	}

	robust := make([]float64, n)
	for i := range robust {
		robust[i] = 1
	}
	fitted := make([]float64, n)
	residuals := make([]float64, n)

	// A local fit whose weighted x spread is within 0.1% of the full x range
	// falls back to the weighted mean instead of a slope.
	minSpread := 0.001 * (x[n-1] - x[0])

	for iter := 0; iter <= iterations; iter++ {
		left := 0
		for i := 0; i < n; i++ {
			// x is sorted, so the k nearest neighbours are a contiguous window
			// that only ever slides right as i grows.
			for left+k < n && x[i]-x[left] > x[left+k]-x[i] {
				left++
			}
			fitted[i] = localFit(x, y, robust, i, left, left+k, minSpread)
		}

		if iter == iterations {
			break
		}
		for i := range residuals {
			residuals[i] = math.Abs(y[i] - fitted[i])
		}
		s := Median(residuals)
		if s == 0 {
			break
		}
		for i := range robust {
			u := (y[i] - fitted[i]) / (6 * s)
			if math.Abs(u) < 1 {
				robust[i] = (1 - u*u) * (1 - u*u)
			} else {
				robust[i] = 0
			}
		}
	}

	out := make([]Point, n)
	for i := range out {
		out[i] = Point{X: x[i], Y: fitted[i]}
	}
	return out
}

// localFit evaluates the weighted least-squares line through x[lo:hi] at x[i].
// When the weighted spread of x is at most minSpread it returns the weighted
// mean of y.
func localFit(x, y, robust []float64, i, lo, hi int, minSpread float64) float64 {
	radius := math.Max(x[i]-x[lo], x[hi-1]-x[i])

	var sw, swx, swy, swxx, swxy float64
	for j := lo; j < hi; j++ {
		w := robust[j]
		if radius > 0 {
			w *= tricube(math.Abs(x[j]-x[i]) / radius)
		}
		sw += w
		swx += w * x[j]
		swy += w * y[j]
		swxx += w * x[j] * x[j]
		swxy += w * x[j] * y[j]
	}
	if sw <= 0 {
		return y[i]
	}

	mx, my := swx/sw, swy/sw
	variance := swxx/sw - mx*mx
	if variance <= 0 || math.Sqrt(variance) <= minSpread {
		return my
	}
	slope := (swxy/sw - mx*my) / variance
	return my + slope*(x[i]-mx)
}

// tricube is (1-|u|^3)^3 on [0, 1) and 0 outside.
func tricube(u float64) float64 {
	if u >= 1 {
		return 0
	}
	c := 1 - u*u*u
	return c * c * c
}
