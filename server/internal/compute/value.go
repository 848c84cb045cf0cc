package compute

import "math"

// ValueScore returns rating / ln(1+price), the value-for-money indicator.
//
// The formula is only meaningful for price > 0: at price 0 the penalty is
// zero and below it the logarithm is negative or undefined. Such inputs, and
// any result that is not a finite number, are returned as a *ValidationError
// wrapping ErrInvalidValue.
func ValueScore(rating, price float64) (float64, error) {
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return 0, invalid("price", price, "must be a positive finite number")
	}
	score := rating / math.Log1p(price)
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0, invalid("value_score", score, "not a finite number")
	}
	return score, nil
}
