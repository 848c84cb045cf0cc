package alerts

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shelfsight/shelfsight/pkg/types"
	"github.com/shelfsight/shelfsight/server/internal/compute"
)

// fields maps a condition field name to its value in a report.
var fields = map[string]func(r *compute.Report) float64{
	"record_count":          func(r *compute.Report) float64 { return float64(r.Summary.RecordCount) },
	"rejected_rows":         func(r *compute.Report) float64 { return float64(r.Summary.RejectedRows) },
	"tier_count":            func(r *compute.Report) float64 { return float64(r.Summary.TierCount) },
	"mean_rating":           func(r *compute.Report) float64 { return r.Summary.MeanRating },
	"mean_price":            func(r *compute.Report) float64 { return r.Summary.MeanPrice },
	"mean_value_score":      func(r *compute.Report) float64 { return r.Summary.MeanValueScore },
	"median_reviews":        func(r *compute.Report) float64 { return r.Summary.MedianReviews },
	"high_availability_pct": func(r *compute.Report) float64 { return r.AvailabilityPct(types.AvailabilityHigh) },
	"low_availability_pct":  func(r *compute.Report) float64 { return r.AvailabilityPct(types.AvailabilityLow) },
	"best_tier_value": func(r *compute.Report) float64 {
		if len(r.Tiers) == 0 {
			return 0
		}
		return r.Tiers[0].MeanValueScore
	},
}

// Condition is a parsed "<field> <op> <value>" rule expression.
type Condition struct {
	Field     string
	Op        string
	Threshold float64
}

// ParseCondition parses and checks a rule expression.
func ParseCondition(s string) (Condition, error) {
	parts := strings.Fields(s)
	if len(parts) != 3 {
		return Condition{}, fmt.Errorf("condition %q: want \"<field> <op> <value>\"", s)
	}
	c := Condition{Field: parts[0], Op: parts[1]}
	if _, ok := fields[c.Field]; !ok {
		return Condition{}, fmt.Errorf("condition %q: unknown field %q", s, c.Field)
	}
	switch c.Op {
	case ">", ">=", "<", "<=", "==", "!=":
	default:
		return Condition{}, fmt.Errorf("condition %q: unknown operator %q", s, c.Op)
	}
	v, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return Condition{}, fmt.Errorf("condition %q: threshold: %w", s, err)
	}
	c.Threshold = v
	return c, nil
}

// Eval reports whether the condition holds for r, and the field's value.
func (c Condition) Eval(r *compute.Report) (bool, float64) {
	get, ok := fields[c.Field]
	if !ok || r == nil {
		return false, 0
	}
	v := get(r)
	return compareFloat(v, c.Op, c.Threshold), v
}

func (c Condition) String() string {
	return fmt.Sprintf("%s %s %s", c.Field, c.Op, strconv.FormatFloat(c.Threshold, 'g', -1, 64))
}

// compareFloat applies a comparison operator to two float64 values.
func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	case "!=":
		return v != threshold
	default:
		return false
	}
}
