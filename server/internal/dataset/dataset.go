package dataset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/shelfsight/shelfsight/pkg/types"
	"github.com/shelfsight/shelfsight/server/internal/compute"
	"github.com/shelfsight/shelfsight/server/internal/config"
)

// Required column names.
const (
	ColName    = "product_name"
	ColPrice   = "price"
	ColRating  = "rating"
	ColReviews = "reviews"
	ColTier    = "price_tier"
)

// Columns lists the required columns in canonical order.
var Columns = []string{ColName, ColPrice, ColRating, ColReviews, ColTier}

// Policy decides what happens to rows that fail validation.
type Policy string

const (
	Reject Policy = "reject"
	Skip   Policy = "skip"
)

// Kinds of Source.
const (
	KindCSV    = "csv"
	KindSQLite = "sqlite"
)

// Options tunes row validation.
type Options struct {
	OnInvalid Policy
	// MaxRating is the top of the rating scale; 0 disables the check.
	MaxRating float64
}

// Source identifies where rows are read from.
type Source struct {
	Kind  string
	Path  string
	Table string
	Options
}

// SourceFromConfig maps the dataset section of the config file to a Source.
func SourceFromConfig(c config.DatasetConfig) Source {
	return Source{
		Kind:  c.Source,
		Path:  c.Path,
		Table: c.Table,
		Options: Options{
			OnInvalid: Policy(c.OnInvalid),
			MaxRating: c.MaxRating,
		},
	}
}

// String renders the source for logs and the report summary.
func (s Source) String() string {
	if s.Kind == KindSQLite {
		return fmt.Sprintf("sqlite:%s#%s", s.Path, s.Table)
	}
	return fmt.Sprintf("%s:%s", s.Kind, s.Path)
}

// Result is the outcome of one load pass.
type Result struct {
	Products []types.Product
	Rejected int
	Source   string
}

// Load reads every row from src.
func Load(ctx context.Context, src Source) (*Result, error) {
	switch src.Kind {
	case KindCSV, "":
		return LoadCSV(ctx, src.Path, src.Options)
	case KindSQLite:
		return LoadSQLite(ctx, src.Path, src.Table, src.Options)
	default:
		return nil, fmt.Errorf("dataset: unknown source kind %q", src.Kind)
	}
}

// Watch calls onChange whenever the dataset file at path is rewritten.
// It runs until ctx is cancelled.
func Watch(ctx context.Context, path string, onChange func()) error {
	slog.Info("dataset: watching for changes", "path", path)
	return config.WatchFile(ctx, path, onChange)
}

// columnIndex maps each required column to its position in header.
func columnIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}
	for _, c := range Columns {
		if _, ok := idx[c]; !ok {
			return nil, &compute.ValidationError{Field: c, Err: compute.ErrMissingColumn}
		}
	}
	return idx, nil
}

// collector applies the Policy to parsed rows.
type collector struct {
	opts   Options
	source string
	out    []types.Product
	reject int
}

// add parses and validates one row. row is 1-based over data rows.
// It returns a non-nil error only when the load must stop.
func (c *collector) add(row int, get func(col string) string) error {
	p, err := parseProduct(get)
	if err == nil {
		err = compute.Validate(p, c.opts.MaxRating)
	}
	if err == nil {
		c.out = append(c.out, p)
		return nil
	}
	var ve *compute.ValidationError
	if errors.As(err, &ve) {
		ve.Row = row
	}
	if c.opts.OnInvalid == Skip {
		c.reject++
		slog.Warn("dataset: skipping invalid row", "source", c.source, "row", row, "err", err)
		return nil
	}
	return err
}

func (c *collector) result() *Result {
	if c.out == nil {
		c.out = []types.Product{}
	}
	return &Result{Products: c.out, Rejected: c.reject, Source: c.source}
}

// parseProduct converts raw cell text into a Product. Range checks are left
// to compute.Validate; this only rejects text that is not a number.
func parseProduct(get func(col string) string) (types.Product, error) {
	p := types.Product{
		Name: strings.TrimSpace(get(ColName)),
		Tier: strings.TrimSpace(get(ColTier)),
	}
	var err error
	if p.Price, err = parseFloat(ColPrice, get(ColPrice)); err != nil {
		return p, err
	}
	if p.Rating, err = parseFloat(ColRating, get(ColRating)); err != nil {
		return p, err
	}
	if p.Reviews, err = parseCount(ColReviews, get(ColReviews)); err != nil {
		return p, err
	}
	return p, nil
}

func parseFloat(field, raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &compute.ValidationError{
			Field: field,
			Value: s,
			Err:   fmt.Errorf("%w: not a number", compute.ErrInvalidValue),
		}
	}
	return v, nil
}

// parseCount accepts integers and integral floats ("1200.0"), which is how
// review counts come out of dataframe exports.
func parseCount(field, raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, &compute.ValidationError{
			Field: field,
			Value: s,
			Err:   fmt.Errorf("%w: not a whole number", compute.ErrInvalidValue),
		}
	}
	return int64(f), nil
}
