package dataset

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shelfsight/shelfsight/server/internal/compute"
)

const sampleCSV = `product_name,price,rating,reviews,price_tier,brand
Kettle,25.5,4.9,1000,Budget,Acme
Blender,120,4.2,310.0,Premium,Acme
Toaster,40,3.9,12,Mid,Other
`

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "products.csv")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return p
}

func TestReadCSV_Valid(t *testing.T) {
	res, err := ReadCSV(context.Background(), strings.NewReader(sampleCSV), Options{OnInvalid: Reject, MaxRating: 5})
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(res.Products) != 3 {
		t.Fatalf("products: got %d, want 3", len(res.Products))
	}
	p := res.Products[1]
	if p.Name != "Blender" || p.Price != 120 || p.Rating != 4.2 || p.Reviews != 310 || p.Tier != "Premium" {
		t.Errorf("row 2: got %+v", p)
	}
	if res.Rejected != 0 {
		t.Errorf("rejected: got %d, want 0", res.Rejected)
	}
}

func TestReadCSV_ColumnOrderFree(t *testing.T) {
	in := "\ufeffPrice_Tier, reviews ,rating,price,product_name\nMid,5,4.0,10,Lamp\n"
	res, err := ReadCSV(context.Background(), strings.NewReader(in), Options{OnInvalid: Reject})
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	p := res.Products[0]
	if p.Name != "Lamp" || p.Tier != "Mid" || p.Reviews != 5 || p.Price != 10 {
		t.Errorf("got %+v", p)
	}
}

func TestReadCSV_MissingColumn(t *testing.T) {
	in := "product_name,price,rating,price_tier\nLamp,10,4,Mid\n"
	_, err := ReadCSV(context.Background(), strings.NewReader(in), Options{OnInvalid: Skip})
	if !errors.Is(err, compute.ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn, got %v", err)
	}
	var ve *compute.ValidationError
	if !errors.As(err, &ve) || ve.Field != ColReviews {
		t.Errorf("expected ValidationError for %q, got %v", ColReviews, err)
	}
}

func TestReadCSV_Empty(t *testing.T) {
	if _, err := ReadCSV(context.Background(), strings.NewReader(""), Options{}); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestReadCSV_HeaderOnly(t *testing.T) {
	res, err := ReadCSV(context.Background(), strings.NewReader("product_name,price,rating,reviews,price_tier\n"), Options{})
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if res.Products == nil || len(res.Products) != 0 {
		t.Errorf("products: got %v, want empty non-nil slice", res.Products)
	}
}

func TestReadCSV_RejectPolicy(t *testing.T) {
	cases := []struct {
		name  string
		row   string
		field string
	}{
		{"zero price", "Lamp,0,4.0,5,Mid", "price"},
		{"negative price", "Lamp,-3,4.0,5,Mid", "price"},
		{"text price", "Lamp,cheap,4.0,5,Mid", "price"},
		{"rating above max", "Lamp,10,5.5,5,Mid", "rating"},
		{"negative reviews", "Lamp,10,4,-1,Mid", "reviews"},
		{"fractional reviews", "Lamp,10,4,2.5,Mid", "reviews"},
		{"missing name", ",10,4,2,Mid", "product_name"},
		{"short row", "Lamp,10", "rating"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := "product_name,price,rating,reviews,price_tier\nGood,10,4,1,Mid\n" + tc.row + "\n"
			_, err := ReadCSV(context.Background(), strings.NewReader(in), Options{OnInvalid: Reject, MaxRating: 5})
			if !errors.Is(err, compute.ErrInvalidValue) {
				t.Fatalf("expected ErrInvalidValue, got %v", err)
			}
			var ve *compute.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if ve.Row != 2 {
				t.Errorf("row: got %d, want 2", ve.Row)
			}
			if ve.Field != tc.field {
				t.Errorf("field: got %q, want %q", ve.Field, tc.field)
			}
		})
	}
}

func TestReadCSV_SkipPolicy(t *testing.T) {
	in := "product_name,price,rating,reviews,price_tier\n" +
		"Good,10,4,1,Mid\n" +
		"Bad,0,4,1,Mid\n" +
		"AlsoBad,10,9,1,Mid\n" +
		"Fine,20,3,2,Budget\n"
	res, err := ReadCSV(context.Background(), strings.NewReader(in), Options{OnInvalid: Skip, MaxRating: 5})
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(res.Products) != 2 {
		t.Errorf("products: got %d, want 2", len(res.Products))
	}
	if res.Rejected != 2 {
		t.Errorf("rejected: got %d, want 2", res.Rejected)
	}
}

func TestReadCSV_MaxRatingDisabled(t *testing.T) {
	in := "product_name,price,rating,reviews,price_tier\nLamp,10,9.5,1,Mid\n"
	res, err := ReadCSV(context.Background(), strings.NewReader(in), Options{OnInvalid: Reject})
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if res.Products[0].Rating != 9.5 {
		t.Errorf("rating: got %g", res.Products[0].Rating)
	}
}

func TestLoadCSV_File(t *testing.T) {
	p := writeCSV(t, sampleCSV)
	res, err := Load(context.Background(), Source{Kind: KindCSV, Path: p, Options: Options{OnInvalid: Reject, MaxRating: 5}})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(res.Products) != 3 {
		t.Errorf("products: got %d, want 3", len(res.Products))
	}
	if res.Source != "csv:"+p {
		t.Errorf("source: got %q", res.Source)
	}
}

func TestLoadCSV_MissingFile(t *testing.T) {
	_, err := LoadCSV(context.Background(), filepath.Join(t.TempDir(), "nope.csv"), Options{})
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected os.ErrNotExist, got %v", err)
	}
}

func TestLoad_UnknownKind(t *testing.T) {
	if _, err := Load(context.Background(), Source{Kind: "parquet"}); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestParseCount(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"12", 12, true},
		{" 310.0 ", 310, true},
		{"1e3", 1000, true},
		{"2.5", 0, false},
		{"", 0, false},
		{"NaN", 0, false},
		{"many", 0, false},
	}
	for _, tc := range cases {
		got, err := parseCount("reviews", tc.in)
		if (err == nil) != tc.ok {
			t.Errorf("parseCount(%q): err=%v, want ok=%v", tc.in, err, tc.ok)
			continue
		}
		if tc.ok && got != tc.want {
			t.Errorf("parseCount(%q): got %d, want %d", tc.in, got, tc.want)
		}
	}
}
