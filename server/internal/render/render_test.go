package render

import (
	"encoding/xml"
	"errors"
	"fmt"
	"image/color"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/shelfsight/shelfsight/pkg/types"
	"github.com/shelfsight/shelfsight/server/internal/compute"
	"github.com/shelfsight/shelfsight/server/internal/store"
)

func sampleReport(t *testing.T) *compute.Report {
	t.Helper()
	products := []types.Product{
		{Name: "Kettle <Deluxe>", Price: 10, Rating: 4.9, Reviews: 1000, Tier: "Budget"},
		{Name: "Blender", Price: 100, Rating: 4.0, Reviews: 10, Tier: "Premium"},
		{Name: "Toaster", Price: 25, Rating: 4.5, Reviews: 300, Tier: "Mid"},
		{Name: "Mixer", Price: 250, Rating: 4.8, Reviews: 800, Tier: "Premium"},
		{Name: "Grinder", Price: 15, Rating: 3.9, Reviews: 120, Tier: "Budget"},
		{Name: "Scale", Price: 30, Rating: 4.2, Reviews: 50, Tier: "Mid"},
	}
	r, err := compute.Build(products, compute.DefaultOptions(), time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return r
}

// wellFormed checks that s parses as XML from start to end.
func wellFormed(t *testing.T, s string) {
	t.Helper()
	dec := xml.NewDecoder(strings.NewReader(s))
	for {
		_, err := dec.Token()
		if err == io.EOF {
			return
		}
		if err != nil {
			t.Fatalf("malformed SVG: %v\n%s", err, s)
		}
	}
}

var pathRE = regexp.MustCompile(`<path d="([^"]*)" style="([^"]*)"`)

// filled returns the path data of every shape filled with c.
func filled(svg string, c color.RGBA) []string {
	want := fmt.Sprintf("fill:#%02X%02X%02X", c.R, c.G, c.B)
	var out []string
	for _, m := range pathRE.FindAllStringSubmatch(svg, -1) {
		if strings.HasPrefix(m[2], want) {
			out = append(out, m[1])
		}
	}
	return out
}

// chartOK fails the test on a render error or malformed output and returns
// the SVG.
func chartOK(t *testing.T) func(string, error) string {
	return func(svg string, err error) string {
		t.Helper()
		if err != nil {
			t.Fatalf("chart: %v", err)
		}
		wellFormed(t, svg)
		return svg
	}
}

func TestCharts_WellFormed(t *testing.T) {
	r := sampleReport(t)
	for name := range charts {
		t.Run(name, func(t *testing.T) {
			svg := chartOK(t)(Chart(name, r))
			if !strings.HasPrefix(svg, `<svg class="chart"`) || !strings.HasSuffix(svg, "</svg>") {
				t.Errorf("not a bare svg element: %.60s...", svg)
			}
			if strings.Contains(svg, "<?xml") {
				t.Error("inline chart still carries the XML prolog")
			}
		})
	}
	if _, err := Chart("bogus", r); !errors.Is(err, ErrUnknownChart) {
		t.Errorf("Chart(bogus): got %v, want ErrUnknownChart", err)
	}
}

func TestCharts_EmptyData(t *testing.T) {
	type build func() (string, error)
	cases := map[string]build{
		"tiers":        func() (string, error) { return TierBarChart(nil) },
		"availability": func() (string, error) { return AvailabilityPie(nil) },
		"prices":       func() (string, error) { return PriceHistogramChart(compute.Histogram{}) },
		"ratings":      func() (string, error) { return RatingScatterChart(compute.Scatter{}) },
		"top":          func() (string, error) { return TopReviewedChart(nil) },
	}
	for name, fn := range cases {
		t.Run(name, func(t *testing.T) {
			svg := chartOK(t)(fn())
			if !strings.Contains(svg, "No data") {
				t.Errorf("expected placeholder, got %.80s", svg)
			}
		})
	}
}

func TestTierBarChart_OrderAndEscaping(t *testing.T) {
	svg := chartOK(t)(TierBarChart([]compute.TierValue{
		{Tier: "A&B", MeanValueScore: 2, Count: 1},
		{Tier: "C", MeanValueScore: 1, Count: 3},
	}))
	if !strings.Contains(svg, "A&amp;B") {
		t.Error("tier name not escaped")
	}
	if strings.Index(svg, ">A&amp;B<") > strings.Index(svg, ">C<") {
		t.Error("bars not labelled in the given order")
	}
	colors := tierColors([]string{"A&B", "C"})
	for _, tier := range []string{"A&B", "C"} {
		if n := len(filled(svg, colors[tier])); n != 1 {
			t.Errorf("%s bars: got %d, want 1", tier, n)
		}
	}
	if !strings.Contains(svg, ">2.00<") {
		t.Error("bar value label missing")
	}
}

func TestTierBarChart_AriaLabel(t *testing.T) {
	svg := chartOK(t)(TierBarChart([]compute.TierValue{{Tier: "x", MeanValueScore: 1, Count: 1}}))
	if !strings.HasPrefix(svg, `<svg class="chart" role="img" aria-label="Mean value score by price tier"`) {
		t.Errorf("unexpected svg head: %.120s", svg)
	}
}

func TestAvailabilityPie_SingleLabelIsCircle(t *testing.T) {
	low := availabilityColors[types.AvailabilityLow]
	svg := chartOK(t)(AvailabilityPie([]compute.AvailabilitySlice{{Label: types.AvailabilityLow, Count: 4, Pct: 100}}))
	var circles int
	for _, d := range filled(svg, low) {
		if !strings.Contains(d, "L") {
			circles++
			if n := strings.Count(d, "A"); n != 2 {
				t.Errorf("full circle should be two arcs, got %d in %q", n, d)
			}
		}
	}
	if circles != 1 {
		t.Errorf("full circles: got %d, want 1", circles)
	}
	if !strings.Contains(svg, "Low Availability: 100.0%") {
		t.Error("legend entry missing")
	}
}

func TestAvailabilityPie_Slices(t *testing.T) {
	svg := chartOK(t)(AvailabilityPie(sampleReport(t).Availability))
	wedges := 0
	for label, c := range availabilityColors {
		paths := filled(svg, c)
		// One wedge plus one legend swatch.
		if len(paths) != 2 {
			t.Errorf("%s: got %d filled shapes, want 2", label, len(paths))
		}
		for _, d := range paths {
			if strings.Contains(d, "A") {
				wedges++
			}
		}
	}
	if wedges != 3 {
		t.Errorf("wedges: got %d, want 3", wedges)
	}
	if !strings.Contains(svg, "High Availability: 33.3%") {
		t.Errorf("legend missing High Availability share")
	}
}

func TestPriceHistogramChart_OnlyNonEmptyBins(t *testing.T) {
	h := compute.BuildHistogram([]float64{1, 1, 1, 50, 100}, 10)
	svg := chartOK(t)(PriceHistogramChart(h))
	nonEmpty := 0
	for _, b := range h.Bins {
		if b.Count > 0 {
			nonEmpty++
		}
	}
	if n := len(filled(svg, binColor)); n != nonEmpty {
		t.Errorf("bins drawn: got %d, want %d", n, nonEmpty)
	}
	if !strings.Contains(svg, "log scale") {
		t.Error("log-scaled histogram should say so on its axis")
	}
}

func TestPriceHistogramChart_LinearScale(t *testing.T) {
	h := compute.BuildHistogram([]float64{2, 4, 4, 8}, 4)
	h.LogScale = false
	svg := chartOK(t)(PriceHistogramChart(h))
	if strings.Contains(svg, "log scale") {
		t.Error("linear histogram labelled as log scale")
	}
	if n := len(filled(svg, binColor)); n != 3 {
		t.Errorf("bins drawn: got %d, want 3", n)
	}
}

func TestRatingScatterChart_PointsAndTrend(t *testing.T) {
	r := sampleReport(t)
	svg := chartOK(t)(RatingScatterChart(r.Ratings))
	perTier := map[string]int{}
	for _, p := range r.Ratings.Points {
		perTier[p.Tier]++
	}
	tiers := make([]string, 0, len(perTier))
	for tier := range perTier {
		tiers = append(tiers, tier)
	}
	colors := tierColors(tiers)
	for tier, want := range perTier {
		// Every point plus the legend marker.
		if n := len(filled(svg, colors[tier])); n != want+1 {
			t.Errorf("%s dots: got %d, want %d", tier, n, want+1)
		}
	}
	if !strings.Contains(svg, fmt.Sprintf("stroke:#%02X%02X%02X", trendColor.R, trendColor.G, trendColor.B)) {
		t.Error("trend line missing")
	}
	if !strings.Contains(svg, ">Trend<") {
		t.Error("trend legend entry missing")
	}
}

func TestTopReviewedChart_BarsAndNames(t *testing.T) {
	r := sampleReport(t)
	svg := chartOK(t)(TopReviewedChart(r.TopReviewed))
	if n := len(filled(svg, hbarColor)); n != len(r.TopReviewed) {
		t.Errorf("bars: got %d, want %d", n, len(r.TopReviewed))
	}
	if !strings.Contains(svg, "Kettle &lt;Deluxe&gt;") {
		t.Error("product name not escaped")
	}
	if !strings.Contains(svg, ">120<") {
		t.Error("review count label missing")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("Budget", 18); got != "Budget" {
		t.Errorf("short name changed: %q", got)
	}
	if got := truncate("Professional Grade Equipment", 10); got != "Professio…" {
		t.Errorf("truncate: got %q", got)
	}
}

func TestTierColors_Stable(t *testing.T) {
	a := tierColors([]string{"Premium", "Budget", "Mid"})
	b := tierColors([]string{"Mid", "Premium", "Budget"})
	for k, v := range a {
		if b[k] != v {
			t.Errorf("color for %s differs: %v vs %v", k, v, b[k])
		}
	}
}

func TestRenderer_Waiting(t *testing.T) {
	rd := New(store.New(time.Hour), time.Minute)
	rr := httptest.NewRecorder()
	rd.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status: got %d, want 503", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "not been loaded") {
		t.Error("waiting page body missing")
	}
}

func TestRenderer_Dashboard(t *testing.T) {
	st := store.New(time.Hour)
	rep := sampleReport(t)
	st.Put(rep)
	rd := New(st, time.Minute)

	rr := httptest.NewRecorder()
	rd.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		"Best Value Score per Price Tier",
		"Estimated Stock Availability",
		"Price Distribution (Log Scaled)",
		"Rating vs Price",
		"Top Reviewed Products",
		"Kettle &lt;Deluxe&gt;",
		rep.ID,
		"/ws/stream",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("dashboard missing %q", want)
		}
	}
	if n := strings.Count(body, "<svg"); n != 5 {
		t.Errorf("inline charts: got %d, want 5", n)
	}

	if _, found := rd.cache.Get("page:1"); !found {
		t.Error("page not cached for generation 1")
	}
}

func TestRenderer_CacheFollowsGeneration(t *testing.T) {
	st := store.New(time.Hour)
	first := sampleReport(t)
	st.Put(first)
	rd := New(st, time.Minute)

	get := func() string {
		rr := httptest.NewRecorder()
		rd.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		return rr.Body.String()
	}
	if !strings.Contains(get(), first.ID) {
		t.Fatal("first report not rendered")
	}
	second := sampleReport(t)
	st.Put(second)
	if body := get(); !strings.Contains(body, second.ID) || strings.Contains(body, first.ID) {
		t.Error("dashboard still shows the superseded report")
	}
}

func TestRenderer_NotFoundAndMethod(t *testing.T) {
	rd := New(store.New(time.Hour), time.Minute)
	rr := httptest.NewRecorder()
	rd.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/favicon.ico", nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("other path: got %d, want 404", rr.Code)
	}
	rr = httptest.NewRecorder()
	rd.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST: got %d, want 405", rr.Code)
	}
}

func TestChartHandler(t *testing.T) {
	st := store.New(time.Hour)
	h := New(st, time.Minute).ChartHandler()

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/charts/tiers.svg", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("before load: got %d, want 503", rr.Code)
	}

	st.Put(sampleReport(t))
	for _, name := range []string{"tiers", "availability", "prices", "ratings", "top"} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/charts/"+name+".svg", nil))
		if rr.Code != http.StatusOK {
			t.Errorf("%s: got %d, want 200", name, rr.Code)
			continue
		}
		if ct := rr.Header().Get("Content-Type"); ct != "image/svg+xml" {
			t.Errorf("%s: Content-Type %q", name, ct)
		}
		wellFormed(t, rr.Body.String())
	}

	for _, p := range []string{"/charts/bogus.svg", "/charts/tiers.png"} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, p, nil))
		if rr.Code != http.StatusNotFound {
			t.Errorf("%s: got %d, want 404", p, rr.Code)
		}
	}
}

func TestPage_StaticHasNoScript(t *testing.T) {
	st := store.New(time.Hour)
	st.Put(sampleReport(t))
	e, _ := st.Current()

	static, err := Page(e, false)
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	if strings.Contains(string(static), "<script>") {
		t.Error("static page should not carry the live-reload script")
	}
	live, err := Page(e, true)
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	if !strings.Contains(string(live), "var generation =") {
		t.Error("live page should embed its generation")
	}
}
