package render

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"image/color"
	"math"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgsvg"

	"github.com/shelfsight/shelfsight/pkg/types"
	"github.com/shelfsight/shelfsight/server/internal/compute"
)

// Chart sizes, in points.
const (
	wideW = vg.Length(720)
	wideH = vg.Length(360)
	pieW  = vg.Length(520)
	pieH  = vg.Length(320)
)

var tierPalette = []color.RGBA{
	{R: 0x3a, G: 0x86, B: 0xff, A: 0xff},
	{R: 0xff, G: 0x00, B: 0x6e, A: 0xff},
	{R: 0x83, G: 0x38, B: 0xec, A: 0xff},
	{R: 0xfb, G: 0x56, B: 0x07, A: 0xff},
	{R: 0x06, G: 0xd6, B: 0xa0, A: 0xff},
	{R: 0xff, G: 0xbe, B: 0x0b, A: 0xff},
	{R: 0x11, G: 0x8a, B: 0xb2, A: 0xff},
	{R: 0x8d, G: 0x99, B: 0xae, A: 0xff},
}

var availabilityColors = map[types.Availability]color.RGBA{
	types.AvailabilityHigh:   {R: 0x2a, G: 0x9d, B: 0x8f, A: 0xff},
	types.AvailabilityMedium: {R: 0xe9, G: 0xc4, B: 0x6a, A: 0xff},
	types.AvailabilityLow:    {R: 0xe7, G: 0x6f, B: 0x51, A: 0xff},
}

var (
	binColor   = color.RGBA{R: 0x43, G: 0x61, B: 0xee, A: 0xff}
	hbarColor  = color.RGBA{R: 0x72, G: 0x09, B: 0xb7, A: 0xff}
	trendColor = color.RGBA{R: 0x1d, G: 0x24, B: 0x33, A: 0xff}
	mutedColor = color.RGBA{R: 0x9a, G: 0xa3, B: 0xb5, A: 0xff}
)

// tierColors assigns palette colors to tier names in sorted order, so a tier
// keeps its color across charts.
func tierColors(tiers []string) map[string]color.RGBA {
	names := append([]string(nil), tiers...)
	sort.Strings(names)
	out := make(map[string]color.RGBA, len(names))
	for _, n := range names {
		if _, ok := out[n]; !ok {
			out[n] = tierPalette[len(out)%len(tierPalette)]
		}
	}
	return out
}

func esc(s string) string { return template.HTMLEscapeString(s) }

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func newPlot(title string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Title.Padding = vg.Points(8)
	return p
}

// encode draws p on an SVG canvas and returns the bare <svg> element, so the
// same string works inline in the dashboard and as a standalone document.
func encode(p *plot.Plot, title string, w, h vg.Length) (string, error) {
	c := vgsvg.New(w, h)
	p.Draw(draw.New(c))
	var buf bytes.Buffer
	if _, err := c.WriteTo(&buf); err != nil {
		return "", fmt.Errorf("render: encode %q: %w", title, err)
	}
	out := buf.String()
	i := strings.Index(out, "<svg")
	if i < 0 {
		return "", errors.New("render: encode: canvas produced no svg element")
	}
	head := fmt.Sprintf(`<svg class="chart" role="img" aria-label="%s"`, esc(title))
	return head + strings.TrimRight(out[i+len("<svg"):], "\n"), nil
}

// textLabels returns one label per point, styled smaller than axis text.
func textLabels(xys plotter.XYs, texts []string, xa draw.XAlignment, ya draw.YAlignment) (*plotter.Labels, error) {
	l, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: texts})
	if err != nil {
		return nil, err
	}
	for i := range l.TextStyle {
		l.TextStyle[i].Font.Size = vg.Points(9)
		l.TextStyle[i].XAlign = xa
		l.TextStyle[i].YAlign = ya
	}
	return l, nil
}

// emptyChart is the titled placeholder drawn when a chart has nothing to show.
func emptyChart(title string, w, h vg.Length) (string, error) {
	p := newPlot(title)
	p.HideAxes()
	l, err := textLabels(plotter.XYs{{}}, []string{"No data"}, draw.XCenter, draw.YCenter)
	if err != nil {
		return "", fmt.Errorf("render: %s: %w", title, err)
	}
	l.TextStyle[0].Font.Size = vg.Points(16)
	l.TextStyle[0].Color = mutedColor
	p.Add(l)
	return encode(p, title, w, h)
}

// TierBarChart draws mean value score per tier, in the order given.
func TierBarChart(tiers []compute.TierValue) (string, error) {
	const title = "Mean value score by price tier"
	if len(tiers) == 0 {
		return emptyChart(title, wideW, wideH)
	}
	names := make([]string, len(tiers))
	full := make([]string, len(tiers))
	for i, t := range tiers {
		names[i] = truncate(t.Tier, 18)
		full[i] = t.Tier
	}
	colors := tierColors(full)

	p := newPlot(title)
	p.X.Label.Text = "Price tier"
	p.Y.Label.Text = "Mean value score"

	width := vg.Points(math.Min(56, 480/float64(len(tiers))))
	xys := make(plotter.XYs, len(tiers))
	values := make([]string, len(tiers))
	highest := 0.0
	for i, t := range tiers {
		bar, err := plotter.NewBarChart(plotter.Values{t.MeanValueScore}, width)
		if err != nil {
			return "", fmt.Errorf("render: tier chart: %w", err)
		}
		bar.XMin = float64(i)
		bar.Color = colors[t.Tier]
		bar.LineStyle.Width = 0
		p.Add(bar)

		xys[i] = plotter.XY{X: float64(i), Y: t.MeanValueScore}
		values[i] = strconv.FormatFloat(t.MeanValueScore, 'f', 2, 64)
		highest = math.Max(highest, t.MeanValueScore)
	}
	labels, err := textLabels(xys, values, draw.XCenter, draw.YBottom)
	if err != nil {
		return "", fmt.Errorf("render: tier chart: %w", err)
	}
	labels.Offset = vg.Point{Y: vg.Points(3)}
	p.Add(labels)

	p.NominalX(names...)
	p.Y.Min, p.Y.Max = 0, 1
	if highest > 0 {
		p.Y.Max = highest * 1.15
	}
	return encode(p, title, wideW, wideH)
}

// pieChart draws availability wedges clockwise from twelve o'clock. The pie
// sits on the left of the data area so the legend keeps the right side.
type pieChart struct {
	slices []compute.AvailabilitySlice
	total  int
}

func (pc pieChart) Plot(c draw.Canvas, _ *plot.Plot) {
	r := (c.Max.Y - c.Min.Y) / 2
	center := vg.Point{X: c.Min.X + r, Y: c.Min.Y + r}
	angle := math.Pi / 2
	for _, s := range pc.slices {
		if s.Count == 0 {
			continue
		}
		var path vg.Path
		if s.Count == pc.total {
			path.Move(vg.Point{X: center.X + r, Y: center.Y})
			path.Arc(center, r, 0, 2*math.Pi)
		} else {
			sweep := -2 * math.Pi * float64(s.Count) / float64(pc.total)
			path.Move(center)
			path.Line(vg.Point{
				X: center.X + r*vg.Length(math.Cos(angle)),
				Y: center.Y + r*vg.Length(math.Sin(angle)),
			})
			path.Arc(center, r, angle, sweep)
			angle += sweep
		}
		path.Close()

		c.Push()
		c.SetColor(availabilityColors[s.Label])
		c.Fill(path)
		c.SetColor(color.White)
		c.SetLineWidth(vg.Points(1))
		c.Stroke(path)
		c.Pop()
	}
}

// swatch is a filled legend square.
type swatch struct{ color.Color }

func (s swatch) Thumbnail(c *draw.Canvas) {
	c.FillPolygon(s.Color, []vg.Point{
		c.Min,
		{X: c.Min.X, Y: c.Max.Y},
		c.Max,
		{X: c.Max.X, Y: c.Min.Y},
	})
}

// AvailabilityPie draws the stock proxy breakdown as a pie with a legend.
func AvailabilityPie(slices []compute.AvailabilitySlice) (string, error) {
	const title = "Estimated stock availability"
	total := 0
	for _, s := range slices {
		total += s.Count
	}
	if total == 0 {
		return emptyChart(title, pieW, pieH)
	}
	p := newPlot(title)
	p.HideAxes()
	p.Add(pieChart{slices: slices, total: total})
	p.Legend.Top = true
	p.Legend.ThumbnailWidth = vg.Points(12)
	for _, s := range slices {
		p.Legend.Add(fmt.Sprintf("%s: %.1f%%", s.Label, s.Pct), swatch{availabilityColors[s.Label]})
	}
	return encode(p, title, pieW, pieH)
}

// PriceHistogramChart draws the non-empty price bins. When h.LogScale is set
// the frequency axis is logarithmic so sparse tail bins stay visible.
func PriceHistogramChart(h compute.Histogram) (string, error) {
	const title = "Price distribution"
	if h.Total == 0 || len(h.Bins) == 0 {
		return emptyChart(title, wideW, wideH)
	}
	hist := &plotter.Histogram{
		Width:     h.Bins[0].Upper - h.Bins[0].Lower,
		FillColor: binColor,
		LineStyle: draw.LineStyle{Color: color.White, Width: vg.Points(0.5)},
		LogY:      h.LogScale,
	}
	for _, b := range h.Bins {
		if b.Count == 0 {
			continue
		}
		hist.Bins = append(hist.Bins, plotter.HistogramBin{Min: b.Lower, Max: b.Upper, Weight: float64(b.Count)})
	}

	p := newPlot(title)
	p.Add(hist)
	p.X.Label.Text = "Price"
	p.X.Min, p.X.Max = h.Bins[0].Lower, h.Bins[len(h.Bins)-1].Upper

	top := float64(h.MaxCount())
	if h.LogScale {
		// Counts are whole numbers, so 0.5 keeps a single product visible.
		p.Y.Scale = plot.LogScale{}
		p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
		p.Y.Min, p.Y.Max = 0.5, top*2
		p.Y.Label.Text = "Products (log scale)"
	} else {
		p.Y.Min, p.Y.Max = 0, top*1.1
		p.Y.Label.Text = "Products"
	}
	return encode(p, title, wideW, wideH)
}

// RatingScatterChart plots rating against price, one colored series per
// tier, with the smoothed trend line on top.
func RatingScatterChart(sc compute.Scatter) (string, error) {
	const title = "Rating vs price"
	if len(sc.Points) == 0 {
		return emptyChart(title, wideW, wideH)
	}
	byTier := make(map[string]plotter.XYs)
	for _, pt := range sc.Points {
		byTier[pt.Tier] = append(byTier[pt.Tier], plotter.XY{X: pt.Price, Y: pt.Rating})
	}
	tiers := make([]string, 0, len(byTier))
	for t := range byTier {
		tiers = append(tiers, t)
	}
	sort.Strings(tiers)
	colors := tierColors(tiers)

	p := newPlot(title)
	p.X.Label.Text = "Price"
	p.Y.Label.Text = "Rating"
	p.Legend.Top = true
	for _, t := range tiers {
		s, err := plotter.NewScatter(byTier[t])
		if err != nil {
			return "", fmt.Errorf("render: scatter %q: %w", t, err)
		}
		s.GlyphStyle = draw.GlyphStyle{Color: colors[t], Radius: vg.Points(3), Shape: draw.CircleGlyph{}}
		p.Add(s)
		p.Legend.Add(truncate(t, 16), s)
	}
	if len(sc.Trend) > 1 {
		xys := make(plotter.XYs, len(sc.Trend))
		for i, pt := range sc.Trend {
			xys[i] = plotter.XY{X: pt.X, Y: pt.Y}
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return "", fmt.Errorf("render: trend: %w", err)
		}
		line.LineStyle = draw.LineStyle{Color: trendColor, Width: vg.Points(2)}
		p.Add(line)
		p.Legend.Add("Trend", line)
	}
	return encode(p, title, wideW, wideH)
}

// TopReviewedChart draws a horizontal bar per product, most reviewed on top.
func TopReviewedChart(products []compute.ScoredProduct) (string, error) {
	const title = "Top reviewed products"
	h := vg.Points(72 + 26*float64(max(len(products), 1)))
	if len(products) == 0 {
		return emptyChart(title, wideW, h)
	}
	n := len(products)
	values := make(plotter.Values, n)
	names := make([]string, n)
	xys := make(plotter.XYs, n)
	counts := make([]string, n)
	var most int64
	for i, pr := range products {
		j := n - 1 - i
		values[j] = float64(pr.Reviews)
		names[j] = truncate(pr.Name, 32)
		xys[j] = plotter.XY{X: float64(pr.Reviews), Y: float64(j)}
		counts[j] = strconv.FormatInt(pr.Reviews, 10)
		most = max(most, pr.Reviews)
	}
	bars, err := plotter.NewBarChart(values, vg.Points(16))
	if err != nil {
		return "", fmt.Errorf("render: top chart: %w", err)
	}
	bars.Horizontal = true
	bars.Color = hbarColor
	bars.LineStyle.Width = 0

	labels, err := textLabels(xys, counts, draw.XLeft, draw.YCenter)
	if err != nil {
		return "", fmt.Errorf("render: top chart: %w", err)
	}
	labels.Offset = vg.Point{X: vg.Points(4)}

	p := newPlot(title)
	p.Add(bars, labels)
	p.NominalY(names...)
	p.X.Label.Text = "Reviews"
	p.X.Min, p.X.Max = 0, 1
	if most > 0 {
		p.X.Max = float64(most) * 1.15
	}
	return encode(p, title, wideW, h)
}

// Chart names served under /charts/{name}.svg.
var charts = map[string]func(r *compute.Report) (string, error){
	"tiers":        func(r *compute.Report) (string, error) { return TierBarChart(r.Tiers) },
	"availability": func(r *compute.Report) (string, error) { return AvailabilityPie(r.Availability) },
	"prices":       func(r *compute.Report) (string, error) { return PriceHistogramChart(r.Prices) },
	"ratings":      func(r *compute.Report) (string, error) { return RatingScatterChart(r.Ratings) },
	"top":          func(r *compute.Report) (string, error) { return TopReviewedChart(r.TopReviewed) },
}

// ErrUnknownChart is returned by Chart for a name outside the chart set.
var ErrUnknownChart = errors.New("render: unknown chart")

// Chart renders the named chart for r.
func Chart(name string, r *compute.Report) (string, error) {
	fn, ok := charts[name]
	if !ok {
		return "", fmt.Errorf("%w %q", ErrUnknownChart, name)
	}
	return fn(r)
}
