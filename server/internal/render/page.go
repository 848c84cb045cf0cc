package render

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/shelfsight/shelfsight/server/internal/api"
	"github.com/shelfsight/shelfsight/server/internal/compute"
	"github.com/shelfsight/shelfsight/server/internal/store"
)

const defaultTTL = 10 * time.Minute

// section is one dashboard block.
type section struct {
	ID          string
	Title       string
	Description string
	Chart       template.HTML
}

// sections lists the dashboard blocks in page order. Each ID names a chart.
var sections = []section{
	{
		ID:          "tiers",
		Title:       "Best Value Score per Price Tier",
		Description: "Value score helps estimate how much value a product gives based on its rating relative to price.",
	},
	{
		ID:          "availability",
		Title:       "Estimated Stock Availability",
		Description: "This estimation uses review volume and rating to guess likely availability.",
	},
	{
		ID:          "prices",
		Title:       "Price Distribution (Log Scaled)",
		Description: "Because price data is usually skewed, a log scaled histogram gives clearer insight.",
	},
	{
		ID:          "ratings",
		Title:       "Rating vs Price",
		Description: "This scatter plot shows the relationship between product rating and price. The trend line shows how rating shifts across prices.",
	},
	{
		ID:          "top",
		Title:       "Top Reviewed Products",
		Description: "These products have the highest number of reviews and usually represent what users engage with the most.",
	},
}

type pageData struct {
	Generation uint64
	Report     *compute.Report
	LoadedAt   time.Time
	Insights   []api.Insight
	Sections   []section
	Top        []compute.ScoredProduct
	Live       bool
}

// Renderer renders the dashboard from the store's current report.
type Renderer struct {
	store *store.Store
	cache *cache.Cache
}

// New creates a Renderer. ttl bounds how long rendered output is kept;
// ttl <= 0 uses ten minutes.
func New(st *store.Store, ttl time.Duration) *Renderer {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Renderer{
		store: st,
		cache: cache.New(ttl, 2*ttl),
	}
}

// Page renders the full dashboard for e. A live page reloads itself when the
// server publishes a newer report; a static one has no script.
func Page(e *store.Entry, live bool) ([]byte, error) {
	r := e.Report
	data := pageData{
		Live:       live,
		Generation: e.Generation,
		Report:     r,
		LoadedAt:   e.UpdatedAt.UTC(),
		Insights:   api.ComputeInsights(r),
		Top:        r.TopReviewed,
	}
	for _, s := range sections {
		svg, err := Chart(s.ID, r)
		if err != nil {
			return nil, fmt.Errorf("render: dashboard: %w", err)
		}
		s.Chart = template.HTML(svg)
		data.Sections = append(data.Sections, s)
	}
	var buf bytes.Buffer
	if err := dashboardTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render: dashboard: %w", err)
	}
	return buf.Bytes(), nil
}

// ServeHTTP serves the dashboard at "/".
func (rd *Renderer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if !allowRead(w, r) {
		return
	}
	e, ok := rd.store.Current()
	if !ok {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Retry-After", "5")
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = waitingTemplate.Execute(w, nil)
		return
	}

	key := fmt.Sprintf("page:%d", e.Generation)
	body, err := rd.cached(key, func() ([]byte, error) { return Page(e, true) })
	if err != nil {
		slog.Error("render: dashboard failed", "generation", e.Generation, "err", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(body)
}

// ChartHandler serves /charts/{name}.svg.
func (rd *Renderer) ChartHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !allowRead(w, r) {
			return
		}
		file := strings.TrimPrefix(r.URL.Path, "/charts/")
		name, ok := strings.CutSuffix(file, ".svg")
		if !ok {
			http.NotFound(w, r)
			return
		}
		if _, known := charts[name]; !known {
			http.NotFound(w, r)
			return
		}
		e, ok := rd.store.Current()
		if !ok {
			w.Header().Set("Retry-After", "5")
			http.Error(w, "no report loaded yet", http.StatusServiceUnavailable)
			return
		}
		key := fmt.Sprintf("chart:%s:%d", name, e.Generation)
		body, err := rd.cached(key, func() ([]byte, error) {
			svg, err := Chart(name, e.Report)
			return []byte(svg), err
		})
		if err != nil {
			slog.Error("render: chart failed", "chart", name, "generation", e.Generation, "err", err)
			http.Error(w, "render failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/svg+xml")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write(body)
	})
}

func (rd *Renderer) cached(key string, build func() ([]byte, error)) ([]byte, error) {
	if v, found := rd.cache.Get(key); found {
		return v.([]byte), nil
	}
	body, err := build()
	if err != nil {
		return nil, err
	}
	rd.cache.Set(key, body, cache.DefaultExpiration)
	return body, nil
}

func allowRead(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}
