package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/shelfsight/shelfsight/pkg/types"
	"github.com/shelfsight/shelfsight/server/internal/alerts"
	"github.com/shelfsight/shelfsight/server/internal/compute"
	"github.com/shelfsight/shelfsight/server/internal/store"
)

// maxTopN caps ?n= on /api/v1/products/top.
const maxTopN = 1000

// AlertSource supplies the alerts shown by GET /api/v1/alerts.
type AlertSource interface {
	Active() []*alerts.Alert
}

// Handler is the HTTP handler for all /api/v1/* endpoints.
type Handler struct {
	store  *store.Store
	alerts AlertSource
	mux    *http.ServeMux
}

// New creates a Handler reading from st and registers all routes.
// al may be nil, in which case /api/v1/alerts is always empty.
func New(st *store.Store, al AlertSource) http.Handler {
	h := &Handler{store: st, alerts: al, mux: http.NewServeMux()}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/summary", h.summary)
	h.mux.HandleFunc("/api/v1/tiers", h.tiers)
	h.mux.HandleFunc("/api/v1/availability", h.availability)
	h.mux.HandleFunc("/api/v1/prices/histogram", h.prices)
	h.mux.HandleFunc("/api/v1/ratings", h.ratings)
	h.mux.HandleFunc("/api/v1/products/top", h.topProducts)
	h.mux.HandleFunc("/api/v1/products", h.products)
	h.mux.HandleFunc("/api/v1/insights", h.insights)
	h.mux.HandleFunc("/api/v1/alerts", h.listAlerts)
	h.mux.HandleFunc("/api/v1/report", h.report)
	h.mux.HandleFunc("/api/v1/reports", h.reports)
	h.mux.HandleFunc("/api/v1/reports/", h.reportByID)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// health returns GET /api/v1/health. It answers 200 even before the first load.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	resp := HealthResponse{Status: "waiting", AlertCount: len(h.activeAlerts())}
	if e, ok := h.store.Current(); ok {
		at := e.UpdatedAt.UTC()
		resp.Status = "ok"
		resp.Generation = e.Generation
		resp.ReportID = e.Report.ID
		resp.LoadedAt = &at
	}
	jsonResp(w, http.StatusOK, resp)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	e, ok := h.current(w, r)
	if !ok {
		return
	}
	jsonResp(w, http.StatusOK, SummaryResponse{
		Summary:     e.Report.Summary,
		ReportID:    e.Report.ID,
		Generation:  e.Generation,
		GeneratedAt: e.Report.GeneratedAt,
	})
}

func (h *Handler) tiers(w http.ResponseWriter, r *http.Request) {
	if e, ok := h.current(w, r); ok {
		jsonResp(w, http.StatusOK, e.Report.Tiers)
	}
}

func (h *Handler) availability(w http.ResponseWriter, r *http.Request) {
	if e, ok := h.current(w, r); ok {
		jsonResp(w, http.StatusOK, e.Report.Availability)
	}
}

func (h *Handler) prices(w http.ResponseWriter, r *http.Request) {
	if e, ok := h.current(w, r); ok {
		jsonResp(w, http.StatusOK, e.Report.Prices)
	}
}

func (h *Handler) ratings(w http.ResponseWriter, r *http.Request) {
	if e, ok := h.current(w, r); ok {
		jsonResp(w, http.StatusOK, e.Report.Ratings)
	}
}

// topProducts returns GET /api/v1/products/top. Without ?n= it returns the
// report's precomputed list; with it, the n most-reviewed products.
func (h *Handler) topProducts(w http.ResponseWriter, r *http.Request) {
	e, ok := h.current(w, r)
	if !ok {
		return
	}
	top := e.Report.TopReviewed
	if raw := r.URL.Query().Get("n"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxTopN {
			jsonErr(w, http.StatusBadRequest, "n must be an integer between 1 and "+strconv.Itoa(maxTopN))
			return
		}
		top = compute.TopNByReviews(e.Report.Products, n)
	}
	jsonResp(w, http.StatusOK, ProductsResponse{Count: len(top), Products: top})
}

// products returns GET /api/v1/products filtered by ?label= and ?tier=.
func (h *Handler) products(w http.ResponseWriter, r *http.Request) {
	e, ok := h.current(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	label := types.Availability(q.Get("label"))
	if label != "" && !label.Valid() {
		jsonErr(w, http.StatusBadRequest, "unknown label "+strconv.Quote(string(label)))
		return
	}
	tier := q.Get("tier")

	out := make([]compute.ScoredProduct, 0, len(e.Report.Products))
	for _, p := range e.Report.Products {
		if label != "" && p.Availability != label {
			continue
		}
		if tier != "" && !strings.EqualFold(p.Tier, tier) {
			continue
		}
		out = append(out, p)
	}
	jsonResp(w, http.StatusOK, ProductsResponse{Count: len(out), Products: out})
}

func (h *Handler) insights(w http.ResponseWriter, r *http.Request) {
	if e, ok := h.current(w, r); ok {
		jsonResp(w, http.StatusOK, ComputeInsights(e.Report))
	}
}

func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	jsonResp(w, http.StatusOK, h.activeAlerts())
}

func (h *Handler) report(w http.ResponseWriter, r *http.Request) {
	if e, ok := h.current(w, r); ok {
		jsonResp(w, http.StatusOK, e.Report)
	}
}

func (h *Handler) reports(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	entries := h.store.List()
	out := make([]ReportInfo, 0, len(entries))
	for i, e := range entries {
		out = append(out, ReportInfo{
			ID:          e.Report.ID,
			Generation:  e.Generation,
			GeneratedAt: e.Report.GeneratedAt,
			LoadedAt:    e.UpdatedAt.UTC(),
			Source:      e.Report.Summary.Source,
			RecordCount: e.Report.Summary.RecordCount,
			Current:     i == 0,
		})
	}
	jsonResp(w, http.StatusOK, out)
}

func (h *Handler) reportByID(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/reports/")
	if id == "" {
		h.reports(w, r)
		return
	}
	e, ok := h.store.Get(id)
	if !ok {
		jsonErr(w, http.StatusNotFound, "report not found")
		return
	}
	jsonResp(w, http.StatusOK, e.Report)
}

// --- helpers ----------------------------------------------------------------

// current enforces GET and fetches the current report, answering 503 when
// nothing has been loaded yet.
func (h *Handler) current(w http.ResponseWriter, r *http.Request) (*store.Entry, bool) {
	if !allowGet(w, r) {
		return nil, false
	}
	e, ok := h.store.Current()
	if !ok {
		w.Header().Set("Retry-After", "5")
		jsonErr(w, http.StatusServiceUnavailable, "no report loaded yet")
		return nil, false
	}
	return e, true
}

func (h *Handler) activeAlerts() []*alerts.Alert {
	if h.alerts == nil {
		return []*alerts.Alert{}
	}
	return h.alerts.Active()
}

func allowGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}

func jsonResp(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
