package metrics

import (
	"bytes"
	"log/slog"
	"net/http"
	"sort"
	"sync/atomic"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/shelfsight/shelfsight/pkg/types"
	"github.com/shelfsight/shelfsight/server/internal/store"
)

const namespace = "shelfsight_"

// Exporter renders the metric families for /metrics.
// It is safe for concurrent use.
type Exporter struct {
	store    *store.Store
	reloads  atomic.Uint64
	failures atomic.Uint64
}

// New creates an Exporter reading from st.
func New(st *store.Store) *Exporter {
	return &Exporter{store: st}
}

// ObserveReload counts one load pass; err != nil counts it as a failure.
func (x *Exporter) ObserveReload(err error) {
	if err != nil {
		x.failures.Add(1)
		return
	}
	x.reloads.Add(1)
}

// Families returns all metric families sorted by name.
func (x *Exporter) Families() []*dto.MetricFamily {
	fams := []*dto.MetricFamily{
		{
			Name: proto.String(namespace + "reloads_total"),
			Help: proto.String("Dataset load passes by result."),
			Type: dto.MetricType_COUNTER.Enum(),
			Metric: []*dto.Metric{
				counter(float64(x.reloads.Load()), "result", "success"),
				counter(float64(x.failures.Load()), "result", "failure"),
			},
		},
		gaugeFamily("report_generation", "Number of reports stored since start.",
			gauge(float64(x.store.Generation()))),
	}

	if e, ok := x.store.Current(); ok {
		r := e.Report
		tierMean := make([]*dto.Metric, 0, len(r.Tiers))
		tierCount := make([]*dto.Metric, 0, len(r.Tiers))
		for _, t := range r.Tiers {
			tierMean = append(tierMean, gauge(t.MeanValueScore, "tier", t.Tier))
			tierCount = append(tierCount, gauge(float64(t.Count), "tier", t.Tier))
		}

		// Every label is exported, zero when absent, so series do not vanish.
		avail := make([]*dto.Metric, 0, len(types.Availabilities))
		for _, l := range types.Availabilities {
			n := 0
			for _, s := range r.Availability {
				if s.Label == l {
					n = s.Count
				}
			}
			avail = append(avail, gauge(float64(n), "label", string(l)))
		}

		fams = append(fams,
			gaugeFamily("products_total", "Products in the current report.",
				gauge(float64(r.Summary.RecordCount))),
			gaugeFamily("rejected_rows_total", "Input rows skipped by validation in the current report.",
				gauge(float64(r.Summary.RejectedRows))),
			gaugeFamily("tier_value_score_mean", "Mean value score (rating / ln(1+price)) per price tier.", tierMean...),
			gaugeFamily("tier_products", "Products per price tier.", tierCount...),
			gaugeFamily("availability_products", "Products per stock proxy label.", avail...),
			gaugeFamily("report_generated_timestamp_seconds", "Unix time the current report was built.",
				gauge(float64(r.GeneratedAt.Unix())+float64(r.GeneratedAt.Nanosecond())/1e9)),
		)
	}

	// The text encoder rejects families without samples.
	out := fams[:0]
	for _, mf := range fams {
		if len(mf.Metric) > 0 {
			out = append(out, mf)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GetName() < out[j].GetName() })
	return out
}

// ServeHTTP writes the text exposition.
func (x *Exporter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var buf bytes.Buffer
	for _, mf := range x.Families() {
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			slog.Error("metrics: encode family", "family", mf.GetName(), "err", err)
			http.Error(w, "encode metrics", http.StatusInternalServerError)
			return
		}
	}
	w.Header().Set("Content-Type", string(expfmt.NewFormat(expfmt.TypeTextPlain)))
	_, _ = w.Write(buf.Bytes())
}

func gaugeFamily(name, help string, ms ...*dto.Metric) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   proto.String(namespace + name),
		Help:   proto.String(help),
		Type:   dto.MetricType_GAUGE.Enum(),
		Metric: ms,
	}
}

func gauge(v float64, labels ...string) *dto.Metric {
	return &dto.Metric{Label: labelPairs(labels), Gauge: &dto.Gauge{Value: proto.Float64(v)}}
}

func counter(v float64, labels ...string) *dto.Metric {
	return &dto.Metric{Label: labelPairs(labels), Counter: &dto.Counter{Value: proto.Float64(v)}}
}

// labelPairs turns name, value, name, value... into label pairs.
func labelPairs(kv []string) []*dto.LabelPair {
	if len(kv) == 0 {
		return nil
	}
	out := make([]*dto.LabelPair, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, &dto.LabelPair{Name: proto.String(kv[i]), Value: proto.String(kv[i+1])})
	}
	return out
}
