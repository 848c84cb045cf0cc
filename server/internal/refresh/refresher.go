package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shelfsight/shelfsight/server/internal/compute"
	"github.com/shelfsight/shelfsight/server/internal/config"
	"github.com/shelfsight/shelfsight/server/internal/dataset"
	"github.com/shelfsight/shelfsight/server/internal/store"
)

// Evaluator is notified of every newly published report.
type Evaluator interface {
	Evaluate(r *compute.Report)
}

// Broadcaster pushes the current report to connected clients.
type Broadcaster interface {
	Broadcast()
}

// Observer records the outcome of each reload.
type Observer interface {
	ObserveReload(err error)
}

// Refresher rebuilds the report from the configured dataset.
type Refresher struct {
	store  *store.Store
	alerts Evaluator
	hub    Broadcaster
	obs    Observer
	now    func() time.Time

	run sync.Mutex // one reload at a time

	mu          sync.Mutex
	src         dataset.Source
	opts        compute.Options
	watchCancel context.CancelFunc
}

// New creates a Refresher for cfg that publishes to st.
// al, hub and obs may be nil.
func New(cfg *config.Config, st *store.Store, al Evaluator, hub Broadcaster, obs Observer) *Refresher {
	return &Refresher{
		store:  st,
		alerts: al,
		hub:    hub,
		obs:    obs,
		now:    time.Now,
		src:    dataset.SourceFromConfig(cfg.Dataset),
		opts:   OptionsFromConfig(cfg),
	}
}

// OptionsFromConfig maps the heuristic and chart settings onto compute.Options.
func OptionsFromConfig(cfg *config.Config) compute.Options {
	a := cfg.Heuristics.Availability
	return compute.Options{
		Heuristic: compute.Heuristic{
			HighQuantile:   a.HighQuantile,
			MediumQuantile: a.MediumQuantile,
			RatingFloor:    a.RatingFloor,
		},
		HistogramBins:   cfg.Charts.HistogramBins,
		TopN:            cfg.Charts.TopN,
		TrendFrac:       cfg.Charts.Trend.Frac,
		TrendIterations: cfg.Charts.Trend.Iterations,
	}
}

// Source returns the dataset source the next reload will read.
func (r *Refresher) Source() dataset.Source {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src
}

// Apply switches to the dataset and compute settings of cfg. It takes effect
// on the next Reload. Server, auth and alert settings are not hot-reloadable.
//
// Apply reports whether a running Watch will perform that reload itself,
// which it does when the dataset path changed. Otherwise the caller reloads.
func (r *Refresher) Apply(cfg *config.Config) bool {
	src := dataset.SourceFromConfig(cfg.Dataset)

	r.mu.Lock()
	moved := src.Path != r.src.Path
	r.src = src
	r.opts = OptionsFromConfig(cfg)
	cancel := r.watchCancel
	r.mu.Unlock()

	slog.Info("refresh: settings applied", "source", src.String())
	if moved && cancel != nil {
		cancel()
		return true
	}
	return false
}

// Reload runs one load pass and publishes the resulting report.
// On error the previous report stays current.
func (r *Refresher) Reload(ctx context.Context) error {
	r.run.Lock()
	defer r.run.Unlock()

	r.mu.Lock()
	src, opts := r.src, r.opts
	r.mu.Unlock()

	start := r.now()
	res, err := dataset.Load(ctx, src)
	if err != nil {
		return r.fail(src, fmt.Errorf("refresh: load: %w", err))
	}

	opts.Source = res.Source
	opts.RejectedRows = res.Rejected
	rep, err := compute.Build(res.Products, opts, r.now())
	if err != nil {
		return r.fail(src, fmt.Errorf("refresh: build: %w", err))
	}

	gen := r.store.Put(rep)
	if r.alerts != nil {
		r.alerts.Evaluate(rep)
	}
	if r.hub != nil {
		r.hub.Broadcast()
	}
	if r.obs != nil {
		r.obs.ObserveReload(nil)
	}

	slog.Info("refresh: report published",
		"source", res.Source,
		"records", len(res.Products),
		"rejected", res.Rejected,
		"generation", gen,
		"report_id", rep.ID,
		"took", r.now().Sub(start),
	)
	return nil
}

func (r *Refresher) fail(src dataset.Source, err error) error {
	slog.Error("refresh: reload failed, keeping previous report", "source", src.String(), "err", err)
	if r.obs != nil {
		r.obs.ObserveReload(err)
	}
	return err
}

// Watch reloads whenever the dataset file changes and runs until ctx is
// cancelled. When Apply moves the dataset to another path the watch follows.
func (r *Refresher) Watch(ctx context.Context) error {
	for {
		wctx, cancel := context.WithCancel(ctx)
		r.mu.Lock()
		path := r.src.Path
		r.watchCancel = cancel
		r.mu.Unlock()

		err := dataset.Watch(wctx, path, func() {
			_ = r.Reload(ctx)
		})
		cancel()
		r.mu.Lock()
		r.watchCancel = nil
		r.mu.Unlock()

		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return fmt.Errorf("refresh: watch %q: %w", path, err)
		}
		if r.Source().Path == path {
			// Watcher ended without a path change; nothing left to follow.
			return nil
		}
		// Apply moved the dataset. Pick up the new file right away.
		_ = r.Reload(ctx)
	}
}
