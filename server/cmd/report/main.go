// Command report builds one report from the configured dataset and writes it
// as a standalone HTML dashboard or as JSON, without starting the server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/shelfsight/shelfsight/server/internal/compute"
	"github.com/shelfsight/shelfsight/server/internal/config"
	"github.com/shelfsight/shelfsight/server/internal/dataset"
	"github.com/shelfsight/shelfsight/server/internal/refresh"
	"github.com/shelfsight/shelfsight/server/internal/render"
	"github.com/shelfsight/shelfsight/server/internal/store"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	envFile := flag.String("env-file", ".env", "optional dotenv file loaded before the config")
	format := flag.String("format", "html", "output format: html | json")
	out := flag.String("out", "-", "output file, - for stdout")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	if err := run(*configPath, *envFile, *format, *out); err != nil {
		slog.Error("report failed", "err", err)
		os.Exit(1)
	}
}

func run(configPath, envFile, format, out string) error {
	if format != "html" && format != "json" {
		return fmt.Errorf("unknown format %q: want html|json", format)
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("env file: %w", err)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	res, err := dataset.Load(ctx, dataset.SourceFromConfig(cfg.Dataset))
	if err != nil {
		return err
	}
	opts := refresh.OptionsFromConfig(cfg)
	opts.Source = res.Source
	opts.RejectedRows = res.Rejected
	rep, err := compute.Build(res.Products, opts, time.Now())
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if out != "-" {
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}

	st := store.New(time.Hour)
	st.Put(rep)
	e, _ := st.Current()
	page, err := render.Page(e, false)
	if err != nil {
		return err
	}
	_, err = w.Write(page)
	if err == nil {
		slog.Info("report written", "out", out, "records", rep.Summary.RecordCount, "rejected", rep.Summary.RejectedRows)
	}
	return err
}
