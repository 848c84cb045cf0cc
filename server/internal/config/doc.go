// Package config loads and watches the shelfsight configuration file (config.yaml).
//
// Top-level sections:
//   - log_level: debug|info|warn|error (default info)
//   - server: http_port (8080), auth {mode apikey|none, key_env, header},
//     broadcast_interval (30s), render_cache_ttl (10m), history_ttl (1h)
//   - dataset: source csv|sqlite, path, table, on_invalid reject|skip,
//     max_rating (5), watch
//   - heuristics.availability: high_quantile (0.75), medium_quantile (0.5),
//     rating_floor (4.8)
//   - charts: histogram_bins (50), top_n (10), trend {frac (2/3), iterations (3)}
//   - alerts: rules [] and webhooks []
//
// Load(path) applies defaults, unmarshals the YAML, overlays SHELFSIGHT_*
// environment variables (HTTP_PORT, DATASET_PATH, DATASET_SOURCE, LOG_LEVEL)
// via envconfig, then validates ranges and enums.
//
// WatchFile(ctx, path, onChange) uses fsnotify on the parent directory so
// atomic-save editors (write temp file, rename over) are detected; Watch
// builds on it to re-parse the config.
package config
