// Package config loads and watches the agent configuration file (config.yaml).
//
// Top-level types:
//   - Config{Unit, Pipeline, Source, Monitor, Metrics}: full tree parsed from YAML
//   - Unit: display name and numeric id used in notification headers
//   - Source: id, type (prometheus), endpoint, field renames, auth, tls
//   - AuthConfig: mode (mtls|apikey|bearer|basic|none); Key(), Token() and
//     Password() resolve secrets from environment variables
//   - Monitor: delivery method (none|webhook|slack), power threshold, channel,
//     credentials key file, base URL and delivery timeout
//
// Load(path) reads the YAML file, applies defaults (60s interval, threshold 1,
// 10s delivery timeout, Slack webhook base URL), then validates required
// fields and enums.
//
// Watch(ctx, path, onChange) uses fsnotify to detect file changes and calls
// onChange with the newly parsed Config. It handles the rename→create pattern
// used by atomic-save editors by re-adding the watch after each event.
package config
