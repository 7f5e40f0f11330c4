// Package config provides configuration management for cardsync.
//
// Settings come from environment variables, optionally preloaded from a .env
// file, with defaults declared in `default` struct tags. Nested keys map to
// upper-case variables joined by underscores (pipeline.workers ->
// PIPELINE_WORKERS).
//
// # Configuration Structure
//
//   - Server: HTTP port, API key, inventory cache TTL (serve command)
//   - Storage: S3/MinIO credentials and bucket for archive publication
//   - Log: level, format and optional rotating file
//   - Database: holoDelta card database (sqlite file or MySQL)
//   - Catalog: catalog file, asset store root, archive output directory
//   - Pipeline: worker pool, per-origin limits, encoder settings
//   - Sources: provider endpoints
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Pipeline.Workers)
package config
