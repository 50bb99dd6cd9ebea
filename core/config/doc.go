// Package config provides configuration management for org-janitor.
//
// It utilizes Viper for loading configuration from environment variables
// and an optional .env file (credentials stay out of the repo).
//
// # Configuration Structure
//
// The Config struct is the central repository for all settings, divided
// into subsections:
//   - Platform: vendor API base URL, credentials, org scope
//   - Limiter: client-side rate limit (waves, burst, window)
//   - Purge: retry count and linear-backoff delays
//   - Archive: retention age, attribution window, offload toggle
//   - Storage: S3/MinIO offload bucket credentials
//   - Keep: comma-separated allow-lists of persistent entries
//   - Log: logging level and format
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Platform.OrgID)
package config
