package platform

import (
	"fmt"
	"time"
)

// Config holds configuration for the vendor API connection.
type Config struct {
	// BaseURL is the root URL of the vendor API.
	BaseURL string `mapstructure:"base_url" default:""`
	// Email is the operator account used for the session handshake.
	Email string `mapstructure:"email" default:""`
	// Password is the operator account password.
	Password string `mapstructure:"password" default:""`
	// OrgID is the organization every listing and delete is scoped to.
	OrgID string `mapstructure:"org_id" default:""`
	// TimeoutSeconds bounds each individual HTTP request.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"5"`
}

// Timeout returns the per-request timeout as a duration.
func (c Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Validate reports missing credentials before any network call is made.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("platform base_url is required")
	}
	if c.Email == "" || c.Password == "" {
		return fmt.Errorf("platform credentials are required (email and password)")
	}
	if c.OrgID == "" {
		return fmt.Errorf("platform org_id is required")
	}
	return nil
}
