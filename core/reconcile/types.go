package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Entity is one discovered remote object: a device, an archive export, or a
// user. IDs are opaque vendor-assigned strings, unique within a type.
type Entity struct {
	// ID is the vendor-assigned identifier (UUID-like or serial).
	ID string `json:"id"`

	// Type is the entity kind, e.g. "camera" or "archive".
	Type string `json:"type"`

	// Extra carries auxiliary fields such as "name" or "site_id".
	Extra map[string]string `json:"extra,omitempty"`
}

// Name returns the entity's display name, if the gatherer recorded one.
func (e Entity) Name() string {
	return e.Extra["name"]
}

// Status classifies the outcome of one delete attempt chain.
type Status string

const (
	// StatusDeleted means the remote delete succeeded.
	StatusDeleted Status = "deleted"
	// StatusSkippedPersistent means the entity is on the allow-list and no
	// request was made.
	StatusSkippedPersistent Status = "skipped_persistent"
	// StatusThrottledExhausted means every attempt came back 429.
	StatusThrottledExhausted Status = "throttled_exhausted"
	// StatusFailed means a non-throttling remote or transport failure.
	StatusFailed Status = "failed"
	// StatusNotFound means the remote reported the entity already gone.
	StatusNotFound Status = "not_found"
)

// Outcome is the per-entity result of a purge run.
type Outcome struct {
	// EntityID is the identifier of the attempted entity.
	EntityID string `json:"entity_id"`

	// Type is the entity kind.
	Type string `json:"type"`

	// Status is the final classification.
	Status Status `json:"status"`

	// AttemptedAt is when the task started (zero for skipped entities).
	AttemptedAt time.Time `json:"attempted_at"`

	// Retries counts retry attempts beyond the first request.
	Retries int `json:"retries"`

	// Detail holds the failure description for StatusFailed.
	Detail string `json:"detail,omitempty"`
}

// Summary aggregates outcome counts for the run report.
type Summary struct {
	Deleted   int `json:"deleted"`
	Skipped   int `json:"skipped"`
	Throttled int `json:"throttled"`
	Failed    int `json:"failed"`
	NotFound  int `json:"not_found"`
}

// Summarize tallies outcomes by status.
func Summarize(outcomes []Outcome) Summary {
	var s Summary
	for _, o := range outcomes {
		switch o.Status {
		case StatusDeleted:
			s.Deleted++
		case StatusSkippedPersistent:
			s.Skipped++
		case StatusThrottledExhausted:
			s.Throttled++
		case StatusNotFound:
			s.NotFound++
		default:
			s.Failed++
		}
	}
	return s
}

// DeleteFunc issues the remote delete (or decommission) for one entity.
// A nil return means the entity is gone. HTTP failures should be returned
// as errors implementing HTTPStatus so the engine can classify them.
type DeleteFunc func(ctx context.Context, ent Entity) error

// StatusCoder is implemented by errors that carry an HTTP status code.
// The engine uses it to tell throttling (429) and not-found (404) apart
// from hard failures.
type StatusCoder interface {
	error
	HTTPStatus() int
}

// httpStatus extracts an HTTP status code from err, if any.
func httpStatus(err error) (int, bool) {
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.HTTPStatus(), true
	}
	return 0, false
}

// Config holds retry tuning for delete dispatch.
type Config struct {
	// MaxRetries is the total number of delete attempts per entity.
	MaxRetries int `mapstructure:"max_retries" default:"5"`
	// RetryDelayMillis is the first backoff delay after a 429.
	RetryDelayMillis int `mapstructure:"retry_delay_millis" default:"250"`
	// BackoffIncrementMillis is added to the delay after every retry.
	// Backoff is linear, matching what the remote API recovers from best.
	BackoffIncrementMillis int `mapstructure:"backoff_increment_millis" default:"250"`
}

// RetryDelay returns the initial backoff delay as a duration.
func (c Config) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMillis) * time.Millisecond
}

// BackoffIncrement returns the per-retry delay increment as a duration.
func (c Config) BackoffIncrement() time.Duration {
	return time.Duration(c.BackoffIncrementMillis) * time.Millisecond
}

// Validate rejects retry settings that could never terminate or never retry.
func (c Config) Validate() error {
	if c.MaxRetries < 1 {
		return fmt.Errorf("max_retries must be at least 1, got %d", c.MaxRetries)
	}
	if c.RetryDelayMillis < 0 {
		return fmt.Errorf("retry_delay_millis must not be negative, got %d", c.RetryDelayMillis)
	}
	if c.BackoffIncrementMillis < 0 {
		return fmt.Errorf("backoff_increment_millis must not be negative, got %d", c.BackoffIncrementMillis)
	}
	return nil
}
