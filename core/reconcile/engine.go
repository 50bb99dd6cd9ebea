package reconcile

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"org-janitor/core/ratelimit"
	"org-janitor/core/safelist"

	"go.uber.org/zap"
)

// Engine owns the safelist and the rate limiter for the duration of one
// run. It holds no state between runs; construct a fresh engine per purge.
type Engine struct {
	safe    *safelist.Set
	limiter *ratelimit.Limiter
	cfg     Config
	log     *zap.Logger

	// sleep is swapped out by tests to observe backoff without waiting.
	sleep func(time.Duration)
}

// NewEngine validates the retry configuration and wires the engine.
// The safelist must be fully built before the first call to Run; it is
// read-only from here on.
func NewEngine(safe *safelist.Set, limiter *ratelimit.Limiter, cfg Config, log *zap.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		safe:    safe,
		limiter: limiter,
		cfg:     cfg,
		log:     log,
		sleep:   time.Sleep,
	}, nil
}

// Diff returns the entities in inventory that are not persistent, in input
// order. Pure: same inventory and safelist always produce the same slice.
func (e *Engine) Diff(inventory []Entity) []Entity {
	toDelete := make([]Entity, 0, len(inventory))
	for _, ent := range inventory {
		if !e.isPersistent(ent) {
			toDelete = append(toDelete, ent)
		}
	}
	return toDelete
}

// isPersistent matches the allow-list against both the vendor ID and the
// operator-facing name, since the configured list may carry either.
func (e *Engine) isPersistent(ent Entity) bool {
	if e.safe.Contains(ent.ID) {
		return true
	}
	if name := ent.Name(); name != "" && e.safe.Contains(name) {
		return true
	}
	return false
}

// Run reconciles the inventory and dispatches deletes for everything not on
// the allow-list. One goroutine per to-delete entity; each passes through
// the limiter before its first request. Returns one Outcome per inventory
// entity, sorted by entity ID, after every task has terminated.
//
// Cancelling ctx stops admitting new work; tasks already past the limiter
// finish their in-flight request naturally.
func (e *Engine) Run(ctx context.Context, inventory []Entity, del DeleteFunc) []Outcome {
	outcomes := make([]Outcome, len(inventory))

	var wg sync.WaitGroup
	for i, ent := range inventory {
		if e.isPersistent(ent) {
			outcomes[i] = Outcome{
				EntityID: ent.ID,
				Type:     ent.Type,
				Status:   StatusSkippedPersistent,
			}
			e.log.Debug("skipping persistent entity",
				zap.String("id", ent.ID),
				zap.String("type", ent.Type),
			)
			continue
		}

		wg.Add(1)
		go func(i int, ent Entity) {
			defer wg.Done()
			outcomes[i] = e.deleteOne(ctx, ent, del)
		}(i, ent)
	}
	wg.Wait()

	sort.Slice(outcomes, func(i, j int) bool {
		return outcomes[i].EntityID < outcomes[j].EntityID
	})

	return outcomes
}

// deleteOne runs the full attempt chain for a single entity: limiter
// admission, delete request, and linear-backoff retries on 429.
func (e *Engine) deleteOne(ctx context.Context, ent Entity, del DeleteFunc) Outcome {
	out := Outcome{EntityID: ent.ID, Type: ent.Type}

	if err := e.limiter.Acquire(ctx); err != nil {
		// Run was cancelled before this task was admitted.
		out.Status = StatusFailed
		out.Detail = err.Error()
		return out
	}

	out.AttemptedAt = time.Now()

	delay := e.cfg.RetryDelay()
	for attempt := 0; attempt < e.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			e.sleep(delay)
			delay += e.cfg.BackoffIncrement()
			out.Retries++
		}

		err := del(ctx, ent)
		if err == nil {
			out.Status = StatusDeleted
			e.log.Debug("deleted entity",
				zap.String("id", ent.ID),
				zap.String("type", ent.Type),
				zap.Int("retries", out.Retries),
			)
			return out
		}

		code, ok := httpStatus(err)
		switch {
		case ok && code == http.StatusTooManyRequests:
			e.log.Debug("delete throttled, backing off",
				zap.String("id", ent.ID),
				zap.Duration("delay", delay),
			)
			continue
		case ok && code == http.StatusNotFound:
			out.Status = StatusNotFound
			return out
		default:
			out.Status = StatusFailed
			out.Detail = err.Error()
			e.log.Warn("delete failed",
				zap.String("id", ent.ID),
				zap.String("type", ent.Type),
				zap.Int("status", code),
				zap.Error(err),
			)
			return out
		}
	}

	out.Status = StatusThrottledExhausted
	e.log.Warn("delete retries exhausted",
		zap.String("id", ent.ID),
		zap.String("type", ent.Type),
		zap.Int("retries", out.Retries),
	)
	return out
}
