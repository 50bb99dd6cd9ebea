// Package reconcile computes the set of discovered entities that are not on
// the persistent allow-list and deletes them under a client-side rate limit.
//
// The engine is deliberately generic: it knows nothing about device types,
// archives, or the vendor API. Callers hand it an inventory, a safelist, a
// rate limiter, and a delete function; it hands back one Outcome per entity.
//
// # Flow
//
//  1. Diff: discovered − persistent. Pure and deterministic; re-running
//     with unchanged inputs always yields the same delete set.
//  2. Dispatch: one goroutine per to-delete entity. Every task passes
//     through the shared Limiter before issuing its request, so admission
//     is throttled while execution stays concurrent.
//  3. Retry: HTTP 429 is retried with linear backoff (a per-task delay,
//     never shared) up to MaxRetries attempts. Exhaustion is an outcome,
//     not an error.
//  4. Join-all: the engine returns only after every task has finished;
//     no outcome is ever dropped.
//
// Errors from one task never propagate to siblings. The only fatal errors
// are configuration errors, raised at construction time.
package reconcile
