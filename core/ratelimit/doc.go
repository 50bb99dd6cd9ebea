// Package ratelimit paces how many operations may start per admission wave
// across all concurrent workers.
//
// The limiter is windowed rather than a token bucket: a window of
// cfg.Window is divided into cfg.RateLimit waves, each wave admits at most
// cfg.MaxBurst callers, and a caller that finds the current wave exhausted
// sleeps out the remainder of the wave before being admitted into a fresh
// one. Acquire is the single intentional blocking point of a purge run; the
// limiter neither knows nor cares what the admitted work is.
//
// golang.org/x/time/rate was considered and rejected: the remote API
// tolerates short bursts per wave with a hard reset between waves, which a
// token bucket does not model.
package ratelimit
