// Package identity derives the caller-distinguishing token used to
// scope rate-limit counters and per-user cache entries.
//
// An authenticated principal always wins over a network address; the
// two are never combined in one key.
package identity
