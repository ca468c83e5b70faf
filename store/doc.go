// Package store provides the TTL-capable key/value backing store shared
// by the rate limiter and the response cache.
//
// It defines the Store interface with a mutex-guarded in-memory
// implementation for single-process deployments and a Redis-backed
// implementation for anything running as more than one process.
package store
