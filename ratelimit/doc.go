// Package ratelimit implements per-route fixed window admission
// control on top of the shared backing store.
//
// Counters are scoped by caller identity and route. A backing store
// fault never blocks traffic: the limiter fails open and logs.
package ratelimit
