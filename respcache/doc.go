// Package respcache provides the per-route response cache and its
// invalidation trigger.
//
// Reads (GET/HEAD) on routes with a cache policy are served
// cache-aside from the backing store; mutating routes declare key
// prefixes to purge after a successful mutation. Store faults degrade
// to "always miss" and never abort a request.
package respcache
