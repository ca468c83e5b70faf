// Package health probes the service's dependencies (backing store,
// database) and aggregates the results for a readiness endpoint.
package health
