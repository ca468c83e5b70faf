// Package auth validates bearer tokens and attaches the authenticated
// identity to the request context.
//
// Only the JWT leg of authentication lives here; token issuance,
// password flows and role management belong to the upstream identity
// service and are out of scope.
package auth
