// Package books implements the book-library CRUD service the traffic
// middleware fronts: books and categories stored in SQLite, exposed as
// JSON handlers.
//
// From the middleware's point of view these handlers are opaque
// wrapped operations; nothing here knows about caching or rate limits.
package books
