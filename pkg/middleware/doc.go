// Package middleware provides the HTTP middleware chain: bearer-token
// authentication and the admin gate, request IDs, request logging, metrics
// instrumentation, CORS, and rate limiting (in-memory or Redis-backed).
package middleware
