// Package middleware holds the gin middleware in front of the host API:
// request ids, request logging, CORS and per-client rate limiting.
package middleware
