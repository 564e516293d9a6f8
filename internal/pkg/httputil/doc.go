// Package httputil provides shared HTTP response/request utilities for the
// governance API handlers.
//
// Handler files use these helpers instead of writing raw http.ResponseWriter
// calls so the JSON envelope, error structure, and body-size limits stay
// consistent across the public and authenticated endpoints.
package httputil
