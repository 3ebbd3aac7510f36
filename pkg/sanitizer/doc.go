// Package sanitizer normalizes free-form request parameters such as query
// string filters before they are parsed.
//
// All normalization functions are idempotent: applying them multiple times
// produces the same result. Invalid input is handled by returning empty
// values rather than errors, leaving rejection to the caller.
//
// Reservation metadata is opaque and is never passed through this package.
package sanitizer
