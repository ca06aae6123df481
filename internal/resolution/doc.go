// Package resolution implements the HTTP client for the answer resolution
// API, which produces an answer for an extracted question.
package resolution
