// Package store persists question/answer records. It provides a
// MongoDB-backed implementation and an in-memory implementation with
// the same ordering and not-found semantics for development and tests.
package store
