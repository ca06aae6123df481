// Package cache provides the volatile pending-question cache. Entries
// live between "question extracted" and "answer persisted" and are
// evicted by a background janitor once they outlive the TTL.
package cache
