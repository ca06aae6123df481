// Package dispatch runs the background processing pipeline. A fixed pool of
// workers consumes a bounded job queue; each job is transcribed, checked for
// a question, resolved, and finalized into the store exactly once.
package dispatch
