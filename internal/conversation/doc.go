// Package conversation defines the domain types shared across the
// service: the persisted question/answer record, its lifecycle state,
// and the coded error taxonomy used at the transport edge.
package conversation
