// Package server implements the HTTP API for submitting recordings and querying
// conversation state. It routes requests to the ingestion gateway and the
// exchange coordinator, and provides monitoring/management endpoints.
package server
