// Package ingest accepts recording submissions. It validates and decodes
// the audio payload, spools it to disk, and hands it to the dispatch queue
// without waiting on any external service.
package ingest
