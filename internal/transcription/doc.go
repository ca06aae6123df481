// Package transcription implements the HTTP client for the transcription API.
// It uploads spooled recordings as multipart form data, implements retry
// logic with exponential backoff, and limits concurrent requests.
package transcription
