// Package extraction implements the HTTP client for the query extraction
// API, which decides whether a transcript contains a question and isolates
// the question text.
package extraction
