// Package audio identifies the container format of submitted
// recordings so they can be spooled and uploaded with the right
// extension and MIME type.
package audio
