// Package pool reuses copy buffers so streaming a download into a writer does
// not allocate per call.
package pool
