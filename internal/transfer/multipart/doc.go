// Package multipart plans multipart downloads and merges their responses.
// This includes choosing the first sub-request, deriving the remaining
// sub-requests from the first response, and folding every sub-response's
// metadata into one output.
//
// The package does no I/O; the manager issues the requests it plans.
package multipart
