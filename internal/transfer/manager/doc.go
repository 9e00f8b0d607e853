// Package manager coordinates multipart downloads.
//
// A Manager turns one download request into a plan of sub-requests, issues
// them with bounded concurrency, hands their bodies to the stream joiner in
// plan order and dispatches lifecycle events to the client registry and to
// the listeners scoped to the call.
//
// The first sub-request is issued synchronously because its response carries
// the entity tag and total size every later sub-request depends on. The rest
// are issued by a scheduler goroutine while the caller reads the body.
package manager
