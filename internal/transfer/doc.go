// Package transfer splits large downloads into sub-requests and reassembles
// them.
//
// multipart plans the sub-requests and merges their response metadata,
// stream joins the part bodies into one ordered reader, and manager issues
// the sub-requests with bounded concurrency and dispatches progress events.
package transfer
