// Package internal contains private implementation details for s3transfer.
// These packages are not intended for external use and may change without notice.
//
// The internal packages are organized as follows:
//   - s3api: The object-store interface and the minio-go adapter
//   - operations: Single-request GetObject, HeadObject and PutObject calls
//   - transfer: Multipart download planning, stream joining and orchestration
//   - validation: Input, configuration and Content-Range validation
//   - pool: Copy buffer reuse
//   - testutil: Mocks, an in-memory object server and LocalStack helpers
package internal
