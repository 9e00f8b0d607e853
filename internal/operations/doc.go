// Package operations contains the single-request S3 calls the transfer layer
// is built from. Each operation lives in its own subpackage.
package operations
