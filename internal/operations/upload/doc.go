// Package upload handles single-request S3 object uploads.
package upload
