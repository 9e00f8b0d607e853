// Package validation checks caller input and server responses before they are trusted.
// This covers bucket names, object keys, upload metadata, client configuration,
// and the content-range descriptors used to reassemble multipart downloads.
package validation
