package validation

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/input-output-hk/catalyst-forge-libs/s3transfer/errors"
)

const (
	maxKeyBytes           = 1024
	maxMetadataKeyBytes   = 128
	maxMetadataValueBytes = 2048
)

var mimePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9\-+.]*/[a-zA-Z0-9][a-zA-Z0-9\-+.]*(\s*;.*)?$`)

// bucketRules are evaluated in order; the first failing rule is reported.
var bucketRules = []struct {
	fails func(string) bool
	msg   string
}{
	{func(b string) bool { return b == "" }, "bucket name cannot be empty"},
	{func(b string) bool { return len(b) < 3 || len(b) > 63 }, "bucket name must be between 3 and 63 characters long"},
	{func(b string) bool { return strings.IndexFunc(b, invalidBucketRune) >= 0 },
		"bucket name can only contain lowercase letters, numbers, dots, and hyphens"},
	{func(b string) bool { return strings.ContainsAny(b[:1], ".-") || strings.ContainsAny(b[len(b)-1:], ".-") },
		"bucket name cannot start or end with a hyphen or dot"},
	{looksLikeIPv4, "bucket name cannot be formatted as an IP address"},
	{func(b string) bool { return b[0] >= '0' && b[0] <= '9' }, "bucket name cannot start with a number"},
	{func(b string) bool { return strings.Contains(b, "..") || strings.Contains(b, "--") },
		"bucket name cannot contain two adjacent periods or hyphens"},
	{func(b string) bool { return b == "localhost" }, "bucket name cannot be a reserved word"},
}

// ValidateBucketName validates that a bucket name is DNS-compliant according to AWS S3 rules.
// Returns an error matching ErrInvalidBucketName if it is not.
func ValidateBucketName(bucket string) error {
	for _, rule := range bucketRules {
		if rule.fails(bucket) {
			return errors.NewError("validateBucketName", errors.ErrInvalidBucketName).
				WithBucket(bucket).
				WithMessage(rule.msg)
		}
	}
	return nil
}

// ValidateObjectKey rejects empty, oversized, traversing or control-character keys.
func ValidateObjectKey(key string) error {
	var msg string
	switch {
	case key == "":
		msg = "object key cannot be empty"
	case escapesRoot(key):
		msg = "object key cannot contain path traversal sequences"
	case len(key) > maxKeyBytes:
		msg = fmt.Sprintf("object key cannot exceed %d characters", maxKeyBytes)
	case strings.IndexFunc(key, unicode.IsControl) >= 0:
		msg = "object key cannot contain control characters"
	default:
		return nil
	}
	return errors.NewError("validateObjectKey", errors.ErrInvalidObjectKey).WithKey(key).WithMessage(msg)
}

// ValidateMetadata validates user metadata keys and values according to S3 rules.
func ValidateMetadata(metadata map[string]string) error {
	for key, value := range metadata {
		if msg := metadataKeyProblem(key); msg != "" {
			return errors.NewError("validateMetadata", errors.ErrInvalidInput).WithMessage(msg)
		}
		if len(value) > maxMetadataValueBytes {
			return errors.NewError("validateMetadata", errors.ErrInvalidInput).
				WithMessage(fmt.Sprintf("metadata value cannot exceed %d characters", maxMetadataValueBytes))
		}
		if strings.IndexFunc(value, func(r rune) bool { return !unicode.IsPrint(r) && r != '\n' && r != '\t' }) >= 0 {
			return errors.NewError("validateMetadata", errors.ErrInvalidInput).
				WithMessage("metadata value can only contain printable characters")
		}
	}
	return nil
}

// ValidateContentType checks that contentType looks like a MIME type. Empty is allowed.
func ValidateContentType(contentType string) error {
	if contentType == "" || mimePattern.MatchString(contentType) {
		return nil
	}
	return errors.NewError("validateContentType", errors.ErrInvalidInput).
		WithMessage("content type must be a valid MIME type")
}

func metadataKeyProblem(key string) string {
	switch {
	case key == "":
		return "metadata key cannot be empty"
	case len(key) > maxMetadataKeyBytes:
		return fmt.Sprintf("metadata key cannot exceed %d characters", maxMetadataKeyBytes)
	}
	lower := strings.ToLower(key)
	for _, prefix := range []string{"aws:", "x-amz-", "x-amz:"} {
		if strings.HasPrefix(lower, prefix) {
			return "metadata key cannot start with reserved prefix: " + prefix
		}
	}
	if strings.IndexFunc(key, func(r rune) bool { return r < 32 || r > 126 }) >= 0 {
		return "metadata key can only contain printable ASCII characters"
	}
	return ""
}

func invalidBucketRune(r rune) bool {
	return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '.' || r == '-')
}

// looksLikeIPv4 matches four dot-separated decimal groups, each at most 255.
// An empty group still counts as IP-like.
func looksLikeIPv4(s string) bool {
	groups := strings.Split(s, ".")
	if len(groups) != 4 {
		return false
	}
	for _, g := range groups {
		n := 0
		for _, c := range g {
			if c < '0' || c > '9' {
				return false
			}
			n = n*10 + int(c-'0')
		}
		if n > 255 {
			return false
		}
	}
	return true
}

func escapesRoot(key string) bool {
	if strings.Contains(key, "..") {
		return true
	}
	cleaned := filepath.Clean(key)
	if strings.HasPrefix(cleaned, "/") {
		return true
	}
	return len(cleaned) >= 3 && cleaned[1] == ':' && (cleaned[2] == '\\' || cleaned[2] == '/')
}
