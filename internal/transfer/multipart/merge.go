package multipart

import (
	"reflect"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/input-output-hk/catalyst-forge-libs/s3transfer/internal/validation"
)

// MergeOutput folds src into dst field by field.
//
// Precedence is last write wins: every exported field of src that is not its
// zero value overwrites the same field of dst, so merging sub-responses in plan
// order leaves the latest non-empty value of each field. Body is never copied.
// dst must not be nil.
func MergeOutput(dst, src *s3.GetObjectOutput) {
	if src == nil {
		return
	}
	dv := reflect.ValueOf(dst).Elem()
	sv := reflect.ValueOf(src).Elem()
	t := dv.Type()

	for i := range t.NumField() {
		field := t.Field(i)
		if !field.IsExported() || field.Name == "Body" {
			continue
		}
		if v := sv.Field(i); !v.IsZero() {
			dv.Field(i).Set(v)
		}
	}
}

// Describe rewrites the size fields of a merged output so they describe the
// joined body of transferred bytes rather than the last sub-response.
//
// span is the byte range actually delivered; when reportRange is false (the
// caller asked for the whole object) ContentRange is cleared, matching a plain
// GetObject response.
func Describe(out *s3.GetObjectOutput, span validation.ContentRange, reportRange bool) {
	out.Body = nil
	out.ContentLength = aws.Int64(span.Length())
	if reportRange {
		out.ContentRange = aws.String(span.String())
	} else {
		out.ContentRange = nil
	}
}
