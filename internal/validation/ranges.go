package validation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/input-output-hk/catalyst-forge-libs/s3transfer/errors"
)

// ContentRange is a parsed "bytes start-end/total" descriptor.
type ContentRange struct {
	Start int64
	End   int64
	// Total is -1 when the server reported "*".
	Total int64
}

// Length returns the number of bytes the range covers.
func (r ContentRange) Length() int64 { return r.End - r.Start + 1 }

func (r ContentRange) String() string {
	total := "*"
	if r.Total >= 0 {
		total = strconv.FormatInt(r.Total, 10)
	}
	return fmt.Sprintf("bytes %d-%d/%s", r.Start, r.End, total)
}

// ParseContentRange parses a Content-Range response header value.
func ParseContentRange(s string) (ContentRange, error) {
	malformed := func(err error) (ContentRange, error) {
		return ContentRange{}, &errors.MalformedRangeError{Value: s, Err: err}
	}

	value, ok := strings.CutPrefix(strings.TrimSpace(s), "bytes ")
	if !ok {
		return malformed(nil)
	}
	span, total, ok := strings.Cut(value, "/")
	if !ok {
		return malformed(nil)
	}
	first, last, ok := strings.Cut(span, "-")
	if !ok {
		return malformed(nil)
	}

	var r ContentRange
	var err error
	if r.Start, err = strconv.ParseInt(first, 10, 64); err != nil {
		return malformed(err)
	}
	if r.End, err = strconv.ParseInt(last, 10, 64); err != nil {
		return malformed(err)
	}
	if total == "*" {
		r.Total = -1
	} else if r.Total, err = strconv.ParseInt(total, 10, 64); err != nil {
		return malformed(err)
	}

	if r.Start < 0 || r.End < r.Start || (r.Total >= 0 && r.End >= r.Total) {
		return malformed(fmt.Errorf("inconsistent bounds %d-%d/%d", r.Start, r.End, r.Total))
	}
	return r, nil
}

// ValidateContentRanges checks the descriptors of consecutive parts part-1 and part.
// Part must start right after the previous one ends, and a part shorter than
// its predecessor must be the last one, ending at total-1.
func ValidateContentRanges(prev, cur string, part int) error {
	p, err := ParseContentRange(prev)
	if err != nil {
		return err
	}
	c, err := ParseContentRange(cur)
	if err != nil {
		return err
	}
	if err := CheckSequence(p, c, part); err != nil {
		return err
	}
	if c.Total >= 0 && c.Length() < p.Length() && c.End != c.Total-1 {
		return &errors.IncompleteRangeError{Part: part, End: c.End, Total: c.Total}
	}
	return nil
}

// CheckSequence verifies that cur starts right after prev ends.
func CheckSequence(prev, cur ContentRange, part int) error {
	if cur.Start != prev.End+1 {
		return &errors.RangeSequenceError{Part: part, Expected: prev.End + 1, Actual: cur.Start}
	}
	return nil
}

// CheckCoverage verifies that the final part of a download ends at wantEnd.
func CheckCoverage(last ContentRange, wantEnd int64, part int) error {
	if last.End != wantEnd {
		return &errors.IncompleteRangeError{Part: part, End: last.End, Total: last.Total}
	}
	return nil
}

// ByteRange is a parsed "bytes=" request directive.
type ByteRange struct {
	Start int64
	// End is -1 for open-ended ranges ("bytes=100-").
	End int64
	// Suffix is set for "bytes=-N" (last N bytes); Start and End are then unused.
	Suffix int64
}

// Bounded reports whether the range names an explicit last byte.
func (r ByteRange) Bounded() bool { return r.Suffix == 0 && r.End >= 0 }

// ParseByteRange parses a single-range "bytes=" directive.
func ParseByteRange(s string) (ByteRange, error) {
	invalid := func(msg string) (ByteRange, error) {
		return ByteRange{}, errors.NewError("parseRange", errors.ErrInvalidRange).WithMessage(msg + ": " + s)
	}

	directive, ok := strings.CutPrefix(strings.TrimSpace(s), "bytes=")
	if !ok {
		return invalid("range must start with bytes=")
	}
	if strings.Contains(directive, ",") {
		return invalid("multiple ranges are not supported")
	}
	first, last, ok := strings.Cut(directive, "-")
	if !ok {
		return invalid("range must contain '-'")
	}

	if first == "" {
		n, err := strconv.ParseInt(last, 10, 64)
		if err != nil || n <= 0 {
			return invalid("invalid suffix length")
		}
		return ByteRange{Suffix: n, End: -1}, nil
	}

	start, err := strconv.ParseInt(first, 10, 64)
	if err != nil || start < 0 {
		return invalid("invalid range start")
	}
	if last == "" {
		return ByteRange{Start: start, End: -1}, nil
	}
	end, err := strconv.ParseInt(last, 10, 64)
	if err != nil || end < start {
		return invalid("invalid range end")
	}
	return ByteRange{Start: start, End: end}, nil
}

// FormatRange renders an inclusive byte window as a request directive.
func FormatRange(start, end int64) string {
	return fmt.Sprintf("bytes=%d-%d", start, end)
}
