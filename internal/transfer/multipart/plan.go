package multipart

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/input-output-hk/catalyst-forge-libs/s3transfer/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/s3transfer/transfertypes"
)

// Mode is the way a download is split into sub-requests.
type Mode int

const (
	// ModeSingle issues exactly one request.
	ModeSingle Mode = iota
	// ModePart requests the object's stored parts 1..PartsCount.
	ModePart
	// ModeRange requests fixed-width byte windows.
	ModeRange
)

func (m Mode) String() string {
	switch m {
	case ModePart:
		return "part"
	case ModeRange:
		return "range"
	}
	return "single"
}

// Window is an inclusive byte span.
type Window struct {
	Start int64
	End   int64
}

// Windows splits [start, end] into contiguous windows of width size.
// The last window is clamped to end.
func Windows(start, end, size int64) []Window {
	if size <= 0 || end < start {
		return nil
	}
	windows := make([]Window, 0, CountParts(end-start+1, size))
	for lo := start; lo <= end; lo += size {
		windows = append(windows, Window{Start: lo, End: min(lo+size-1, end)})
	}
	return windows
}

// CountParts returns how many parts of partSize cover size bytes.
func CountParts(size, partSize int64) int {
	if size <= 0 {
		return 0
	}
	return int((size + partSize - 1) / partSize)
}

// Plan describes how one download request is split.
type Plan struct {
	Mode Mode

	// First is the sub-request issued before anything else is known about the object.
	First *s3.GetObjectInput

	partSize int64
	start    int64
	// bound is the last byte the caller asked for, or -1 for "to the end".
	bound int64
	// explicitRange is set when the caller supplied a Range.
	explicitRange bool
}

// Tail is the remainder of a plan, derived from the first response.
type Tail struct {
	Requests []*s3.GetObjectInput

	// Total is the object size declared by the first response, or -1.
	Total int64

	// LastByte is the offset the final sub-response must end at, or -1 when
	// the server response does not allow checking it.
	LastByte int64
}

// NewPlan chooses the first sub-request for req.
//
// An explicit PartNumber always yields a single request. An explicit Range
// yields a single request under the PART strategy and bounds the windows under
// the RANGE strategy. Suffix ranges ("bytes=-N") are always single requests.
func NewPlan(req *transfertypes.DownloadRequest, cfg transfertypes.Config) (*Plan, error) {
	first := &s3.GetObjectInput{
		Bucket: aws.String(req.Bucket),
		Key:    aws.String(req.Key),
	}
	if req.VersionID != "" {
		first.VersionId = aws.String(req.VersionID)
	}
	if cfg.ChecksumValidation {
		first.ChecksumMode = awstypes.ChecksumModeEnabled
	}

	p := &Plan{First: first, partSize: cfg.PartSize, bound: -1}

	if req.PartNumber > 0 {
		first.PartNumber = aws.Int32(req.PartNumber)
		return p, nil
	}

	if req.Range != "" {
		byteRange, err := validation.ParseByteRange(req.Range)
		if err != nil {
			return nil, err
		}
		if cfg.DownloadStrategy != transfertypes.StrategyRange || byteRange.Suffix > 0 {
			first.Range = aws.String(req.Range)
			return p, nil
		}
		p.Mode = ModeRange
		p.explicitRange = true
		p.start = byteRange.Start
		p.bound = byteRange.End
		first.Range = aws.String(validation.FormatRange(p.firstWindow()))
		return p, nil
	}

	if cfg.DownloadStrategy == transfertypes.StrategyRange {
		p.Mode = ModeRange
		first.Range = aws.String(validation.FormatRange(p.firstWindow()))
		return p, nil
	}

	p.Mode = ModePart
	first.PartNumber = aws.Int32(1)
	return p, nil
}

func (p *Plan) firstWindow() (int64, int64) {
	end := p.start + p.partSize - 1
	if p.bound >= 0 {
		end = min(end, p.bound)
	}
	return p.start, end
}

// Whole turns p into a single request for the entire object. It is used when
// the object turns out to be empty and the planned first window cannot be served.
func (p *Plan) Whole() {
	p.Mode = ModeSingle
	p.First.Range = nil
	p.First.PartNumber = nil
	p.explicitRange = false
	p.bound = -1
}

// ExplicitRange reports whether the caller supplied the byte range being windowed.
func (p *Plan) ExplicitRange() bool { return p.explicitRange }

// Rest derives the remaining sub-requests from the first response.
// Every derived request carries the first response's ETag as an If-Match
// precondition unless the request pins a version.
func (p *Plan) Rest(first *s3.GetObjectOutput) (Tail, error) {
	tail := Tail{Total: -1, LastByte: -1}

	var firstRange validation.ContentRange
	hasRange := first.ContentRange != nil
	if hasRange {
		cr, err := validation.ParseContentRange(aws.ToString(first.ContentRange))
		if err != nil {
			return tail, err
		}
		firstRange = cr
		tail.Total = cr.Total
	}

	switch p.Mode {
	case ModePart:
		count := aws.ToInt32(first.PartsCount)
		for n := int32(2); n <= count; n++ {
			in := p.derive(first)
			in.PartNumber = aws.Int32(n)
			tail.Requests = append(tail.Requests, in)
		}
		if count > 1 && tail.Total >= 0 {
			tail.LastByte = tail.Total - 1
		}

	case ModeRange:
		if !hasRange {
			// the server ignored the Range header and sent the whole object
			return tail, nil
		}
		last := firstRange.End
		if tail.Total >= 0 {
			last = tail.Total - 1
		}
		if p.bound >= 0 {
			last = min(last, p.bound)
		}
		for _, w := range Windows(firstRange.End+1, last, p.partSize) {
			in := p.derive(first)
			in.Range = aws.String(validation.FormatRange(w.Start, w.End))
			tail.Requests = append(tail.Requests, in)
		}
		tail.LastByte = last
	}
	return tail, nil
}

func (p *Plan) derive(first *s3.GetObjectOutput) *s3.GetObjectInput {
	in := *p.First
	in.PartNumber = nil
	in.Range = nil
	if in.VersionId == nil && first.ETag != nil {
		in.IfMatch = first.ETag
	}
	return &in
}

// CloneInput returns a shallow copy of in, safe to hand to event listeners.
func CloneInput(in *s3.GetObjectInput) *s3.GetObjectInput {
	if in == nil {
		return nil
	}
	c := *in
	return &c
}
