// Package s3transfer downloads large S3 objects as several concurrent
// sub-requests and hands the caller one ordered byte stream.
//
// Two strategies split a download. PART (the default) follows the layout the
// object was uploaded with, requesting parts 2..N once part 1 has reported
// the part count. RANGE requests fixed-width byte windows of the configured
// part size. Every sub-request after the first carries the first response's
// entity tag as an If-Match precondition, so an object replaced mid-download
// fails with errors.ErrObjectModified instead of yielding a mix of versions.
// The byte ranges of consecutive responses are checked for gaps, overlaps and
// truncation; violations surface as errors.ErrRangeIntegrity.
//
// Progress is reported through events. Listeners added with AddEventListener
// or Subscribe see every download of the client; WithDownloadListener scopes a
// listener to one call and removes it when that call ends.
//
// Example usage:
//
//	client, err := s3transfer.New(s3transfer.WithRegion("eu-central-1"))
//	if err != nil {
//	    return err
//	}
//
//	_, err = s3transfer.Subscribe(client, func(e events.BytesTransferredEvent) {
//	    log.Printf("%d/%d", e.Progress.TransferredBytes, e.Progress.TotalBytes)
//	})
//	if err != nil {
//	    return err
//	}
//
//	result, err := client.DownloadFile(ctx, &transfertypes.DownloadRequest{
//	    Bucket: "my-bucket",
//	    Key:    "images/disk.img",
//	}, "/tmp/disk.img")
package s3transfer
