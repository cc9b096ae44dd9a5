package zipkit

import "io"

// ByteSource provides random access to archive bytes.
//
// A source is an addressable sequence of bytes with a known total length.
// It is owned by the caller; an Archive holds only the reference and never
// mutates it, so a source may serve concurrent reads without coordination.
//
// *bytes.Reader and *io.SectionReader satisfy the interface directly.
// Implementations exist for local files (OpenFile), HTTP range requests
// (the http subpackage), and S3 objects (the s3 subpackage).
type ByteSource interface {
	io.ReaderAt
	Size() int64
}

// RangeReader is an optional ByteSource extension for sources that can
// stream a byte range through one request instead of answering ReadAt
// calls piecemeal. Entry readers prefer it when present.
type RangeReader interface {
	ReadRange(off, length int64) (io.ReadCloser, error)
}
