package zipkit

import (
	"errors"

	"github.com/meigma/zipkit/internal/record"
)

// ErrFormat is re-exported from the record codecs: a footer or directory
// signature did not match, or a record overran its buffer. Archives failing
// this way are rejected outright.
var ErrFormat = record.ErrFormat

// Sentinel errors for archive operations.
var (
	// ErrAlgorithm is returned when an entry uses a compression method
	// other than store or deflate.
	ErrAlgorithm = errors.New("zipkit: unsupported compression method")

	// ErrSizeOverflow is returned when byte counts exceed the format's
	// 32-bit fields.
	ErrSizeOverflow = errors.New("zipkit: size overflow")

	// ErrTooManyEntries is returned when the entry count exceeds the
	// format's 16-bit field.
	ErrTooManyEntries = errors.New("zipkit: too many entries")

	// ErrLongName is returned when an entry name exceeds the format's
	// 16-bit length field.
	ErrLongName = errors.New("zipkit: entry name too long")
)

// Sentinel errors for response-backed entries.
var (
	// ErrMissingBody is returned when a response carries no body.
	ErrMissingBody = errors.New("zipkit: response has no body")

	// ErrContentLength is returned when a declared content length is
	// unparsable or negative.
	ErrContentLength = errors.New("zipkit: invalid content length")

	// ErrResponseStatus is returned when a response status indicates failure.
	ErrResponseStatus = errors.New("zipkit: unsuccessful response")
)
