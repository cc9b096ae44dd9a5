package zipkit

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/meigma/zipkit/internal/record"
)

// Entry describes one archive member read from the central directory.
//
// Entries are immutable views produced during iteration. All metadata
// comes from the directory record alone; the member's data range is
// derived from the directory's recorded lengths without re-reading the
// local header from the source.
type Entry struct {
	archive    *Archive
	header     record.DirectoryHeader
	name       string
	dataOffset int64
}

// newEntry resolves the member's data range from its directory record.
func (a *Archive) newEntry(h record.DirectoryHeader) (*Entry, error) {
	dataOffset := int64(h.Offset) + int64(h.LocalHeader().Size())
	if dataOffset+int64(h.CompressedSize) > a.source.Size() {
		return nil, fmt.Errorf("entry %q: data out of range: %w", h.Name, ErrFormat)
	}
	return &Entry{
		archive:    a,
		header:     h,
		name:       string(h.Name),
		dataOffset: dataOffset,
	}, nil
}

// Name returns the member name as stored in the directory.
func (e *Entry) Name() string {
	return e.name
}

// IsDir reports whether the entry is a directory marker: a name ending in
// a slash with no content.
func (e *Entry) IsDir() bool {
	return strings.HasSuffix(e.name, "/") && e.header.UncompressedSize == 0
}

// Method returns the member's compression method.
func (e *Entry) Method() Method {
	return Method(e.header.Method)
}

// CRC32 returns the checksum recorded for the uncompressed content.
//
// The checksum is not verified on read; callers that need integrity
// guarantees must check what they decode against this value.
func (e *Entry) CRC32() uint32 {
	return e.header.CRC32
}

// CompressedSize returns the stored size of the member's data in bytes.
func (e *Entry) CompressedSize() uint64 {
	return uint64(e.header.CompressedSize)
}

// UncompressedSize returns the declared size of the decoded content.
func (e *Entry) UncompressedSize() uint64 {
	return uint64(e.header.UncompressedSize)
}

// DataOffset returns the byte offset of the member's stored data within
// the source.
func (e *Entry) DataOffset() int64 {
	return e.dataOffset
}

// NameBytes returns the raw name bytes. The slice aliases the directory
// buffer and must be treated as immutable.
func (e *Entry) NameBytes() []byte {
	return e.header.Name
}

// Extra returns the raw extra-field bytes. The slice aliases the
// directory buffer and must be treated as immutable.
func (e *Entry) Extra() []byte {
	return e.header.Extra
}

// Comment returns the raw comment bytes. The slice aliases the directory
// buffer and must be treated as immutable.
func (e *Entry) Comment() []byte {
	return e.header.Comment
}

// OpenRaw returns a reader over the member's stored bytes without any
// decompression. Close releases the underlying range reader.
func (e *Entry) OpenRaw() (io.ReadCloser, error) {
	return e.rawReader()
}

// Open returns a reader over the member's decoded content: the stored
// bytes for MethodStore, an inflate stream for MethodDeflate. Any other
// method fails with ErrAlgorithm. Close releases the reader and, for
// deflate, returns the decoder to the pool.
func (e *Entry) Open() (io.ReadCloser, error) {
	switch Method(e.header.Method) {
	case MethodStore:
		return e.rawReader()
	case MethodDeflate:
		raw, err := e.rawReader()
		if err != nil {
			return nil, err
		}
		return &decompressReader{fr: acquireFlateReader(raw), raw: raw}, nil
	default:
		return nil, fmt.Errorf("entry %q: method %d: %w", e.name, e.header.Method, ErrAlgorithm)
	}
}

// rawReader prefers the source's own range reader when it has one and
// falls back to a section over ReadAt.
func (e *Entry) rawReader() (io.ReadCloser, error) {
	size := int64(e.header.CompressedSize)
	if size == 0 {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}
	if rr, ok := e.archive.source.(RangeReader); ok {
		rc, err := rr.ReadRange(e.dataOffset, size)
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w", e.name, err)
		}
		return rc, nil
	}
	return io.NopCloser(io.NewSectionReader(e.archive.source, e.dataOffset, size)), nil
}
