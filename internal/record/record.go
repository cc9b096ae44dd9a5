// Package record implements the fixed-layout ZIP container records: the
// local file header, the central directory header, and the end of central
// directory record.
//
// Every multi-byte field is little-endian. Each record type decodes with
// signature verification and encodes symmetrically. Decoded name, extra,
// and comment fields are views into the buffer passed to the parser, never
// independently owned copies.
package record

import (
	"errors"
	"fmt"
)

// Record signatures, in the byte order they appear on the wire ("PK..").
const (
	SigLocalHeader     uint32 = 0x04034B50
	SigDirectoryHeader uint32 = 0x02014B50
	SigDirectoryEnd    uint32 = 0x06054B50
)

// Fixed record lengths, excluding trailing variable-length fields.
const (
	LocalHeaderLen     = 30
	DirectoryHeaderLen = 46
	DirectoryEndLen    = 22
)

// Version is the ZIP format version written into creator and reader
// version fields (2.0, the deflate baseline).
const Version uint16 = 0x0014

// FlagUTF8 marks the entry name as UTF-8 encoded (general purpose bit 11).
const FlagUTF8 uint16 = 0x0800

// ErrFormat is returned when a record signature does not match or a record
// overruns the buffer it was promised to live in.
var ErrFormat = errors.New("zipkit: not a valid zip archive")

// LocalHeader is the fixed 30-byte header preceding each member's name and
// data. The name and extra bytes follow the fixed header on the wire but
// are not part of this record; only their lengths are.
type LocalHeader struct {
	ReaderVersion    uint16
	Flags            uint16
	Method           uint16
	ModifiedTime     uint16
	ModifiedDate     uint16
	CRC32            uint32
	CompressedSize   uint32
	UncompressedSize uint32
	NameLen          uint16
	ExtraLen         uint16
}

// ParseLocalHeader decodes the fixed local header at the start of buf.
func ParseLocalHeader(buf []byte) (LocalHeader, error) {
	if len(buf) < LocalHeaderLen {
		return LocalHeader{}, fmt.Errorf("local header: %d bytes: %w", len(buf), ErrFormat)
	}
	b := readBuf(buf)
	if sig := b.uint32(); sig != SigLocalHeader {
		return LocalHeader{}, fmt.Errorf("local header signature %#08x: %w", sig, ErrFormat)
	}
	return LocalHeader{
		ReaderVersion:    b.uint16(),
		Flags:            b.uint16(),
		Method:           b.uint16(),
		ModifiedTime:     b.uint16(),
		ModifiedDate:     b.uint16(),
		CRC32:            b.uint32(),
		CompressedSize:   b.uint32(),
		UncompressedSize: b.uint32(),
		NameLen:          b.uint16(),
		ExtraLen:         b.uint16(),
	}, nil
}

// Encode returns the fixed 30-byte wire form. Name and extra bytes are
// appended by the caller.
func (h LocalHeader) Encode() []byte {
	buf := make([]byte, LocalHeaderLen)
	b := writeBuf(buf)
	b.uint32(SigLocalHeader)
	b.uint16(h.ReaderVersion)
	b.uint16(h.Flags)
	b.uint16(h.Method)
	b.uint16(h.ModifiedTime)
	b.uint16(h.ModifiedDate)
	b.uint32(h.CRC32)
	b.uint32(h.CompressedSize)
	b.uint32(h.UncompressedSize)
	b.uint16(h.NameLen)
	b.uint16(h.ExtraLen)
	return buf
}

// Size returns the total on-wire footprint: the fixed header plus the name
// and extra bytes it describes.
func (h LocalHeader) Size() int {
	return LocalHeaderLen + int(h.NameLen) + int(h.ExtraLen)
}

// DirectoryHeader is one central directory entry: a 46-byte fixed header
// followed by the name, extra, and comment bytes in that order.
type DirectoryHeader struct {
	CreatorVersion   uint16
	ReaderVersion    uint16
	Flags            uint16
	Method           uint16
	ModifiedTime     uint16
	ModifiedDate     uint16
	CRC32            uint32
	CompressedSize   uint32
	UncompressedSize uint32
	DiskStart        uint16
	InternalAttrs    uint16
	ExternalAttrs    uint32
	Offset           uint32

	// Name, Extra, and Comment alias the directory buffer handed to
	// ParseDirectoryHeader and must be treated as immutable.
	Name    []byte
	Extra   []byte
	Comment []byte
}

// ParseDirectoryHeader decodes the directory entry at off within buf.
//
// The three trailing fields are sliced from buf immediately after the
// fixed header using the lengths the fixed header declares, so buf must
// span the full central directory.
func ParseDirectoryHeader(buf []byte, off int) (DirectoryHeader, error) {
	if off < 0 || len(buf)-off < DirectoryHeaderLen {
		return DirectoryHeader{}, fmt.Errorf("directory header at %d: truncated: %w", off, ErrFormat)
	}
	b := readBuf(buf[off:])
	if sig := b.uint32(); sig != SigDirectoryHeader {
		return DirectoryHeader{}, fmt.Errorf("directory header at %d: signature %#08x: %w", off, sig, ErrFormat)
	}
	h := DirectoryHeader{
		CreatorVersion:   b.uint16(),
		ReaderVersion:    b.uint16(),
		Flags:            b.uint16(),
		Method:           b.uint16(),
		ModifiedTime:     b.uint16(),
		ModifiedDate:     b.uint16(),
		CRC32:            b.uint32(),
		CompressedSize:   b.uint32(),
		UncompressedSize: b.uint32(),
	}
	nameLen := int(b.uint16())
	extraLen := int(b.uint16())
	commentLen := int(b.uint16())
	h.DiskStart = b.uint16()
	h.InternalAttrs = b.uint16()
	h.ExternalAttrs = b.uint32()
	h.Offset = b.uint32()

	rest := buf[off+DirectoryHeaderLen:]
	if len(rest) < nameLen+extraLen+commentLen {
		return DirectoryHeader{}, fmt.Errorf("directory header at %d: trailing fields truncated: %w", off, ErrFormat)
	}
	h.Name = rest[:nameLen:nameLen]
	h.Extra = rest[nameLen : nameLen+extraLen : nameLen+extraLen]
	h.Comment = rest[nameLen+extraLen : nameLen+extraLen+commentLen : nameLen+extraLen+commentLen]
	return h, nil
}

// Encode returns the full wire form including name, extra, and comment.
func (h *DirectoryHeader) Encode() []byte {
	buf := make([]byte, h.Size())
	b := writeBuf(buf)
	b.uint32(SigDirectoryHeader)
	b.uint16(h.CreatorVersion)
	b.uint16(h.ReaderVersion)
	b.uint16(h.Flags)
	b.uint16(h.Method)
	b.uint16(h.ModifiedTime)
	b.uint16(h.ModifiedDate)
	b.uint32(h.CRC32)
	b.uint32(h.CompressedSize)
	b.uint32(h.UncompressedSize)
	b.uint16(uint16(len(h.Name)))    //nolint:gosec // lengths validated by the writer
	b.uint16(uint16(len(h.Extra)))   //nolint:gosec // lengths validated by the writer
	b.uint16(uint16(len(h.Comment))) //nolint:gosec // lengths validated by the writer
	b.uint16(h.DiskStart)
	b.uint16(h.InternalAttrs)
	b.uint32(h.ExternalAttrs)
	b.uint32(h.Offset)
	n := copy(buf[DirectoryHeaderLen:], h.Name)
	n += copy(buf[DirectoryHeaderLen+n:], h.Extra)
	copy(buf[DirectoryHeaderLen+n:], h.Comment)
	return buf
}

// Size returns the total on-wire footprint including trailing fields.
// Directory iteration advances the cursor by exactly this amount.
func (h *DirectoryHeader) Size() int {
	return DirectoryHeaderLen + len(h.Name) + len(h.Extra) + len(h.Comment)
}

// LocalHeader derives the local header this directory entry describes,
// without re-reading it from the source bytes.
func (h *DirectoryHeader) LocalHeader() LocalHeader {
	return LocalHeader{
		ReaderVersion:    h.ReaderVersion,
		Flags:            h.Flags,
		Method:           h.Method,
		ModifiedTime:     h.ModifiedTime,
		ModifiedDate:     h.ModifiedDate,
		CRC32:            h.CRC32,
		CompressedSize:   h.CompressedSize,
		UncompressedSize: h.UncompressedSize,
		NameLen:          uint16(len(h.Name)),  //nolint:gosec // parsed from a uint16 field
		ExtraLen:         uint16(len(h.Extra)), //nolint:gosec // parsed from a uint16 field
	}
}

// DirectoryEnd is the fixed 22-byte record trailing the archive. It
// locates and sizes the central directory.
type DirectoryEnd struct {
	DiskNumber      uint16
	DirectoryDisk   uint16
	DiskEntries     uint16
	TotalEntries    uint16
	DirectorySize   uint32
	DirectoryOffset uint32
	CommentLen      uint16
}

// ParseDirectoryEnd decodes the record at the start of buf.
func ParseDirectoryEnd(buf []byte) (DirectoryEnd, error) {
	if len(buf) < DirectoryEndLen {
		return DirectoryEnd{}, fmt.Errorf("directory end: %d bytes: %w", len(buf), ErrFormat)
	}
	b := readBuf(buf)
	if sig := b.uint32(); sig != SigDirectoryEnd {
		return DirectoryEnd{}, fmt.Errorf("directory end signature %#08x: %w", sig, ErrFormat)
	}
	return DirectoryEnd{
		DiskNumber:      b.uint16(),
		DirectoryDisk:   b.uint16(),
		DiskEntries:     b.uint16(),
		TotalEntries:    b.uint16(),
		DirectorySize:   b.uint32(),
		DirectoryOffset: b.uint32(),
		CommentLen:      b.uint16(),
	}, nil
}

// Encode returns the 22-byte wire form.
func (e DirectoryEnd) Encode() []byte {
	buf := make([]byte, DirectoryEndLen)
	b := writeBuf(buf)
	b.uint32(SigDirectoryEnd)
	b.uint16(e.DiskNumber)
	b.uint16(e.DirectoryDisk)
	b.uint16(e.DiskEntries)
	b.uint16(e.TotalEntries)
	b.uint32(e.DirectorySize)
	b.uint32(e.DirectoryOffset)
	b.uint16(e.CommentLen)
	return buf
}

// Size returns the total on-wire footprint including the trailing comment.
func (e DirectoryEnd) Size() int {
	return DirectoryEndLen + int(e.CommentLen)
}
