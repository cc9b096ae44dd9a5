package zipkit

import (
	"fmt"
	"io"
	"iter"
	"log/slog"
	"sync"

	"github.com/meigma/zipkit/internal/record"
	"github.com/meigma/zipkit/internal/sizing"
)

// Archive provides read access to the members of a ZIP container.
//
// The footer and central directory are read once at open time; member data
// stays in the source and is fetched on demand. Archive also implements
// fs.FS, fs.StatFS, fs.ReadFileFS, and fs.ReadDirFS over the member paths.
type Archive struct {
	source    ByteSource
	end       record.DirectoryEnd
	directory []byte
	logger    *slog.Logger

	idx     *archiveIndex
	idxOnce sync.Once
	idxErr  error
}

// log returns the logger, falling back to a discard logger if nil.
func (a *Archive) log() *slog.Logger {
	if a.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return a.logger
}

// OpenArchive reads the footer and central directory from src.
//
// The footer must occupy the source's final 22 bytes; archives carrying a
// trailing comment are not supported. A failing footer or directory bound
// rejects the archive with ErrFormat and no partial state.
func OpenArchive(src ByteSource, opts ...Option) (*Archive, error) {
	a := &Archive{source: src}
	for _, opt := range opts {
		opt(a)
	}

	size := src.Size()
	if size < record.DirectoryEndLen {
		return nil, fmt.Errorf("open archive: %d bytes: %w", size, ErrFormat)
	}

	footer := make([]byte, record.DirectoryEndLen)
	if err := readSourceAt(src, footer, size-record.DirectoryEndLen); err != nil {
		return nil, fmt.Errorf("open archive: read footer: %w", err)
	}
	end, err := record.ParseDirectoryEnd(footer)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	dirLen, err := sizing.ToInt(uint64(end.DirectorySize), ErrSizeOverflow)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	dirOff := int64(end.DirectoryOffset)
	if dirOff+int64(dirLen) > size-record.DirectoryEndLen {
		return nil, fmt.Errorf("open archive: directory out of range: %w", ErrFormat)
	}

	a.directory = make([]byte, dirLen)
	if err := readSourceAt(src, a.directory, dirOff); err != nil {
		return nil, fmt.Errorf("open archive: read directory: %w", err)
	}
	a.end = end

	a.log().Debug("opened archive",
		"size", size,
		"entries", end.TotalEntries,
		"directory_offset", dirOff,
		"directory_size", dirLen,
	)
	return a, nil
}

// Entries returns an iterator over the central directory in stored order.
//
// Parsing is lazy: each step decodes one directory entry at the cursor and
// advances by that entry's total record size. Iteration within a range
// loop is single-pass; ranging again rewinds to the first entry. A failing
// signature or truncated record yields ErrFormat and ends the iteration.
func (a *Archive) Entries() iter.Seq2[*Entry, error] {
	return func(yield func(*Entry, error) bool) {
		off := 0
		for off < len(a.directory) {
			h, err := record.ParseDirectoryHeader(a.directory, off)
			if err != nil {
				yield(nil, err)
				return
			}
			e, err := a.newEntry(h)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(e, nil) {
				return
			}
			off += h.Size()
		}
	}
}

// Len returns the entry count recorded in the footer.
func (a *Archive) Len() int {
	return int(a.end.TotalEntries)
}

// Size returns the total size of the underlying source in bytes.
func (a *Archive) Size() int64 {
	return a.source.Size()
}

// readSourceAt fills p from src at off, tolerating an io.EOF that arrives
// exactly at the end of a full read.
func readSourceAt(src ByteSource, p []byte, off int64) error {
	n, err := src.ReadAt(p, off)
	if n == len(p) {
		return nil
	}
	if err == nil || err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return err
}
