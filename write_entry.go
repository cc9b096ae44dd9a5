package zipkit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sync/atomic"

	"github.com/meigma/zipkit/internal/checksum"
	"github.com/meigma/zipkit/internal/record"
	"github.com/meigma/zipkit/internal/sizing"
)

// errNotDrained guards header encoding against use before the pipeline ran.
var errNotDrained = errors.New("zipkit: entry pipeline not drained")

// writeEntry carries one member's stream through the measuring and
// compression stages and holds the finished sizes once drained.
//
// The size counters are atomics because progress aggregation reads them
// from other entries' pipeline goroutines while this entry is still
// draining. The CRC accumulator is touched only by the entry's own
// pipeline.
type writeEntry struct {
	name   string
	method Method
	flags  uint16
	src    io.Reader
	hint   uint64

	crc          uint32
	uncompressed atomic.Uint64
	compressed   atomic.Uint64
	data         bytes.Buffer
	drained      bool

	onProgress func()
}

// drain pulls the source stream through the pipeline exactly once,
// finalizing the CRC and both size counters. The pipeline is not
// restartable; a second call fails.
func (e *writeEntry) drain(ctx context.Context) error {
	if e.drained {
		return fmt.Errorf("entry %q: pipeline already drained", e.name)
	}
	e.drained = true

	buf := make([]byte, 32*1024)
	mr := &measureReader{e: e, r: e.src}
	aw := &accountWriter{e: e, w: &e.data}

	if e.method == MethodDeflate {
		fw := acquireFlateWriter(aw)
		_, err := copyContext(ctx, fw, mr, buf)
		if err == nil {
			err = fw.Close()
		}
		releaseFlateWriter(fw)
		if err != nil {
			return fmt.Errorf("entry %q: %w", e.name, err)
		}
		return nil
	}

	if _, err := copyContext(ctx, aw, mr, buf); err != nil {
		return fmt.Errorf("entry %q: %w", e.name, err)
	}
	return nil
}

// parts returns the byte sections of the entry in written order: the fixed
// local header, the name, and the compressed data. Callable only after
// drain, since the header embeds the finished CRC and sizes.
func (e *writeEntry) parts() ([][]byte, error) {
	lh, err := e.localHeader()
	if err != nil {
		return nil, err
	}
	return [][]byte{lh.Encode(), []byte(e.name), e.data.Bytes()}, nil
}

// entrySize is the member's total local footprint: fixed header, name,
// and compressed data.
func (e *writeEntry) entrySize() uint64 {
	return record.LocalHeaderLen + uint64(len(e.name)) + e.compressed.Load()
}

// directorySize is the member's central directory footprint.
func (e *writeEntry) directorySize() uint64 {
	return record.DirectoryHeaderLen + uint64(len(e.name))
}

// progressCounts returns the measured byte count and the best known total
// for progress reporting. The size hint stands in as the total until the
// measured count overtakes it.
func (e *writeEntry) progressCounts() (done, total uint64) {
	done = e.uncompressed.Load()
	total = done
	if e.hint > total {
		total = e.hint
	}
	return done, total
}

func (e *writeEntry) localHeader() (record.LocalHeader, error) {
	if !e.drained {
		return record.LocalHeader{}, fmt.Errorf("entry %q: %w", e.name, errNotDrained)
	}
	csize, err := sizing.ToUint32(e.compressed.Load(), ErrSizeOverflow)
	if err != nil {
		return record.LocalHeader{}, fmt.Errorf("entry %q: compressed size: %w", e.name, err)
	}
	usize, err := sizing.ToUint32(e.uncompressed.Load(), ErrSizeOverflow)
	if err != nil {
		return record.LocalHeader{}, fmt.Errorf("entry %q: uncompressed size: %w", e.name, err)
	}
	return record.LocalHeader{
		ReaderVersion:    record.Version,
		Flags:            e.flags,
		Method:           uint16(e.method),
		CRC32:            e.crc,
		CompressedSize:   csize,
		UncompressedSize: usize,
		NameLen:          uint16(len(e.name)), //nolint:gosec // length validated at add time
	}, nil
}

// directoryHeader builds the central directory entry with offset as the
// local header back-reference.
func (e *writeEntry) directoryHeader(offset uint64) (record.DirectoryHeader, error) {
	lh, err := e.localHeader()
	if err != nil {
		return record.DirectoryHeader{}, err
	}
	off32, err := sizing.ToUint32(offset, ErrSizeOverflow)
	if err != nil {
		return record.DirectoryHeader{}, fmt.Errorf("entry %q: offset: %w", e.name, err)
	}
	return record.DirectoryHeader{
		CreatorVersion:   record.Version,
		ReaderVersion:    lh.ReaderVersion,
		Flags:            lh.Flags,
		Method:           lh.Method,
		CRC32:            lh.CRC32,
		CompressedSize:   lh.CompressedSize,
		UncompressedSize: lh.UncompressedSize,
		Offset:           off32,
		Name:             []byte(e.name),
	}, nil
}

// measureReader is the measurement stage: it tallies uncompressed bytes,
// folds each chunk into the CRC accumulator, and reports progress. Chunks
// pass through unmodified.
type measureReader struct {
	e *writeEntry
	r io.Reader
}

func (m *measureReader) Read(p []byte) (int, error) {
	n, err := m.r.Read(p)
	if n > 0 {
		m.e.crc = checksum.Update(m.e.crc, p[:n])
		//nolint:gosec // n is guaranteed non-negative by io.Reader contract
		if m.e.uncompressed.Add(uint64(n)) > math.MaxUint32 {
			return n, ErrSizeOverflow
		}
		if m.e.onProgress != nil {
			m.e.onProgress()
		}
	}
	return n, err
}

// accountWriter is the accounting stage: it tallies compressed bytes as
// they land in the entry's data buffer.
type accountWriter struct {
	e *writeEntry
	w io.Writer
}

func (a *accountWriter) Write(p []byte) (int, error) {
	n, err := a.w.Write(p)
	if n > 0 {
		//nolint:gosec // n is guaranteed non-negative by io.Writer contract
		if a.e.compressed.Add(uint64(n)) > math.MaxUint32 {
			return n, ErrSizeOverflow
		}
	}
	return n, err
}

// copyContext copies from src to dst until EOF or error, checking for
// context cancellation between chunks.
func copyContext(ctx context.Context, dst io.Writer, src io.Reader, buf []byte) (int64, error) {
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		nr, er := src.Read(buf)
		if nr > 0 {
			nw, ew := dst.Write(buf[:nr])
			written += int64(nw)
			if ew != nil {
				return written, ew
			}
			if nw != nr {
				return written, io.ErrShortWrite
			}
		}
		if er != nil {
			if er == io.EOF {
				return written, nil
			}
			return written, er
		}
	}
}
