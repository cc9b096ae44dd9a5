package zipkit

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/meigma/zipkit/internal/record"
	"github.com/meigma/zipkit/internal/sizing"
)

// maxEntries is the largest entry count the footer's 16-bit fields can
// record.
const maxEntries = math.MaxUint16

// Writer accumulates entries and assembles them into one archive buffer.
//
// Entries keep their insertion order from Add to Build: the byte offset of
// an entry's local header in the output is the sum of the entry sizes
// added before it, regardless of how their pipelines interleave while
// draining.
//
// A Writer is not safe for concurrent use; add entries from one goroutine
// and call Build once.
type Writer struct {
	entries []*writeEntry
	logger  *slog.Logger
}

// NewWriter creates an empty archive writer.
func NewWriter(opts ...WriterOption) *Writer {
	w := &Writer{}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// log returns the logger, falling back to a discard logger if nil.
func (w *Writer) log() *slog.Logger {
	if w.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return w.logger
}

// Len returns the number of entries added so far.
func (w *Writer) Len() int {
	return len(w.entries)
}

// AddString adds an entry whose content is the UTF-8 bytes of content.
func (w *Writer) AddString(name, content string, opts ...EntryOption) error {
	return w.add(name, strings.NewReader(content), int64(len(content)), opts)
}

// AddBytes adds an entry whose content is the given bytes. The slice is
// read during Build and must not be mutated before then.
func (w *Writer) AddBytes(name string, content []byte, opts ...EntryOption) error {
	return w.add(name, bytes.NewReader(content), int64(len(content)), opts)
}

// AddReader adds an entry streamed from r during Build.
//
// sizeHint is used only for progress estimation, never for correctness;
// pass 0 when the total is unknown. The reader is drained exactly once and
// remains owned by the caller.
func (w *Writer) AddReader(name string, r io.Reader, sizeHint int64, opts ...EntryOption) error {
	return w.add(name, r, sizeHint, opts)
}

// AddResponse adds an entry streamed from an HTTP response body during
// Build.
//
// The declared Content-Length is propagated as the size hint when present
// and non-negative. The add fails with ErrResponseStatus when the response
// status is outside the 2xx range, ErrMissingBody when the body is absent,
// and ErrContentLength when a declared length is unparsable or negative.
// Closing the body remains the caller's responsibility.
func (w *Writer) AddResponse(name string, resp *http.Response, opts ...EntryOption) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("add %q: %s: %w", name, resp.Status, ErrResponseStatus)
	}
	if resp.Body == nil {
		return fmt.Errorf("add %q: %w", name, ErrMissingBody)
	}

	hint := int64(0)
	if v := resp.Header.Get("Content-Length"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("add %q: parse content length %q: %w", name, v, ErrContentLength)
		}
		if n < 0 {
			return fmt.Errorf("add %q: content length %d: %w", name, n, ErrContentLength)
		}
		hint = n
	} else if resp.ContentLength > 0 {
		// The transport may have consumed the header into the struct field.
		hint = resp.ContentLength
	}

	return w.add(name, resp.Body, hint, opts)
}

// add appends a pipeline entry in insertion order.
func (w *Writer) add(name string, src io.Reader, hint int64, opts []EntryOption) error {
	if len(w.entries) >= maxEntries {
		return fmt.Errorf("add %q: %w", name, ErrTooManyEntries)
	}
	if _, err := sizing.ToUint16(len(name), ErrLongName); err != nil {
		return fmt.Errorf("add %q: %w", name, err)
	}

	cfg := entryConfig{method: MethodDeflate}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.method != MethodStore && cfg.method != MethodDeflate {
		return fmt.Errorf("add %q: method %d: %w", name, uint16(cfg.method), ErrAlgorithm)
	}

	e := &writeEntry{
		name:   name,
		method: cfg.method,
		flags:  record.FlagUTF8,
		src:    src,
	}
	if hint > 0 {
		e.hint = uint64(hint)
	}
	w.entries = append(w.entries, e)
	return nil
}

// Build drains every entry pipeline and returns the finished archive.
//
// Pipelines are drained concurrently; the output layout is always
// insertion order. Any pipeline failure aborts the build and no partial
// archive is returned. The context cancels in-flight pipelines.
func (w *Writer) Build(ctx context.Context, opts ...BuildOption) ([]byte, error) {
	cfg := buildConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	w.wireProgress(&cfg)

	w.log().Debug("draining entry pipelines", "entries", len(w.entries))

	g, gctx := errgroup.WithContext(ctx)
	if cfg.concurrency > 0 {
		g.SetLimit(cfg.concurrency)
	}
	for _, e := range w.entries {
		g.Go(func() error {
			return e.drain(gctx)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := uint64(record.DirectoryEndLen)
	for _, e := range w.entries {
		var ok bool
		if total, ok = sizing.AddUint64(total, e.entrySize()); !ok {
			return nil, ErrSizeOverflow
		}
		if total, ok = sizing.AddUint64(total, e.directorySize()); !ok {
			return nil, ErrSizeOverflow
		}
	}
	grow, err := sizing.ToInt(total, ErrSizeOverflow)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	out.Grow(grow)

	// Local parts in insertion order fix each entry's header offset.
	for _, e := range w.entries {
		parts, err := e.parts()
		if err != nil {
			return nil, err
		}
		for _, p := range parts {
			out.Write(p)
		}
	}

	// Directory entries carry the offsets the local walk just produced.
	var offset, dirSize uint64
	for _, e := range w.entries {
		dh, err := e.directoryHeader(offset)
		if err != nil {
			return nil, err
		}
		b := dh.Encode()
		out.Write(b)
		dirSize += uint64(len(b))
		offset += e.entrySize()
	}

	end, err := w.directoryEnd(offset, dirSize)
	if err != nil {
		return nil, err
	}
	out.Write(end.Encode())

	w.log().Debug("archive built",
		"entries", len(w.entries),
		"size", out.Len(),
		"directory_offset", offset,
		"directory_size", dirSize,
	)
	return out.Bytes(), nil
}

// directoryEnd builds the footer with the directory placed at offset.
func (w *Writer) directoryEnd(offset, dirSize uint64) (record.DirectoryEnd, error) {
	count := uint16(len(w.entries)) //nolint:gosec // bounded by maxEntries at add time
	off32, err := sizing.ToUint32(offset, ErrSizeOverflow)
	if err != nil {
		return record.DirectoryEnd{}, fmt.Errorf("directory offset: %w", err)
	}
	size32, err := sizing.ToUint32(dirSize, ErrSizeOverflow)
	if err != nil {
		return record.DirectoryEnd{}, fmt.Errorf("directory size: %w", err)
	}
	return record.DirectoryEnd{
		DiskEntries:     count,
		TotalEntries:    count,
		DirectorySize:   size32,
		DirectoryOffset: off32,
	}, nil
}

// wireProgress attaches per-chunk progress reporting to every entry.
// The aggregate callback recomputes the sums over all entries' latest
// counters on each event rather than tracking deltas.
func (w *Writer) wireProgress(cfg *buildConfig) {
	if cfg.progress == nil && cfg.entryProgress == nil {
		return
	}
	for i, e := range w.entries {
		e.onProgress = func() {
			done, total := e.progressCounts()
			if cfg.entryProgress != nil {
				cfg.entryProgress(i, done, total)
			}
			if cfg.progress != nil {
				var sumDone, sumTotal uint64
				for _, o := range w.entries {
					d, t := o.progressCounts()
					sumDone += d
					sumTotal += t
				}
				cfg.progress(sumDone, sumTotal)
			}
		}
	}
}
