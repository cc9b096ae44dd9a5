package zipkit

import (
	"io"
	"io/fs"
	"sync"

	"github.com/klauspost/compress/flate"
)

// Deflate codecs are pooled and reused across entries to avoid rebuilding
// their window state for every member.
var (
	flateWriters sync.Pool
	flateReaders sync.Pool
)

// acquireFlateWriter returns a deflate encoder writing to w.
func acquireFlateWriter(w io.Writer) *flate.Writer {
	if fw, ok := flateWriters.Get().(*flate.Writer); ok {
		fw.Reset(w)
		return fw
	}
	fw, _ := flate.NewWriter(w, flate.DefaultCompression) //nolint:errcheck // the default level is always valid
	return fw
}

// releaseFlateWriter returns a closed encoder to the pool.
func releaseFlateWriter(fw *flate.Writer) {
	flateWriters.Put(fw)
}

// acquireFlateReader returns a deflate decoder reading from r.
func acquireFlateReader(r io.Reader) io.ReadCloser {
	fr, ok := flateReaders.Get().(io.ReadCloser)
	if !ok {
		return flate.NewReader(r)
	}
	if err := fr.(flate.Resetter).Reset(r, nil); err != nil {
		// Reset failed, fall back to a fresh decoder
		return flate.NewReader(r)
	}
	return fr
}

// releaseFlateReader returns a decoder to the pool.
func releaseFlateReader(fr io.ReadCloser) {
	flateReaders.Put(fr)
}

// decompressReader inflates an entry's raw stream and releases the pooled
// decoder on Close. Close is idempotent.
type decompressReader struct {
	fr  io.ReadCloser
	raw io.ReadCloser
}

func (r *decompressReader) Read(p []byte) (int, error) {
	if r.fr == nil {
		return 0, fs.ErrClosed
	}
	return r.fr.Read(p)
}

func (r *decompressReader) Close() error {
	if r.fr == nil {
		return nil
	}
	err := r.fr.Close()
	releaseFlateReader(r.fr)
	r.fr = nil
	if cerr := r.raw.Close(); err == nil {
		err = cerr
	}
	return err
}
