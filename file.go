package zipkit

import (
	"fmt"
	"os"
)

// fileSource wraps *os.File to implement ByteSource.
// os.File has ReadAt but not Size, so we cache the size at construction.
type fileSource struct {
	file *os.File
	size int64
}

// newFileSource creates a fileSource from an open file.
func newFileSource(f *os.File) (*fileSource, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat archive file: %w", err)
	}
	return &fileSource{file: f, size: info.Size()}, nil
}

// ReadAt implements io.ReaderAt.
func (s *fileSource) ReadAt(p []byte, off int64) (int, error) {
	return s.file.ReadAt(p, off)
}

// Size returns the total size of the file.
func (s *fileSource) Size() int64 {
	return s.size
}

// FileArchive wraps an Archive with its underlying file handle.
// Close must be called to release the file.
type FileArchive struct {
	*Archive
	file *os.File
}

// Close closes the underlying file. It is safe to call more than once.
func (fa *FileArchive) Close() error {
	if fa.file == nil {
		return nil
	}
	err := fa.file.Close()
	fa.file = nil
	return err
}

// OpenFile opens a ZIP archive from a file on disk.
//
// The file is kept open for random access; member data is read on demand.
// The returned FileArchive must be closed to release the handle.
func OpenFile(path string, opts ...Option) (*FileArchive, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided path is intentional
	if err != nil {
		return nil, fmt.Errorf("open archive file: %w", err)
	}

	source, err := newFileSource(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	a, err := OpenArchive(source, opts...)
	if err != nil {
		f.Close()
		return nil, err
	}

	return &FileArchive{
		Archive: a,
		file:    f,
	}, nil
}

// Interface compliance for fileSource.
var _ ByteSource = (*fileSource)(nil)
