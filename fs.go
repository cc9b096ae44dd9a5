package zipkit

import (
	"bytes"
	"io"
	"io/fs"
	"slices"
	"strings"
	"time"

	"github.com/meigma/zipkit/internal/pathutil"
	"github.com/meigma/zipkit/internal/sizing"
)

// Interface compliance.
var (
	_ fs.FS         = (*Archive)(nil)
	_ fs.StatFS     = (*Archive)(nil)
	_ fs.ReadFileFS = (*Archive)(nil)
	_ fs.ReadDirFS  = (*Archive)(nil)
)

// archiveIndex is the name lookup built lazily on first fs.FS use.
// Iteration over Entries stays index-free; the index exists so Open and
// Stat resolve paths without rescanning the directory.
type archiveIndex struct {
	files map[string]*Entry // normalized path to file entry
	dirs  map[string]bool   // explicit directory markers, normalized
	names []string          // member names as stored, valid paths only
}

func (a *Archive) index() (*archiveIndex, error) {
	a.idxOnce.Do(func() {
		idx := &archiveIndex{
			files: make(map[string]*Entry),
			dirs:  make(map[string]bool),
		}
		for e, err := range a.Entries() {
			if err != nil {
				a.idxErr = err
				return
			}
			name := pathutil.Trim(e.Name())
			if name == "" || name == "." || !fs.ValidPath(name) {
				// Members with unrepresentable names stay reachable
				// through Entries but not through the fs.FS view.
				continue
			}
			if e.IsDir() {
				idx.dirs[name] = true
			} else {
				idx.files[name] = e
			}
			idx.names = append(idx.names, e.Name())
		}
		a.idx = idx
	})
	return a.idx, a.idxErr
}

// Entry returns the file member at the given fs-style path, if present.
// Directory markers are not files; list them through Entries.
func (a *Archive) Entry(name string) (*Entry, bool) {
	idx, err := a.index()
	if err != nil {
		return nil, false
	}
	e, ok := idx.files[name]
	return e, ok
}

// Open opens the named member for reading. Directories, including ones
// that exist only as prefixes of member paths, open as fs.ReadDirFile.
func (a *Archive) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	idx, err := a.index()
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	if e, ok := idx.files[name]; ok {
		rc, err := e.Open()
		if err != nil {
			return nil, &fs.PathError{Op: "open", Path: name, Err: err}
		}
		return &openFile{entry: e, rc: rc}, nil
	}
	if idx.isDir(name) {
		return &openDir{archive: a, name: name}, nil
	}
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}

// Stat returns file information for the named member.
func (a *Archive) Stat(name string) (fs.FileInfo, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrInvalid}
	}
	idx, err := a.index()
	if err != nil {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: err}
	}
	if e, ok := idx.files[name]; ok {
		return newFileInfo(e, pathutil.Base(name)), nil
	}
	if idx.isDir(name) {
		return newDirInfo(pathutil.Base(name)), nil
	}
	return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
}

// ReadFile returns the decoded content of the named member.
func (a *Archive) ReadFile(name string) ([]byte, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: fs.ErrInvalid}
	}
	idx, err := a.index()
	if err != nil {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: err}
	}
	e, ok := idx.files[name]
	if !ok {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: fs.ErrNotExist}
	}
	rc, err := e.Open()
	if err != nil {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: err}
	}
	defer rc.Close()

	// The declared size guides allocation only; the stream decides the
	// actual length.
	capacity, err := sizing.ToInt(e.UncompressedSize(), ErrSizeOverflow)
	if err != nil {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: err}
	}
	buf := bytes.NewBuffer(make([]byte, 0, capacity))
	if _, err := io.Copy(buf, rc); err != nil {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: err}
	}
	return buf.Bytes(), nil
}

// ReadDir returns the immediate children of the named directory, sorted
// by name.
func (a *Archive) ReadDir(name string) ([]fs.DirEntry, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrInvalid}
	}
	idx, err := a.index()
	if err != nil {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: err}
	}
	if !idx.isDir(name) {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrNotExist}
	}
	return idx.dirList(name), nil
}

// isDir reports whether name is a directory: the root, an explicit
// directory marker, or a prefix of other member paths.
func (x *archiveIndex) isDir(name string) bool {
	if name == "." {
		return true
	}
	if x.dirs[name] {
		return true
	}
	prefix := name + "/"
	for _, n := range x.names {
		if strings.HasPrefix(n, prefix) {
			return true
		}
	}
	return false
}

// dirList collects the immediate children of name, synthesizing entries
// for intermediate directories. Member order in the archive carries no
// path grouping, so children are deduplicated by name and sorted.
func (x *archiveIndex) dirList(name string) []fs.DirEntry {
	prefix := pathutil.DirPrefix(name)
	seen := make(map[string]bool)
	var entries []fs.DirEntry
	for _, full := range x.names {
		if !strings.HasPrefix(full, prefix) {
			continue
		}
		child, isDir, ok := pathutil.Child(full, prefix)
		if !ok || seen[child] {
			continue
		}
		seen[child] = true
		if isDir {
			entries = append(entries, newDirEntry(newDirInfo(child)))
		} else if e, ok := x.files[prefix+child]; ok {
			entries = append(entries, newDirEntry(newFileInfo(e, child)))
		}
	}
	slices.SortFunc(entries, func(a, b fs.DirEntry) int {
		return strings.Compare(a.Name(), b.Name())
	})
	return entries
}

// openFile implements fs.File over a member's decoded stream.
type openFile struct {
	entry *Entry
	rc    io.ReadCloser
}

func (f *openFile) Read(p []byte) (int, error) {
	return f.rc.Read(p)
}

func (f *openFile) Stat() (fs.FileInfo, error) {
	return newFileInfo(f.entry, pathutil.Base(f.entry.Name())), nil
}

func (f *openFile) Close() error {
	return f.rc.Close()
}

// openDir implements fs.ReadDirFile for directories.
type openDir struct {
	archive *Archive
	name    string
	entries []fs.DirEntry
	listed  bool
}

func (d *openDir) Read(_ []byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: d.name, Err: fs.ErrInvalid}
}

func (d *openDir) Stat() (fs.FileInfo, error) {
	return newDirInfo(pathutil.Base(d.name)), nil
}

func (d *openDir) Close() error {
	d.entries = nil
	return nil
}

func (d *openDir) ReadDir(n int) ([]fs.DirEntry, error) {
	if !d.listed {
		idx, err := d.archive.index()
		if err != nil {
			return nil, err
		}
		d.entries = idx.dirList(d.name)
		d.listed = true
	}
	if n <= 0 {
		out := d.entries
		d.entries = nil
		return out, nil
	}
	if len(d.entries) == 0 {
		return nil, io.EOF
	}
	if n > len(d.entries) {
		n = len(d.entries)
	}
	out := d.entries[:n]
	d.entries = d.entries[n:]
	return out, nil
}

// fileInfo implements fs.FileInfo for file members. Archives in this
// format carry no attributes or timestamps, so members stat as read-only
// regular files with a zero modification time.
type fileInfo struct {
	entry *Entry
	name  string
}

func newFileInfo(e *Entry, name string) *fileInfo {
	return &fileInfo{entry: e, name: name}
}

func (fi *fileInfo) Name() string       { return fi.name }
func (fi *fileInfo) Size() int64        { return int64(fi.entry.UncompressedSize()) }
func (fi *fileInfo) Mode() fs.FileMode  { return 0o444 }
func (fi *fileInfo) ModTime() time.Time { return time.Time{} }
func (fi *fileInfo) IsDir() bool        { return false }
func (fi *fileInfo) Sys() any           { return nil }

// dirInfo implements fs.FileInfo for directories.
type dirInfo struct {
	name string
}

func newDirInfo(name string) *dirInfo {
	return &dirInfo{name: name}
}

func (di *dirInfo) Name() string       { return di.name }
func (di *dirInfo) Size() int64        { return 0 }
func (di *dirInfo) Mode() fs.FileMode  { return fs.ModeDir | 0o755 }
func (di *dirInfo) ModTime() time.Time { return time.Time{} }
func (di *dirInfo) IsDir() bool        { return true }
func (di *dirInfo) Sys() any           { return nil }

// dirEntry implements fs.DirEntry by wrapping fs.FileInfo.
type dirEntry struct {
	info fs.FileInfo
}

func newDirEntry(info fs.FileInfo) *dirEntry {
	return &dirEntry{info: info}
}

func (de *dirEntry) Name() string               { return de.info.Name() }
func (de *dirEntry) IsDir() bool                { return de.info.IsDir() }
func (de *dirEntry) Type() fs.FileMode          { return de.info.Mode().Type() }
func (de *dirEntry) Info() (fs.FileInfo, error) { return de.info, nil }
