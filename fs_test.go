package zipkit

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestFS builds an archive with a nested layout and opens it.
func openTestFS(t *testing.T) *Archive {
	t.Helper()

	w := NewWriter()
	require.NoError(t, w.AddString("a.txt", "root file"))
	require.NoError(t, w.AddString("docs/readme.md", "# readme"))
	require.NoError(t, w.AddString("docs/guide/install.md", "run the installer"))
	require.NoError(t, w.AddBytes("assets/logo.png", []byte{0x89, 'P', 'N', 'G'}, EntryWithMethod(MethodStore)))
	require.NoError(t, w.AddString("empty/", ""))
	data, err := w.Build(context.Background())
	require.NoError(t, err)

	a, err := OpenArchive(bytes.NewReader(data))
	require.NoError(t, err)
	return a
}

func TestArchiveFS(t *testing.T) {
	t.Parallel()

	a := openTestFS(t)
	require.NoError(t, fstest.TestFS(a,
		"a.txt",
		"docs/readme.md",
		"docs/guide/install.md",
		"assets/logo.png",
	))
}

func TestFSOpen(t *testing.T) {
	t.Parallel()

	a := openTestFS(t)

	t.Run("file", func(t *testing.T) {
		t.Parallel()
		f, err := a.Open("docs/readme.md")
		require.NoError(t, err)
		defer f.Close()

		info, err := f.Stat()
		require.NoError(t, err)
		assert.Equal(t, "readme.md", info.Name())
		assert.False(t, info.IsDir())
		assert.Equal(t, fs.FileMode(0o444), info.Mode())
		assert.Equal(t, int64(len("# readme")), info.Size())

		content, err := io.ReadAll(f)
		require.NoError(t, err)
		assert.Equal(t, "# readme", string(content))
	})

	t.Run("implicit directory", func(t *testing.T) {
		t.Parallel()
		f, err := a.Open("docs/guide")
		require.NoError(t, err)
		defer f.Close()

		info, err := f.Stat()
		require.NoError(t, err)
		assert.Equal(t, "guide", info.Name())
		assert.True(t, info.IsDir())

		_, err = f.Read(make([]byte, 1))
		assert.Error(t, err)
	})

	t.Run("marker directory", func(t *testing.T) {
		t.Parallel()
		info, err := a.Stat("empty")
		require.NoError(t, err)
		assert.True(t, info.IsDir())
		assert.Equal(t, fs.ModeDir|0o755, info.Mode())

		entries, err := a.ReadDir("empty")
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("root", func(t *testing.T) {
		t.Parallel()
		f, err := a.Open(".")
		require.NoError(t, err)
		defer f.Close()

		info, err := f.Stat()
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("missing", func(t *testing.T) {
		t.Parallel()
		_, err := a.Open("docs/missing.md")
		assert.ErrorIs(t, err, fs.ErrNotExist)
	})

	t.Run("invalid path", func(t *testing.T) {
		t.Parallel()
		_, err := a.Open("/absolute")
		assert.ErrorIs(t, err, fs.ErrInvalid)
	})
}

func TestFSReadFile(t *testing.T) {
	t.Parallel()

	a := openTestFS(t)

	content, err := a.ReadFile("docs/guide/install.md")
	require.NoError(t, err)
	assert.Equal(t, "run the installer", string(content))

	content, err = a.ReadFile("assets/logo.png")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, content)

	_, err = a.ReadFile("docs")
	assert.ErrorIs(t, err, fs.ErrNotExist)

	_, err = a.ReadFile("nope")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestFSReadDir(t *testing.T) {
	t.Parallel()

	a := openTestFS(t)

	t.Run("root is sorted", func(t *testing.T) {
		t.Parallel()
		entries, err := a.ReadDir(".")
		require.NoError(t, err)

		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		assert.Equal(t, []string{"a.txt", "assets", "docs", "empty"}, names)
	})

	t.Run("nested", func(t *testing.T) {
		t.Parallel()
		entries, err := a.ReadDir("docs")
		require.NoError(t, err)
		require.Len(t, entries, 2)

		assert.Equal(t, "guide", entries[0].Name())
		assert.True(t, entries[0].IsDir())
		assert.Equal(t, "readme.md", entries[1].Name())
		assert.False(t, entries[1].IsDir())

		info, err := entries[1].Info()
		require.NoError(t, err)
		assert.Equal(t, int64(len("# readme")), info.Size())
	})

	t.Run("paged", func(t *testing.T) {
		t.Parallel()
		f, err := a.Open("docs")
		require.NoError(t, err)
		defer f.Close()

		dir, ok := f.(fs.ReadDirFile)
		require.True(t, ok)

		first, err := dir.ReadDir(1)
		require.NoError(t, err)
		require.Len(t, first, 1)
		assert.Equal(t, "guide", first[0].Name())

		rest, err := dir.ReadDir(10)
		require.NoError(t, err)
		require.Len(t, rest, 1)
		assert.Equal(t, "readme.md", rest[0].Name())

		_, err = dir.ReadDir(1)
		assert.ErrorIs(t, err, io.EOF)
	})

	t.Run("missing", func(t *testing.T) {
		t.Parallel()
		_, err := a.ReadDir("ghost")
		assert.ErrorIs(t, err, fs.ErrNotExist)
	})
}

func TestFSWalk(t *testing.T) {
	t.Parallel()

	a := openTestFS(t)

	var visited []string
	err := fs.WalkDir(a, ".", func(path string, _ fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		visited = append(visited, path)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		".",
		"a.txt",
		"assets",
		"assets/logo.png",
		"docs",
		"docs/guide",
		"docs/guide/install.md",
		"docs/readme.md",
		"empty",
	}, visited)
}

func TestFSSkipsInvalidNames(t *testing.T) {
	t.Parallel()

	w := NewWriter()
	require.NoError(t, w.AddString("ok.txt", "fine"))
	require.NoError(t, w.AddString("../escape", "sneaky"))
	data, err := w.Build(context.Background())
	require.NoError(t, err)

	a, err := OpenArchive(bytes.NewReader(data))
	require.NoError(t, err)

	// The member is visible to directory iteration but not to the
	// filesystem view.
	var names []string
	for e, err := range a.Entries() {
		require.NoError(t, err)
		names = append(names, e.Name())
	}
	assert.Contains(t, names, "../escape")

	_, err = a.Open("../escape")
	assert.ErrorIs(t, err, fs.ErrInvalid)

	entries, err := a.ReadDir(".")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ok.txt", entries[0].Name())
}

func TestEntryLookup(t *testing.T) {
	t.Parallel()

	a := openTestFS(t)

	e, ok := a.Entry("docs/readme.md")
	require.True(t, ok)
	assert.Equal(t, "docs/readme.md", e.Name())

	_, ok = a.Entry("docs")
	assert.False(t, ok)

	_, ok = a.Entry("empty")
	assert.False(t, ok)
}

func TestFSIndexError(t *testing.T) {
	t.Parallel()

	w := NewWriter()
	require.NoError(t, w.AddString("x", "y"))
	data, err := w.Build(context.Background())
	require.NoError(t, err)

	// Corrupt the directory after open succeeds by handing the archive a
	// directory blob with a broken signature.
	a, err := OpenArchive(bytes.NewReader(data))
	require.NoError(t, err)
	a.directory[0] ^= 0xff

	_, err = a.Open("x")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFormat)

	_, err = a.Stat("x")
	assert.ErrorIs(t, err, ErrFormat)
}
