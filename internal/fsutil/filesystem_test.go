package fsutil

import (
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exercise runs the same checks against both implementations.
func exercise(t *testing.T, fsys FileSystem, root string) {
	t.Helper()

	dir := filepath.Join(root, "evidence", "7")
	assert.False(t, fsys.Exists(dir))

	err := fsys.WriteFile(filepath.Join(dir, "a.jpg"), []byte("x"), 0o644)
	assert.ErrorIs(t, err, fs.ErrNotExist)

	require.NoError(t, fsys.MkdirAll(dir, 0o755))
	assert.True(t, fsys.Exists(dir))
	assert.True(t, fsys.Exists(filepath.Join(root, "evidence")))

	require.NoError(t, fsys.WriteFile(filepath.Join(dir, "b.jpg"), []byte("bee"), 0o644))
	require.NoError(t, fsys.WriteFile(filepath.Join(dir, "a.jpg"), []byte("ay"), 0o644))
	require.NoError(t, fsys.MkdirAll(filepath.Join(dir, "sub"), 0o755))

	data, err := fsys.ReadFile(filepath.Join(dir, "b.jpg"))
	require.NoError(t, err)
	assert.Equal(t, []byte("bee"), data)

	names, err := fsys.ReadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.jpg", "b.jpg", "sub"}, names)

	_, err = fsys.ReadFile(filepath.Join(dir, "missing.jpg"))
	assert.ErrorIs(t, err, fs.ErrNotExist)

	_, err = fsys.ReadDir(filepath.Join(root, "nope"))
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestOSFileSystem(t *testing.T) {
	t.Parallel()
	exercise(t, OSFileSystem{}, t.TempDir())
}

func TestMemoryFileSystem(t *testing.T) {
	t.Parallel()
	exercise(t, NewMemoryFileSystem(), "/data")
}

func TestMemoryFileSystem_ReadFileReturnsCopy(t *testing.T) {
	t.Parallel()
	m := NewMemoryFileSystem()
	require.NoError(t, m.WriteFile("f", []byte("abc"), 0o644))
	data, err := m.ReadFile("f")
	require.NoError(t, err)
	data[0] = 'z'
	again, err := m.ReadFile("f")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)
}
