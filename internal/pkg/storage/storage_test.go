package storage

import (
	"context"
	"io"
	"os"
	"path"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, s *FileSystem, name string) string {
	t.Helper()
	rc, err := s.Open(name)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}

func TestFileSystem_SaveOpenDelete(t *testing.T) {
	s := NewFileSystem(t.TempDir(), "/media")
	ctx := context.Background()

	name, err := s.Save(ctx, "attachment/a/test.txt", strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, "attachment/a/test.txt", name)
	assert.Equal(t, "hello", readAll(t, s, name))

	exists, err := s.Exists(name)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, s.Delete(name))
	exists, err = s.Exists(name)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFileSystem_SaveAvoidsCollisions(t *testing.T) {
	s := NewFileSystem(t.TempDir(), "/media/")
	ctx := context.Background()

	first, err := s.Save(ctx, "dir/test.txt", strings.NewReader("A"))
	require.NoError(t, err)
	second, err := s.Save(ctx, "dir/test.txt", strings.NewReader("B"))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, "dir", path.Dir(second))
	assert.True(t, strings.HasPrefix(path.Base(second), "test_"))
	assert.Equal(t, ".txt", path.Ext(second))
	assert.Equal(t, "A", readAll(t, s, first))
	assert.Equal(t, "B", readAll(t, s, second))
}

func TestFileSystem_DeleteMissingIsNotAnError(t *testing.T) {
	s := NewFileSystem(t.TempDir(), "/media/")
	assert.NoError(t, s.Delete("nothing/here.txt"))
}

func TestFileSystem_RejectsEscapingNames(t *testing.T) {
	s := NewFileSystem(t.TempDir(), "/media/")
	ctx := context.Background()

	for _, name := range []string{"", "/etc/passwd", "../secret", "a/../../b", ".."} {
		_, err := s.Save(ctx, name, strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrInvalidName, name)
		assert.ErrorIs(t, s.Delete(name), ErrInvalidName, name)
	}
}

func TestFileSystem_URLAndPath(t *testing.T) {
	root := t.TempDir()
	s := NewFileSystem(root, "/media")

	assert.Equal(t, "/media/attachment/x/a.txt", s.URL("attachment/x/a.txt"))
	assert.True(t, strings.HasPrefix(s.Path("attachment/x/a.txt"), root))
}

func TestFileSystem_SaveCancelled(t *testing.T) {
	root := t.TempDir()
	s := NewFileSystem(root, "/media/")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Save(ctx, "a.txt", strings.NewReader("x"))
	assert.ErrorIs(t, err, context.Canceled)

	_, statErr := os.Stat(s.Path("a.txt"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "test.txt", SanitizeFilename("test.txt"))
	assert.Equal(t, "passwd", SanitizeFilename("../../etc/passwd"))
	assert.Equal(t, "evil.exe", SanitizeFilename(`C:\Users\evil.exe`))
	assert.Equal(t, "file", SanitizeFilename(""))
	assert.Equal(t, "file", SanitizeFilename(".."))
	assert.Equal(t, "a_b", SanitizeFilename("a\nb"))

	long := strings.Repeat("x", 150) + ".pdf"
	got := SanitizeFilename(long)
	assert.Len(t, got, 100)
	assert.True(t, strings.HasSuffix(got, ".pdf"))
}
