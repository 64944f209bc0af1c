package iox

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "file.txt")

	require.NoError(t, WriteFileAtomic(filename, []byte("one")))
	b, err := os.ReadFile(filename)
	require.NoError(t, err)
	require.Equal(t, "one", string(b))

	// Overwrite
	require.NoError(t, WriteFileAtomic(filename, []byte("two")))
	b, err = os.ReadFile(filename)
	require.NoError(t, err)
	require.Equal(t, "two", string(b))

	// No temp files left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestMoveFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "sub", "dst.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(dst), 0770))
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0660))

	require.NoError(t, MoveFile(src, dst))
	_, err := os.Stat(src)
	require.True(t, os.IsNotExist(err))
	b, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, "payload", string(b))

	// Moving a missing file is an error
	require.Error(t, MoveFile(src, dst))
}

func TestJSONFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "doc.json")
	type doc struct {
		Name  string   `json:"name"`
		Items []string `json:"items"`
	}

	require.NoError(t, WriteJSONFile(filename, &doc{Name: "x", Items: []string{"a", "b"}}))
	out := doc{}
	require.NoError(t, ReadJSONFile(filename, &out))
	require.Equal(t, "x", out.Name)
	require.Equal(t, []string{"a", "b"}, out.Items)

	// Missing file surfaces the os error so callers can test IsNotExist
	err := ReadJSONFile(filepath.Join(dir, "missing.json"), &out)
	require.True(t, os.IsNotExist(err))
}
