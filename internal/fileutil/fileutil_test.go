package fileutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o640))

	dst := filepath.Join(dir, "deep", "nested", "dst")
	require.NoError(t, CopyFile(src, dst))

	body, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(body))

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())
}

func TestCopyFileRejectsDirectories(t *testing.T) {
	dir := t.TempDir()
	assert.Error(t, CopyFile(dir, filepath.Join(dir, "dst")))
}

func TestWriteFileCreatesParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "c.cfg")
	require.NoError(t, WriteFile(path, []byte("x")))
	assert.FileExists(t, path)
}

func TestCopyTreeExcludes(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "isolinux"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(src, "images"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "TRANS.TBL"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "boot.cat"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "keep.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "isolinux", "isolinux.cfg"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "images", "TRANS.TBL"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "images", "efiboot.img"), []byte("x"), 0o644))

	dst := t.TempDir()
	require.NoError(t, CopyTree(src, dst, []string{"boot.cat", "TRANS.TBL", "isolinux/"}))

	assert.FileExists(t, filepath.Join(dst, "keep.txt"))
	assert.FileExists(t, filepath.Join(dst, "images", "efiboot.img"))
	assert.NoFileExists(t, filepath.Join(dst, "boot.cat"))
	assert.NoFileExists(t, filepath.Join(dst, "TRANS.TBL"))
	assert.NoFileExists(t, filepath.Join(dst, "images", "TRANS.TBL"))
	assert.NoDirExists(t, filepath.Join(dst, "isolinux"))
}

func TestCopyTreeRejectsFiles(t *testing.T) {
	src := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))
	assert.Error(t, CopyTree(src, t.TempDir(), nil))
}
