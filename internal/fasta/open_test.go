package fasta

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestOpenPlainFile verifies uncompressed content passes through untouched.
func TestOpenPlainFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.fa")
	require.NoError(t, os.WriteFile(path, []byte(">s\nATGC\n"), 0o644))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, ">s\nATGC\n", string(data))
}

// TestOpenGzipFile verifies gzip content is detected by magic bytes and inflated.
func TestOpenGzipFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input")
	writeGzipFile(t, path, ">s\nATGC\n")

	r, err := Open(path)
	require.NoError(t, err)

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, ">s\nATGC\n", string(data))
	assert.NoError(t, r.Close())
}

// TestOpenHalfMagicFile verifies a lone 0x1f first byte is not treated as gzip.
func TestOpenHalfMagicFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "odd")
	require.NoError(t, os.WriteFile(path, []byte{0x1f, 0x00, 'A'}, 0o644))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x1f, 0x00, 'A'}, data)
}

// TestOpenShortFile verifies files shorter than the magic are readable.
func TestOpenShortFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiny")
	require.NoError(t, os.WriteFile(path, []byte("A"), 0o644))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "A", string(data))
}

// TestOpenMissingFile verifies the os error surfaces.
func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "absent.fa"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

// TestOpenNWorkerFloor verifies procs below one still inflate correctly.
func TestOpenNWorkerFloor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.gz")
	writeGzipFile(t, path, ">s\nAATT\n")

	r, err := OpenN(path, -3)
	require.NoError(t, err)
	defer r.Close()

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, ">s\nAATT\n", string(data))
}
