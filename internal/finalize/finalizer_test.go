package finalize

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCompressRoundTrip verifies the gzip copy inflates back to the original.
func TestCompressRoundTrip(t *testing.T) {
	root := t.TempDir()
	fastaPath := filepath.Join(root, "subtraction.fa")
	content := ">s\n" + strings.Repeat("ACGT", 5000) + "\n"
	require.NoError(t, os.WriteFile(fastaPath, []byte(content), 0o644))

	gzPath, err := Compress(context.Background(), fastaPath, 2)
	require.NoError(t, err)
	assert.Equal(t, fastaPath+".gz", gzPath)

	fh, err := os.Open(gzPath)
	require.NoError(t, err)
	defer fh.Close()
	gr, err := gzip.NewReader(fh)
	require.NoError(t, err)
	data, err := io.ReadAll(gr)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
}

// TestCompressRemovesOriginal verifies the uncompressed copy is deleted.
func TestCompressRemovesOriginal(t *testing.T) {
	root := t.TempDir()
	fastaPath := filepath.Join(root, "subtraction.fa")
	require.NoError(t, os.WriteFile(fastaPath, []byte(">s\nAT\n"), 0o644))

	_, err := Compress(context.Background(), fastaPath, 1)
	require.NoError(t, err)

	_, statErr := os.Stat(fastaPath)
	assert.ErrorIs(t, statErr, os.ErrNotExist)
}

// TestCompressMissingSource verifies a useful error for an absent input.
func TestCompressMissingSource(t *testing.T) {
	_, err := Compress(context.Background(), filepath.Join(t.TempDir(), "absent.fa"), 1)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

// TestCompressCancelled verifies cancellation leaves no compressed output.
func TestCompressCancelled(t *testing.T) {
	root := t.TempDir()
	fastaPath := filepath.Join(root, "subtraction.fa")
	require.NoError(t, os.WriteFile(fastaPath, []byte(">s\nATGC\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Compress(ctx, fastaPath, 1)
	require.ErrorIs(t, err, context.Canceled)

	_, statErr := os.Stat(fastaPath + ".gz")
	assert.ErrorIs(t, statErr, os.ErrNotExist)

	_, statErr = os.Stat(fastaPath)
	assert.NoError(t, statErr, "original must survive a cancelled compression")
}

// TestRelocateRename verifies the same-filesystem move.
func TestRelocateRename(t *testing.T) {
	root := t.TempDir()
	workingDir := filepath.Join(root, "work", "job1")
	finalDir := filepath.Join(root, "data", "subtractions", "job1")
	require.NoError(t, os.MkdirAll(workingDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(workingDir, "subtraction.fa.gz"), []byte("gz"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(workingDir, "reference.1.bt2"), []byte("bt2"), 0o644))

	require.NoError(t, Relocate(context.Background(), workingDir, finalDir, 2))

	_, err := os.Stat(filepath.Join(finalDir, "subtraction.fa.gz"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(finalDir, "reference.1.bt2"))
	assert.NoError(t, err)
	_, err = os.Stat(workingDir)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

// TestRelocateMissingWorkingDir verifies the error when there is nothing to move.
func TestRelocateMissingWorkingDir(t *testing.T) {
	root := t.TempDir()
	err := Relocate(context.Background(), filepath.Join(root, "absent"), filepath.Join(root, "final"), 1)
	assert.Error(t, err)
}

// TestCopyTreePreservesLayout verifies the staged-copy fallback machinery.
func TestCopyTreePreservesLayout(t *testing.T) {
	root := t.TempDir()
	srcDir := filepath.Join(root, "src")
	dstDir := filepath.Join(root, "dst")
	require.NoError(t, os.MkdirAll(filepath.Join(srcDir, "nested"), 0o755))
	require.NoError(t, os.MkdirAll(dstDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "a.txt"), []byte("A"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "nested", "b.txt"), []byte("B"), 0o644))

	require.NoError(t, copyTree(context.Background(), srcDir, dstDir, 4))

	data, err := os.ReadFile(filepath.Join(dstDir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "A", string(data))
	data, err = os.ReadFile(filepath.Join(dstDir, "nested", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "B", string(data))
}

// TestCopyTreeCancelled verifies cancellation propagates out of the copy pool.
func TestCopyTreeCancelled(t *testing.T) {
	root := t.TempDir()
	srcDir := filepath.Join(root, "src")
	dstDir := filepath.Join(root, "dst")
	require.NoError(t, os.MkdirAll(srcDir, 0o755))
	require.NoError(t, os.MkdirAll(dstDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "a.txt"), []byte("A"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, copyTree(ctx, srcDir, dstDir, 1), context.Canceled)
}

// TestRemoveTreeTolerantOfAbsent verifies cleanup is a no-op on missing paths.
func TestRemoveTreeTolerantOfAbsent(t *testing.T) {
	root := t.TempDir()
	assert.NoError(t, RemoveTree(filepath.Join(root, "never-created")))

	dir := filepath.Join(root, "present")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "f"), []byte("x"), 0o644))
	require.NoError(t, RemoveTree(dir))

	_, err := os.Stat(dir)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
