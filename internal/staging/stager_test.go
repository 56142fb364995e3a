package staging

import (
	"compress/gzip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEnsureWorkingDirCreatesTree verifies nested directory creation.
func TestEnsureWorkingDirCreatesTree(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "work", "my_subtraction")
	require.NoError(t, EnsureWorkingDir(dir))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

// TestEnsureWorkingDirIdempotent verifies an existing directory is fine.
func TestEnsureWorkingDirIdempotent(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, EnsureWorkingDir(dir))
	assert.NoError(t, EnsureWorkingDir(dir))
}

// TestStageInputPlain verifies a plain upload is copied byte for byte.
func TestStageInputPlain(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "upload.fa")
	dst := filepath.Join(root, "subtraction.fa")
	require.NoError(t, os.WriteFile(src, []byte(">s\nATGC\n"), 0o644))

	require.NoError(t, StageInput(context.Background(), src, dst, 1))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, ">s\nATGC\n", string(data))
}

// TestStageInputGzip verifies a compressed upload lands decompressed.
func TestStageInputGzip(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "upload")
	dst := filepath.Join(root, "subtraction.fa")

	fh, err := os.Create(src)
	require.NoError(t, err)
	gw := gzip.NewWriter(fh)
	_, err = gw.Write([]byte(">s\nAATT\n"))
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	require.NoError(t, fh.Close())

	require.NoError(t, StageInput(context.Background(), src, dst, 2))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, ">s\nAATT\n", string(data))
}

// TestStageInputMissingSource verifies the typed error for absent uploads.
func TestStageInputMissingSource(t *testing.T) {
	root := t.TempDir()
	err := StageInput(context.Background(), filepath.Join(root, "absent"), filepath.Join(root, "out"), 1)

	var stageErr *Error
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, "open", stageErr.Op)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

// TestStageInputCancelled verifies cancellation aborts and removes the partial copy.
func TestStageInputCancelled(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "upload.fa")
	dst := filepath.Join(root, "subtraction.fa")
	require.NoError(t, os.WriteFile(src, []byte(">s\nATGC\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := StageInput(ctx, src, dst, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))

	_, statErr := os.Stat(dst)
	assert.ErrorIs(t, statErr, os.ErrNotExist)
}
