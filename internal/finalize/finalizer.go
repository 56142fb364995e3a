// Package finalize moves finished build artifacts into permanent storage
// and erases partial output after failed or cancelled builds.
package finalize

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"
)

// deflateBlockSize is the block size handed to the parallel gzip writer.
const deflateBlockSize = 1 << 20

// Compress writes a gzip copy of fastaPath next to it using at most procs
// compression workers, removes the uncompressed original, and returns the
// compressed path. An already-removed original is not an error.
func Compress(ctx context.Context, fastaPath string, procs int) (string, error) {
	gzPath := fastaPath + ".gz"
	if err := compressFile(ctx, fastaPath, gzPath, procs); err != nil {
		_ = os.Remove(gzPath)
		return "", err
	}
	if err := os.Remove(fastaPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("remove staged fasta: %w", err)
	}
	return gzPath, nil
}

// compressFile streams srcPath through a parallel gzip writer into dstPath.
func compressFile(ctx context.Context, srcPath, dstPath string, procs int) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("open staged fasta: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("create compressed fasta: %w", err)
	}

	gw := pgzip.NewWriter(dst)
	if procs > 0 {
		if err := gw.SetConcurrency(deflateBlockSize, procs); err != nil {
			_ = dst.Close()
			return fmt.Errorf("configure compressor: %w", err)
		}
	}

	if err := copyChunks(ctx, gw, src); err != nil {
		_ = gw.Close()
		_ = dst.Close()
		return err
	}
	if err := gw.Close(); err != nil {
		_ = dst.Close()
		return fmt.Errorf("flush compressed fasta: %w", err)
	}
	return dst.Close()
}

// Relocate moves the finished working directory to finalDir. A plain rename
// is used when the filesystem allows it; otherwise the tree is copied into a
// hidden sibling of finalDir and renamed into place, so the final name never
// exposes a half-written directory.
func Relocate(ctx context.Context, workingDir, finalDir string, procs int) error {
	if err := os.MkdirAll(filepath.Dir(finalDir), 0o755); err != nil {
		return fmt.Errorf("create final parent: %w", err)
	}

	if err := os.Rename(workingDir, finalDir); err == nil {
		return nil
	}

	staged, err := os.MkdirTemp(filepath.Dir(finalDir), "."+filepath.Base(finalDir)+".tmp-")
	if err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	if err := os.Chmod(staged, 0o755); err != nil {
		_ = os.RemoveAll(staged)
		return fmt.Errorf("chmod staging dir: %w", err)
	}

	if err := copyTree(ctx, workingDir, staged, procs); err != nil {
		_ = os.RemoveAll(staged)
		return fmt.Errorf("copy artifacts: %w", err)
	}
	if err := os.Rename(staged, finalDir); err != nil {
		_ = os.RemoveAll(staged)
		return fmt.Errorf("publish final dir: %w", err)
	}
	return os.RemoveAll(workingDir)
}

// RemoveTree deletes the directory tree at path. A path that does not exist
// is a no-op, so cleanup handlers can run against partial state.
func RemoveTree(path string) error {
	return os.RemoveAll(path)
}

// copyTree copies srcDir recursively into dstDir, copying at most procs
// files concurrently. dstDir must already exist.
func copyTree(ctx context.Context, srcDir, dstDir string, procs int) error {
	if procs < 1 {
		procs = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(procs)

	walkErr := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dstDir, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		g.Go(func() error {
			return copyFile(ctx, path, target)
		})
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	return walkErr
}

// copyFile copies a single regular file, checking cancellation between chunks.
func copyFile(ctx context.Context, srcPath, dstPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(dstPath)
	if err != nil {
		return err
	}
	if err := copyChunks(ctx, dst, src); err != nil {
		_ = dst.Close()
		return err
	}
	return dst.Close()
}

// copyChunks streams src into dst, honouring cancellation between chunks.
func copyChunks(ctx context.Context, dst io.Writer, src io.Reader) error {
	buf := make([]byte, deflateBlockSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
