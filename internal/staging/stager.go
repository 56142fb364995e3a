package staging

import (
	"context"
	"fmt"
	"io"
	"os"

	"subtraction-builder/internal/fasta"
)

// copyChunkSize is the buffer size for staging copies; cancellation is
// checked between chunks.
const copyChunkSize = 1 << 20

// Error is a fatal staging failure: a missing upload, an unreadable source,
// or a failed copy into the working directory.
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("staging %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// EnsureWorkingDir creates the job working directory, tolerating one that
// already exists.
func EnsureWorkingDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return &Error{Op: "mkdir", Path: path, Err: err}
	}
	return nil
}

// StageInput materializes the uploaded FASTA at destPath. Gzip-compressed
// sources are inflated with at most procs workers, so the destination always
// holds plain FASTA bytes. A partial destination is removed on error.
func StageInput(ctx context.Context, sourcePath, destPath string, procs int) error {
	src, err := fasta.OpenN(sourcePath, procs)
	if err != nil {
		return &Error{Op: "open", Path: sourcePath, Err: err}
	}
	defer src.Close()

	dst, err := os.Create(destPath)
	if err != nil {
		return &Error{Op: "create", Path: destPath, Err: err}
	}

	if err := copyChunks(ctx, dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(destPath)
		return &Error{Op: "copy", Path: destPath, Err: err}
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(destPath)
		return &Error{Op: "close", Path: destPath, Err: err}
	}
	return nil
}

// copyChunks streams src into dst, honouring cancellation between chunks.
func copyChunks(ctx context.Context, dst io.Writer, src io.Reader) error {
	buf := make([]byte, copyChunkSize)
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
