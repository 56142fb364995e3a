package fasta

import (
	"io"
	"os"

	"github.com/klauspost/pgzip"
)

// inflateBlockSize is the block size handed to the parallel gzip reader.
const inflateBlockSize = 1 << 20

// multiReadCloser closes the inflater and the underlying file together.
type multiReadCloser struct {
	io.Reader
	closers []io.Closer
}

// Close closes all wrapped closers and returns the first error seen.
func (m *multiReadCloser) Close() error {
	var err error
	for _, c := range m.closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// Open opens a plain or gzip-compressed FASTA file with a default
// decompression worker count.
func Open(path string) (io.ReadCloser, error) {
	return OpenN(path, 0)
}

// OpenN opens a FASTA file, transparently inflating gzip content with at
// most procs workers. Compression is detected from the 1F 8B magic bytes,
// never from the file extension.
func OpenN(path string, procs int) (io.ReadCloser, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	var sig [2]byte
	n, _ := fh.Read(sig[:])
	if _, err := fh.Seek(0, io.SeekStart); err != nil {
		_ = fh.Close()
		return nil, err
	}
	if n < 2 || sig[0] != 0x1f || sig[1] != 0x8b {
		return fh, nil
	}

	if procs < 1 {
		procs = 1
	}
	gr, err := pgzip.NewReaderN(fh, inflateBlockSize, procs)
	if err != nil {
		_ = fh.Close()
		return nil, err
	}
	return &multiReadCloser{Reader: gr, closers: []io.Closer{gr, fh}}, nil
}
