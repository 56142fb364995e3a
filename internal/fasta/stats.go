package fasta

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"

	"gonum.org/v1/gonum/stat"

	"subtraction-builder/internal/domain"
)

// readBufSize bounds analyzer memory regardless of input line length;
// unwrapped chromosome-length sequence lines are consumed in chunks.
const readBufSize = 256 * 1024

// Stats describes one FASTA file: nucleotide composition over all sequence
// characters, the number of records, and the length distribution.
type Stats struct {
	Composition domain.Composition
	Count       int
	TotalBases  int64
	Lengths     domain.LengthStats
}

// Analyze streams the FASTA file at path once and returns its stats.
// Gzip-compressed input is inflated transparently.
func Analyze(ctx context.Context, path string) (Stats, error) {
	r, err := Open(path)
	if err != nil {
		return Stats{}, err
	}
	defer r.Close()
	return AnalyzeReader(ctx, r)
}

// AnalyzeReader computes FASTA stats from r in a single pass using constant
// memory. Lines starting with '>' are record headers; every other
// non-whitespace character counts as a sequence base. Characters outside
// a/c/g/t are pooled into the N fraction.
func AnalyzeReader(ctx context.Context, r io.Reader) (Stats, error) {
	var (
		counts      [256]int64
		recordCount int
		lengths     []int

		atLineStart = true
		inHeader    = false
		recordOpen  = false
		recordLen   int
	)

	closeRecord := func() {
		if recordOpen {
			lengths = append(lengths, recordLen)
			recordLen = 0
		}
	}

	br := bufio.NewReaderSize(r, readBufSize)
	for {
		select {
		case <-ctx.Done():
			return Stats{}, ctx.Err()
		default:
		}

		chunk, err := br.ReadSlice('\n')
		if len(chunk) > 0 {
			if atLineStart && chunk[0] == '>' {
				closeRecord()
				recordCount++
				recordOpen = true
				inHeader = true
			}
			if !inHeader {
				for _, c := range chunk {
					switch c {
					case '\n', '\r', ' ', '\t':
						continue
					}
					counts[c]++
					if recordOpen {
						recordLen++
					}
				}
			}
		}

		switch err {
		case nil:
			atLineStart = true
			inHeader = false
		case bufio.ErrBufferFull:
			atLineStart = false
		case io.EOF:
			closeRecord()
			return finishStats(counts, recordCount, lengths), nil
		default:
			return Stats{}, fmt.Errorf("read fasta: %w", err)
		}
	}
}

// finishStats converts raw counters into fractions and length summaries.
func finishStats(counts [256]int64, recordCount int, lengths []int) Stats {
	var total int64
	for _, n := range counts {
		total += n
	}

	s := Stats{Count: recordCount, TotalBases: total}
	if total > 0 {
		a := counts['a'] + counts['A']
		c := counts['c'] + counts['C']
		g := counts['g'] + counts['G']
		t := counts['t'] + counts['T']
		s.Composition = domain.Composition{
			A: float64(a) / float64(total),
			C: float64(c) / float64(total),
			G: float64(g) / float64(total),
			T: float64(t) / float64(total),
			N: float64(total-a-c-g-t) / float64(total),
		}
	}
	s.Lengths = summarizeLengths(lengths)
	return s
}

// summarizeLengths reduces per-record lengths to min/max/mean/median.
func summarizeLengths(lengths []int) domain.LengthStats {
	if len(lengths) == 0 {
		return domain.LengthStats{}
	}

	fs := make([]float64, len(lengths))
	min, max := lengths[0], lengths[0]
	for i, n := range lengths {
		fs[i] = float64(n)
		if n < min {
			min = n
		}
		if n > max {
			max = n
		}
	}
	mean := stat.Mean(fs, nil)
	sort.Float64s(fs)
	median := stat.Quantile(0.5, stat.Empirical, fs, nil)

	return domain.LengthStats{Min: min, Max: max, Mean: mean, Median: median}
}
