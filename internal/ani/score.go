// Package ani computes a naive ANI-like identity score: the percentage of
// positionally equal residues over the shorter of two sequences.
//
// This is not an alignment. Sequences are compared from position 0 and the
// longer one is truncated to the length of the shorter.
package ani

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"parani/internal/fasta"
)

// ErrEmptySequence is returned when the alignment length is zero.
var ErrEmptySequence = errors.New("ani: zero-length alignment")

// Compare counts case-sensitive positional matches over min(len(a), len(b)).
func Compare(a, b []byte) (matches, length int) {
	length = min(len(a), len(b))
	for i := 0; i < length; i++ {
		if a[i] == b[i] {
			matches++
		}
	}
	return matches, length
}

// Score returns matches*100/length as a percentage in [0, 100].
func Score(a, b []byte) (float64, error) {
	matches, length := Compare(a, b)
	if length == 0 {
		return 0, fmt.Errorf("%w (lengths %d and %d)", ErrEmptySequence, len(a), len(b))
	}
	return float64(matches) * 100 / float64(length), nil
}

// LoadFunc resolves a path to exactly one FASTA record.
type LoadFunc func(ctx context.Context, path string) (fasta.Record, error)

// NewLoader returns a LoadFunc backed by fasta.ReadOne. Standard input can
// only be consumed once, so the record read from fasta.Stdin is kept and
// handed to every later caller. Safe for concurrent use.
func NewLoader() LoadFunc {
	var (
		once sync.Once
		rec  fasta.Record
		err  error
	)
	return func(ctx context.Context, path string) (fasta.Record, error) {
		if path != fasta.Stdin {
			return fasta.ReadOne(ctx, path)
		}
		once.Do(func() { rec, err = fasta.ReadOne(ctx, path) })
		return rec, err
	}
}

// ScoreFiles loads one record from each path and scores them.
func ScoreFiles(ctx context.Context, path1, path2 string) (float64, error) {
	return scoreWith(ctx, fasta.ReadOne, path1, path2)
}

func scoreWith(ctx context.Context, load LoadFunc, path1, path2 string) (float64, error) {
	r1, err := load(ctx, path1)
	if err != nil {
		return 0, err
	}
	r2, err := load(ctx, path2)
	if err != nil {
		return 0, err
	}
	s, err := Score(r1.Seq, r2.Seq)
	if err != nil {
		return 0, fmt.Errorf("%s vs %s: %w", path1, path2, err)
	}
	return s, nil
}

// Bind fixes the reference path and returns a single-argument scorer.
// Files are read on every call; stdin is read once.
func Bind(reference string) func(ctx context.Context, candidate string) (float64, error) {
	return BindWith(NewLoader(), reference)
}

// BindWith is Bind with an explicit loader, so several scorers can share
// one stdin record.
func BindWith(load LoadFunc, reference string) func(ctx context.Context, candidate string) (float64, error) {
	return func(ctx context.Context, candidate string) (float64, error) {
		return scoreWith(ctx, load, reference, candidate)
	}
}
