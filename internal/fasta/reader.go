// Package fasta reads FASTA records from plain, gzip, zstd or lz4 files and stdin.
package fasta

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrParse reports input that is not the expected FASTA content: malformed
// records, over-long lines and corrupt compressed streams.
var ErrParse = errors.New("fasta: parse error")

// Stdin is the path that reads from standard input.
const Stdin = "-"

// maxLineLen bounds a single input line (one-line sequences included).
var maxLineLen = 64 * 1024 * 1024

// Record represents a parsed FASTA sequence.
type Record struct {
	ID          string
	Description string
	Seq         []byte
}

// Scan parses FASTA from r and calls emit once per record, in file order.
// Residue case is preserved and whitespace inside sequence lines is dropped.
// Return a non-nil error from emit to stop early.
func Scan(ctx context.Context, r io.Reader, emit func(Record) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, min(64*1024, maxLineLen)), maxLineLen)

	var (
		cur    Record
		inRec  bool
		lineNo int
		seq    = make([]byte, 0, 1<<16)
	)

	flush := func() error {
		if !inRec {
			return nil
		}
		cur.Seq = append([]byte(nil), seq...)
		return emit(cur)
	}

	for sc.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		lineNo++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' {
			if err := flush(); err != nil {
				return err
			}
			cur = Record{}
			cur.ID, cur.Description = parseHeader(line[1:])
			seq = seq[:0]
			inRec = true
			continue
		}
		if !inRec {
			return fmt.Errorf("%w: line %d: sequence data before first '>' header", ErrParse, lineNo)
		}
		seq = appendResidues(seq, line)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("%w: line %d: %w", ErrParse, lineNo+1, err)
	}
	return flush()
}

// ReadAll loads every record of path into memory.
func ReadAll(ctx context.Context, path string) ([]Record, error) {
	rc, err := openReader(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var recs []Record
	err = Scan(ctx, rc, func(r Record) error {
		recs = append(recs, r)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return recs, nil
}

// ReadOne loads path and requires it to hold exactly one record.
func ReadOne(ctx context.Context, path string) (Record, error) {
	rc, err := openReader(path)
	if err != nil {
		return Record{}, err
	}
	defer rc.Close()

	var (
		rec Record
		n   int
	)
	errTooMany := errors.New("more than one record")
	err = Scan(ctx, rc, func(r Record) error {
		n++
		if n > 1 {
			return errTooMany
		}
		rec = r
		return nil
	})
	switch {
	case errors.Is(err, errTooMany):
		return Record{}, fmt.Errorf("%w: %s: expected exactly one record, found more", ErrParse, path)
	case err != nil:
		return Record{}, fmt.Errorf("%s: %w", path, err)
	case n == 0:
		return Record{}, fmt.Errorf("%w: %s: no records found", ErrParse, path)
	}
	return rec, nil
}

func parseHeader(hdr []byte) (id, desc string) {
	hdr = bytes.TrimSpace(hdr)
	if i := bytes.IndexAny(hdr, " \t"); i >= 0 {
		return string(hdr[:i]), string(bytes.TrimSpace(hdr[i+1:]))
	}
	return string(hdr), ""
}

func appendResidues(dst, line []byte) []byte {
	for _, c := range line {
		switch c {
		case ' ', '\t', '\r', '\v', '\f':
			continue
		}
		dst = append(dst, c)
	}
	return dst
}
