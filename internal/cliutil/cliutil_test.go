package cliutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPositionals(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.fa")
	b := filepath.Join(dir, "b.fa")
	require.NoError(t, os.WriteFile(a, []byte(">a\nA\n"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte(">b\nA\n"), 0o644))

	got, err := ExpandPositionals([]string{filepath.Join(dir, "*.fa"), "-", "literal.fa"})
	require.NoError(t, err)
	assert.Equal(t, []string{a, b, "-", "literal.fa"}, got)
}

func TestExpandPositionalsNoMatch(t *testing.T) {
	_, err := ExpandPositionals([]string{filepath.Join(t.TempDir(), "*.fasta")})
	require.Error(t, err)
}
