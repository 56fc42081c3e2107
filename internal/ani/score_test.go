package ani

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parani/internal/fasta"
)

func TestScore(t *testing.T) {
	cases := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "ACGTACGT", "ACGTACGT", 100.0},
		{"half", "ACGTACGT", "ACGTTTTA", 50.0},
		{"five of eight", "ACGTACGT", "ACGTTTTT", 62.5},
		{"seven of eight", "ACGTACGT", "ACGTACGA", 87.5},
		{"disjoint alphabet", "AAAA", "CCCC", 0.0},
		{"case sensitive", "acgt", "ACGT", 0.0},
		{"shorter candidate", "ACGTACGT", "ACGA", 75.0},
		{"longer candidate", "ACGA", "ACGTACGT", 75.0},
		{"single residue", "A", "A", 100.0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Score([]byte(tc.a), []byte(tc.b))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 100.0)
		})
	}
}

func TestScoreBothDirections(t *testing.T) {
	// Truncation is from the start, so only the shared prefix counts.
	c := []byte("ACGTACGTGGGG")
	d := []byte("ACGTACGTCCCCAAAA")
	cd, err := Score(c, d)
	require.NoError(t, err)
	dc, err := Score(d, c)
	require.NoError(t, err)
	assert.InDelta(t, 66.666, cd, 0.001)
	assert.InDelta(t, 66.666, dc, 0.001)

	e := []byte("TTTTACGT")
	ce, err := Score(c, e)
	require.NoError(t, err)
	assert.Equal(t, 62.5, ce)
	ec, err := Score(e, c)
	require.NoError(t, err)
	assert.Equal(t, 62.5, ec)
}

func TestScoreEmpty(t *testing.T) {
	for _, tc := range []struct{ a, b string }{{"", "ACGT"}, {"ACGT", ""}, {"", ""}} {
		_, err := Score([]byte(tc.a), []byte(tc.b))
		require.ErrorIs(t, err, ErrEmptySequence)
	}
}

func TestCompare(t *testing.T) {
	m, l := Compare([]byte("ACGTAC"), []byte("ACCT"))
	assert.Equal(t, 3, m)
	assert.Equal(t, 4, l)
}

func writeFA(t *testing.T, dir, name, seq string) string {
	t.Helper()
	fn := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(fn, []byte(">"+name+"\n"+seq+"\n"), 0o644))
	return fn
}

func TestScoreFilesAndBind(t *testing.T) {
	dir := t.TempDir()
	ref := writeFA(t, dir, "ref.fa", "ACGTACGT")
	half := writeFA(t, dir, "half.fa", "ACGTTTTA")
	most := writeFA(t, dir, "most.fa", "ACGTACGA")
	empty := writeFA(t, dir, "empty.fa", "")

	got, err := ScoreFiles(context.Background(), ref, half)
	require.NoError(t, err)
	assert.Equal(t, 50.0, got)

	score := Bind(ref)
	got, err = score(context.Background(), most)
	require.NoError(t, err)
	assert.Equal(t, 87.5, got)

	got, err = score(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, 100.0, got)

	_, err = score(context.Background(), empty)
	require.ErrorIs(t, err, ErrEmptySequence)
}

func TestScoreFilesParseError(t *testing.T) {
	dir := t.TempDir()
	ref := writeFA(t, dir, "ref.fa", "ACGT")
	multi := filepath.Join(dir, "multi.fa")
	require.NoError(t, os.WriteFile(multi, []byte(">a\nACGT\n>b\nACGT\n"), 0o644))

	_, err := ScoreFiles(context.Background(), ref, multi)
	require.ErrorIs(t, err, fasta.ErrParse)
}

func TestScoreFixtures(t *testing.T) {
	ref := filepath.Join("..", "..", "testdata", "test_1.fasta")
	want := map[string]float64{
		"test_2.fasta": 75.0,
		"test_3.fasta": 50.0,
	}
	for name, w := range want {
		got, err := ScoreFiles(context.Background(), ref, filepath.Join("..", "..", "testdata", name))
		require.NoError(t, err, name)
		assert.Equal(t, w, got, name)
	}
}

func pipeStdin(t *testing.T, data string) {
	t.Helper()
	orig := os.Stdin
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdin = r
	t.Cleanup(func() {
		os.Stdin = orig
		_ = r.Close()
	})
	go func() {
		_, _ = w.WriteString(data)
		_ = w.Close()
	}()
}

func TestBindReadsStdinReferenceOnce(t *testing.T) {
	dir := t.TempDir()
	pipeStdin(t, ">ref\nACGTACGT\n")
	most := writeFA(t, dir, "most.fa", "ACGTACGA")
	half := writeFA(t, dir, "half.fa", "ACGTTTTA")

	score := Bind(fasta.Stdin)
	want := []float64{87.5, 50.0, 87.5, 50.0}
	got := make([]float64, len(want))
	errs := make([]error, len(want))
	var wg sync.WaitGroup
	for i, c := range []string{most, half, most, half} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got[i], errs[i] = score(context.Background(), c)
		}()
	}
	wg.Wait()
	for i := range want {
		require.NoError(t, errs[i])
	}
	assert.Equal(t, want, got)
}

func TestNewLoaderReadsFilesEveryCall(t *testing.T) {
	dir := t.TempDir()
	fn := writeFA(t, dir, "a.fa", "ACGT")
	load := NewLoader()

	rec, err := load(context.Background(), fn)
	require.NoError(t, err)
	assert.Equal(t, "ACGT", string(rec.Seq))

	require.NoError(t, os.WriteFile(fn, []byte(">a\nTTTT\n"), 0o644))
	rec, err = load(context.Background(), fn)
	require.NoError(t, err)
	assert.Equal(t, "TTTT", string(rec.Seq))
}
