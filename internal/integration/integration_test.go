// internal/integration/integration_test.go
package integration

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parani/internal/app"
	"parani/pkg/api"
)

func write(t *testing.T, name, data string) string {
	t.Helper()
	fn := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(fn, []byte(data), 0o644))
	return fn
}

func run(t *testing.T, argv ...string) (int, string, string) {
	t.Helper()
	var out, errBuf bytes.Buffer
	code := app.Run(argv, &out, &errBuf)
	return code, out.String(), errBuf.String()
}

func TestEndToEndText(t *testing.T) {
	td := filepath.Join("..", "..", "testdata")
	ref := filepath.Join(td, "test_1.fasta")
	cands := []string{
		filepath.Join(td, "test_2.fasta"),
		filepath.Join(td, "test_3.fasta"),
		filepath.Join(td, "test_4.fasta"),
	}

	argv := append([]string{"-r", ref, "-p", "sequential,imap", "-w", "2", "-q"}, cands...)
	code, out, errs := run(t, argv...)
	require.Equal(t, app.ExitOK, code, errs)

	assert.Contains(t, out, "sequential\t[75.0, 50.0, 100.0]")
	assert.Contains(t, out, "imap\t[75.0, 50.0, 100.0]")
	assert.Contains(t, out, "Total time to process (sequential, 1 worker):")
	assert.Contains(t, out, "Total time to process (imap, 2 workers):")
}

func TestEndToEndJSON(t *testing.T) {
	ref := write(t, "ref.fa", ">ref\nACGTACGT\n")
	a := write(t, "a.fa", ">a\nACGTACGT\n")
	b := write(t, "b.fa", ">b\nACGTTTTA\n")

	code, out, errs := run(t, "-r", ref, "-c", a, "-c", b, "-p", "map", "-o", "json", "-q")
	require.Equal(t, app.ExitOK, code, errs)

	var reps []api.ReportV1
	require.NoError(t, json.Unmarshal([]byte(out), &reps))
	require.Len(t, reps, 1)
	assert.Equal(t, "map", reps[0].Policy)
	assert.True(t, reps[0].InputOrder)
	require.Len(t, reps[0].Scores, 2)
	assert.InDelta(t, 100.0, reps[0].Scores[0].Score, 1e-9)
	assert.InDelta(t, 50.0, reps[0].Scores[1].Score, 1e-9)
}

func TestParallelMatchesSerial(t *testing.T) {
	ref := write(t, "ref.fa", ">ref\nACGTACGTACGTACGT\n")
	var cands []string
	for i := 0; i < 12; i++ {
		seq := strings.Repeat("A", i) + strings.Repeat("C", 16-i)
		cands = append(cands, write(t, fmt.Sprintf("c%02d.fa", i), ">c\n"+seq+"\n"))
	}

	scores := func(workers int, policy string) []float64 {
		argv := append([]string{"-r", ref, "-p", policy, "-w", fmt.Sprint(workers), "-o", "json", "-q"}, cands...)
		code, out, errs := run(t, argv...)
		require.Equal(t, app.ExitOK, code, errs)
		var reps []api.ReportV1
		require.NoError(t, json.Unmarshal([]byte(out), &reps))
		require.Len(t, reps, 1)
		vs := make([]float64, 0, len(reps[0].Scores))
		for _, s := range reps[0].Scores {
			vs = append(vs, s.Score)
		}
		return vs
	}

	serial := scores(1, "sequential")
	for _, p := range []string{"imap", "map", "map_async"} {
		assert.Equal(t, serial, scores(1, p), p)
		assert.Equal(t, serial, scores(4, p), p)
	}
	assert.ElementsMatch(t, serial, scores(4, "imap_unordered"))
}

func TestUsageErrors(t *testing.T) {
	ref := write(t, "ref.fa", ">ref\nACGT\n")

	code, _, errs := run(t, "-r", ref)
	assert.Equal(t, app.ExitUsage, code)
	assert.Contains(t, errs, "candidate")

	code, _, errs = run(t, "-r", ref, "-p", "bogus", ref)
	assert.Equal(t, app.ExitUsage, code)
	assert.Contains(t, errs, "bogus")

	code, out, _ := run(t)
	assert.Equal(t, app.ExitOK, code)
	assert.Contains(t, out, "Usage:")
}

func TestRuntimeErrors(t *testing.T) {
	ref := write(t, "ref.fa", ">ref\nACGT\n")
	empty := write(t, "empty.fa", ">empty\n")

	code, _, errs := run(t, "-r", ref, "-p", "imap", "-q", empty)
	assert.Equal(t, app.ExitRuntime, code)
	assert.Contains(t, errs, "empty.fa")

	code, _, errs = run(t, "-r", ref, "-p", "sequential", "-q", filepath.Join(t.TempDir(), "missing.fa"))
	assert.Equal(t, app.ExitRuntime, code)
	assert.Contains(t, errs, "missing.fa")
}

func TestVersion(t *testing.T) {
	code, out, _ := run(t, "--version")
	assert.Equal(t, app.ExitOK, code)
	assert.True(t, strings.HasPrefix(out, "parani version "))
}

func TestReferenceFromStdin(t *testing.T) {
	td := filepath.Join("..", "..", "testdata")
	ref, err := os.ReadFile(filepath.Join(td, "test_1.fasta"))
	require.NoError(t, err)

	orig := os.Stdin
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdin = r
	t.Cleanup(func() {
		os.Stdin = orig
		_ = r.Close()
	})
	go func() {
		_, _ = w.Write(ref)
		_ = w.Close()
	}()

	code, out, errs := run(t, "-r", "-", "-p", "sequential,imap,map", "-w", "3", "-q",
		filepath.Join(td, "test_2.fasta"), filepath.Join(td, "test_3.fasta"), filepath.Join(td, "test_4.fasta"))
	require.Equal(t, app.ExitOK, code, errs)
	assert.Contains(t, out, "sequential\t[75.0, 50.0, 100.0]")
	assert.Contains(t, out, "imap\t[75.0, 50.0, 100.0]")
	assert.Contains(t, out, "map\t[75.0, 50.0, 100.0]")
}

func TestStdinForTwoInputsIsUsageError(t *testing.T) {
	code, _, errs := run(t, "-r", "-", "-")
	assert.Equal(t, app.ExitUsage, code)
	assert.Contains(t, errs, "only one input")
}
