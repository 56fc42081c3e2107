// internal/writers/text.go
package writers

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"parani/internal/dispatch"
)

// TSVHeader is the header row of the tsv format.
const TSVHeader = "policy\tworkers\trank\tindex\tcandidate\tscore\telapsed_s"

func init() {
	Register(FormatText, writeText)
	Register(FormatTSV, writeTSV)
}

// writeText prints the score list and the elapsed time of one policy run:
//
//	sequential	[75.0, 50.0]
//	Total time to process (sequential, 1 worker): 0.00041s
func writeText(w io.Writer, r dispatch.Report, _, _ bool) error {
	if _, err := fmt.Fprintf(w, "%s\t%s\n", r.Policy, FormatScoreList(r.Values())); err != nil {
		return err
	}
	noun := "workers"
	if r.Workers == 1 {
		noun = "worker"
	}
	_, err := fmt.Fprintf(w, "Total time to process (%s, %d %s): %.5fs\n", r.Policy, r.Workers, noun, r.Elapsed.Seconds())
	return err
}

// writeTSV prints one row per score, in collection order.
func writeTSV(w io.Writer, r dispatch.Report, first, header bool) error {
	if first && header {
		if _, err := fmt.Fprintln(w, TSVHeader); err != nil {
			return err
		}
	}
	for rank, s := range r.Scores {
		if _, err := fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\t%s\t%.6f\n",
			r.Policy, r.Workers, rank, s.Index, s.Candidate, FormatScore(s.Value), r.Elapsed.Seconds(),
		); err != nil {
			return err
		}
	}
	return nil
}

// FormatScore renders a score with the shortest exact representation and
// always at least one decimal (75 → "75.0", 93.75 → "93.75").
func FormatScore(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".NI") {
		s += ".0"
	}
	return s
}

// FormatScoreList renders scores as "[a, b, c]".
func FormatScoreList(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = FormatScore(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
