// internal/writers/registry.go
package writers

import (
	"fmt"
	"io"
	"sort"

	"parani/internal/dispatch"
)

// Output formats.
const (
	FormatText  = "text"
	FormatTSV   = "tsv"
	FormatJSON  = "json"
	FormatJSONL = "jsonl"
)

// ReportFunc writes one report. first is true for the first report of a run.
type ReportFunc func(w io.Writer, r dispatch.Report, first, header bool) error

// Streaming report writers (format → handler), registered in init() blocks.
var reportWriters = map[string]ReportFunc{}

// Register adds or replaces (last wins) the streaming writer for format.
func Register(format string, fn ReportFunc) { reportWriters[format] = fn }

// Formats lists every supported output format, sorted.
func Formats() []string {
	out := []string{FormatJSON, FormatJSONL}
	for f := range reportWriters {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// WriteReport dispatches to the streaming writer registered for format.
func WriteReport(format string, w io.Writer, r dispatch.Report, first, header bool) error {
	fn, ok := reportWriters[format]
	if !ok {
		return fmt.Errorf("unknown report format %q (no writer registered)", format)
	}
	return fn(w, r, first, header)
}
