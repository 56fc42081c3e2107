// internal/writers/json.go
package writers

import (
	"io"

	"github.com/goccy/go-json"

	"parani/internal/dispatch"
	"parani/internal/jsonlutil"
	"parani/pkg/api"
)

// ToAPIReport converts a dispatch Report to the stable wire schema (v1).
func ToAPIReport(r dispatch.Report) api.ReportV1 {
	v := api.ReportV1{
		RunID:          r.RunID,
		Policy:         string(r.Policy),
		Workers:        r.Workers,
		InputOrder:     r.Policy.InputOrder(),
		ElapsedSeconds: r.Elapsed.Seconds(),
		Scores:         make([]api.ScoreV1, 0, len(r.Scores)),
	}
	for _, s := range r.Scores {
		v.Scores = append(v.Scores, api.ScoreV1{Index: s.Index, Candidate: s.Candidate, Score: s.Value})
	}
	return v
}

// WriteJSON writes a single JSON array of v1 reports (pretty-indented).
func WriteJSON(w io.Writer, list []dispatch.Report) error {
	out := make([]api.ReportV1, 0, len(list))
	for _, r := range list {
		out = append(out, ToAPIReport(r))
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// StartJSONLWriter streams each report as one JSON line (v1).
func StartJSONLWriter(out io.Writer, bufSize int) (chan<- dispatch.Report, <-chan error) {
	return jsonlutil.Start[dispatch.Report](out, bufSize,
		func(enc *json.Encoder, r dispatch.Report) error {
			return enc.Encode(ToAPIReport(r))
		},
		IsBrokenPipe,
	)
}
