// pkg/api/report_v1.go
package api

// ScoreV1 is one candidate's score in the stable JSON/JSONL schema.
type ScoreV1 struct {
	Index     int     `json:"index"`
	Candidate string  `json:"candidate"`
	Score     float64 `json:"score"`
}

// ReportV1 is the stable JSON/JSONL schema for one dispatch policy run.
// Keep fields, names, and types stable. Add new fields only with ",omitempty".
type ReportV1 struct {
	RunID          string    `json:"run_id"`
	Policy         string    `json:"policy"`
	Workers        int       `json:"workers"`
	InputOrder     bool      `json:"input_order"`
	ElapsedSeconds float64   `json:"elapsed_s"`
	Scores         []ScoreV1 `json:"scores"`
}
