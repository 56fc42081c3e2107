// Package writers turns dispatch reports into serialized outputs.
//
// Design:
//   - Writers own all presentation knowledge (score lists, TSV rows, JSON/JSONL).
//   - Dispatch stays domain-only and never imports this package.
//   - JSON/JSONL go through pkg/api (v1) for a stable wire format.
package writers
