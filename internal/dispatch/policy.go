package dispatch

import (
	"fmt"
	"strings"
)

// Policy selects how candidates are dispatched and collected.
type Policy string

const (
	// Sequential scores candidates one at a time on the calling goroutine.
	Sequential Policy = "sequential"
	// Ordered streams pool results lazily in input order.
	Ordered Policy = "imap"
	// Unordered streams pool results lazily in completion order.
	Unordered Policy = "imap_unordered"
	// Bulk submits everything and blocks for all results.
	Bulk Policy = "map"
	// BulkAsync submits everything, returns a handle, then blocks on Get.
	BulkAsync Policy = "map_async"
)

// AllPolicies lists every policy in the order the CLI runs them by default.
func AllPolicies() []Policy {
	return []Policy{Sequential, Ordered, Unordered, Bulk, BulkAsync}
}

// ParsePolicy accepts a policy name, case-insensitively. "ordered",
// "unordered" and "async" are accepted as aliases.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sequential", "serial":
		return Sequential, nil
	case "imap", "ordered":
		return Ordered, nil
	case "imap_unordered", "unordered":
		return Unordered, nil
	case "map", "bulk":
		return Bulk, nil
	case "map_async", "async":
		return BulkAsync, nil
	}
	return "", fmt.Errorf("unknown policy %q (want sequential|imap|imap_unordered|map|map_async)", s)
}

// Parallel reports whether the policy runs on a worker pool.
func (p Policy) Parallel() bool { return p != Sequential }

// InputOrder reports whether the policy yields scores in input order.
func (p Policy) InputOrder() bool { return p != Unordered }

func (p Policy) valid() bool {
	switch p {
	case Sequential, Ordered, Unordered, Bulk, BulkAsync:
		return true
	}
	return false
}
