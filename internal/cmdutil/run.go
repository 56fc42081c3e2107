package cmdutil

import (
	"context"

	"parani/internal/dispatch"
)

// RunPolicies runs each policy in order and streams every report via send,
// including the report of a failing run. It returns the number of reports
// sent and the first error encountered.
func RunPolicies(
	ctx context.Context,
	d *dispatch.Dispatcher,
	policies []dispatch.Policy,
	send func(dispatch.Report) error,
) (int, error) {
	total := 0
	for _, p := range policies {
		rep, runErr := d.Run(ctx, p)
		if err := send(rep); err != nil {
			return total, err
		}
		total++
		if runErr != nil {
			return total, runErr
		}
	}
	return total, nil
}
