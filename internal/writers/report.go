// internal/writers/report.go
package writers

import (
	"errors"
	"fmt"
	"io"
	"syscall"

	"parani/internal/dispatch"
)

// IsBrokenPipe reports whether an error is a broken pipe / closed pipe.
// Useful when downstream consumers (like `head`) close early.
func IsBrokenPipe(err error) bool {
	return err != nil && (errors.Is(err, syscall.EPIPE) || errors.Is(err, io.ErrClosedPipe))
}

// StartReportWriter spins up a writer goroutine for dispatch reports. Close
// the returned channel when done, then read the error channel once.
// json buffers every report into one array; the other formats stream.
func StartReportWriter(out io.Writer, format string, header bool, bufSize int) (chan<- dispatch.Report, <-chan error) {
	if format == FormatJSONL {
		return StartJSONLWriter(out, bufSize)
	}
	if bufSize <= 0 {
		bufSize = 8
	}
	in := make(chan dispatch.Report, bufSize)
	errCh := make(chan error, 1)

	go func() {
		var err error
		switch format {
		case FormatJSON:
			var buf []dispatch.Report
			for r := range in {
				buf = append(buf, r)
			}
			err = WriteJSON(out, buf)

		default:
			if _, ok := reportWriters[format]; !ok {
				err = fmt.Errorf("unsupported output %q", format)
			}
			first := true
			for r := range in {
				if err != nil {
					continue
				}
				err = WriteReport(format, out, r, first, header)
				first = false
			}
		}
		errCh <- err
	}()

	return in, errCh
}
