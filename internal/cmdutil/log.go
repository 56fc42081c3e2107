// internal/cmdutil/log.go
package cmdutil

import (
	"io"

	"github.com/rs/zerolog"
)

// NewLogger returns a console logger on dst. quiet keeps warnings and errors
// only; debug adds per-task lines. quiet wins over debug.
func NewLogger(dst io.Writer, debug, quiet bool) zerolog.Logger {
	level := zerolog.InfoLevel
	switch {
	case quiet:
		level = zerolog.WarnLevel
	case debug:
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: dst, NoColor: true, TimeFormat: "15:04:05.000"}).
		Level(level).
		With().
		Timestamp().
		Logger()
}
