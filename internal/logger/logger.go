package logger

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// Setup builds a logger writing to out.
//   - level: trace, debug, info, warn, error, fatal, panic (default info)
//   - format: "json" for machines, "pretty" for a console
func Setup(level, format string, out io.Writer) zerolog.Logger {
	writer := out
	if format == "pretty" {
		writer = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	return zerolog.New(writer).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}
