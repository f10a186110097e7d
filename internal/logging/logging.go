// Package logging builds the single zerolog.Logger instance each binary
// owns and threads explicitly; there is no package-level logger.
package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New builds a logger for component (e.g. "scheduler", "worker", "api") at
// the given level. Unparseable levels fall back to info. pretty selects a
// human-readable console writer for local development; false emits plain
// JSON, suited to production log collection.
func New(component, level string, pretty bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	var writer = os.Stdout
	logger := zerolog.New(writer).Level(lvl).With().Timestamp().Str("component", component).Logger()
	if pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: writer, TimeFormat: time.RFC3339}).
			Level(lvl).With().Timestamp().Str("component", component).Logger()
	}
	return logger
}
