package logger

import (
	"io"

	"github.com/rs/zerolog"
)

// NewTestLogger returns a Logger that discards everything.
func NewTestLogger() Logger {
	return Logger{Logger: zerolog.Nop()}
}

// NewBufferedTestLogger returns a JSON Logger at debug level writing to w.
func NewBufferedTestLogger(w io.Writer) Logger {
	return Logger{Logger: zerolog.New(w).Level(zerolog.DebugLevel)}
}
