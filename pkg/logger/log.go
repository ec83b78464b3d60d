package logger

import (
	"io"
	"log"
	"time"

	"github.com/rs/zerolog"
)

// Log is the subset of *log.Logger used by the command line tools.
type Log interface {
	Print(v ...any)
	Printf(format string, v ...any)
	Println(v ...any)

	Fatal(v ...any)
	Fatalf(format string, v ...any)
	Fatalln(v ...any)
}

var _ Log = (*log.Logger)(nil)

// New creates a console logger writing to w at info level, or debug level
// when debug is set.
func New(w io.Writer, debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	out := zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    true,
		TimeFormat: time.TimeOnly,
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// Std adapts a zerolog logger to a Log, emitting each line at info level
// with the given prefix.
func Std(logger zerolog.Logger, prefix string) Log {
	return log.New(logger.Level(zerolog.InfoLevel), prefix, 0)
}
