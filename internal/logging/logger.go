package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New builds the console logger used by every component and installs it as
// the zerolog global. Verbose lowers the level to debug, which is where
// per-call compositor failures are reported.
func New(app string, verbose bool) zerolog.Logger {
	return NewWithWriter(os.Stderr, app, verbose)
}

func NewWithWriter(w io.Writer, app string, verbose bool) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
	}
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(output).Level(level).With().Timestamp().Str("app", app).Logger()
	log.Logger = logger
	return logger
}
