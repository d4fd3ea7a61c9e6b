package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup builds the process logger and installs it as the zerolog global so
// packages can log through github.com/rs/zerolog/log.
func Setup(level, format, service string) zerolog.Logger {
	return setup(os.Stdout, level, format, service)
}

func setup(out io.Writer, level, format, service string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339

	if format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	l := zerolog.New(out).With().Timestamp().Str("service", service).Logger()
	log.Logger = l
	return l
}
