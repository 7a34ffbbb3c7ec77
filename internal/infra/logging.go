package infra

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

// SetupLogging configures the global zerolog logger. format is "console",
// "json" or "auto"; auto uses the console writer only when stderr is a terminal.
func SetupLogging(level, format string) {
	SetupLoggingTo(os.Stderr, level, format, term.IsTerminal(int(os.Stderr.Fd())))
}

// SetupLoggingTo is SetupLogging with an explicit writer and terminal flag.
func SetupLoggingTo(w io.Writer, level, format string, isTerminal bool) {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(ParseLevel(level))

	useConsole := false
	switch strings.ToLower(format) {
	case "console", "text":
		useConsole = true
	case "json":
	default:
		useConsole = isTerminal
	}

	if useConsole {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen, NoColor: !isTerminal}).
			With().Timestamp().Logger()
		return
	}
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return lvl
}
