// Package logx holds the zerolog logger shared by the obix client, the
// simulator and obixctl. Output is human readable and colored only when it
// goes to a terminal. The initial level comes from LOG_LEVEL.
package logx

import (
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// Log is replaced by Configure and ConfigureOutput. Take child loggers with
// Component rather than holding on to it across reconfiguration.
var Log = zerolog.New(os.Stderr).With().Timestamp().Logger()

var levels = map[string]zerolog.Level{
	"all":      zerolog.TraceLevel,
	"trace":    zerolog.TraceLevel,
	"debug":    zerolog.DebugLevel,
	"info":     zerolog.InfoLevel,
	"warn":     zerolog.WarnLevel,
	"warning":  zerolog.WarnLevel,
	"error":    zerolog.ErrorLevel,
	"fatal":    zerolog.FatalLevel,
	"none":     zerolog.Disabled,
	"off":      zerolog.Disabled,
	"disabled": zerolog.Disabled,
}

// Configure applies level globally and sends Log to stderr.
func Configure(level string) {
	ConfigureOutput(level, os.Stderr)
}

// ConfigureOutput applies level globally and sends Log to w.
func ConfigureOutput(level string, w io.Writer) {
	zerolog.SetGlobalLevel(parseLevel(level))
	Log = zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: !isTerminal(w)}).
		With().Timestamp().Logger()
}

// Component returns a child of Log tagged with the given component name.
func Component(name string) zerolog.Logger {
	return Log.With().Str("component", name).Logger()
}

// parseLevel is case and space insensitive. Unknown names mean info.
func parseLevel(level string) zerolog.Level {
	if l, ok := levels[strings.ToLower(strings.TrimSpace(level))]; ok {
		return l
	}
	return zerolog.InfoLevel
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	return ok && isatty.IsTerminal(f.Fd())
}

func init() {
	Configure(os.Getenv("LOG_LEVEL"))
}
