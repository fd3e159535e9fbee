package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

const (
	FormatJSON = "json"
	FormatText = "text"
)

// Setup installs the default slog logger. "json" writes machine-readable
// records to stdout; "text" writes colored records to stderr for local runs.
func Setup(format string, level slog.Level) {
	slog.SetDefault(slog.New(NewHandler(format, level, nil)))
}

// NewHandler builds the handler used by Setup. A nil w selects the default
// stream for the format.
func NewHandler(format string, level slog.Level, w io.Writer) slog.Handler {
	switch strings.ToLower(format) {
	case FormatText:
		if w == nil {
			w = os.Stderr
		}

		return tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
			AddSource:  true,
		})
	default:
		if w == nil {
			w = os.Stdout
		}

		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	}
}
