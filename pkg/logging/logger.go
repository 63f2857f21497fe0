// Package logging provides structured logging for lotwatch using zerolog.
// Console output is used when attached to a terminal, structured JSON
// otherwise; both can be forced through configuration.
//
// Example usage:
//
//	log := logging.Default()
//	log.Info().Str("vin", vin).Msg("Added new vehicle")
//
//	ctx := logging.WithLogger(context.Background(), log)
//	logging.Ctx(ctx).Debug().Msg("Using logger from context")
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Nop is a logger that discards all output.
var Nop = zerolog.Nop()

// defaultLogger is the global logger instance.
var defaultLogger zerolog.Logger

func init() {
	defaultLogger = newLogger(DefaultConfig())
}

// Config holds logger configuration.
type Config struct {
	// Level is the minimum level to output (trace..panic).
	Level string

	// Format is "console", "json", or "auto" (console on a terminal).
	Format string

	// Output is where to write: "stderr", "stdout", or "discard".
	Output string

	// NoColor disables color in console mode.
	NoColor bool
}

// DefaultConfig returns a configuration with sensible defaults,
// honoring LOG_LEVEL and LOG_FORMAT from the environment.
func DefaultConfig() Config {
	return Config{
		Level:   envOrDefault("LOG_LEVEL", "info"),
		Format:  envOrDefault("LOG_FORMAT", "auto"),
		Output:  "stderr",
		NoColor: os.Getenv("NO_COLOR") != "",
	}
}

// Configure rebuilds the default logger from the given configuration.
func Configure(cfg Config) {
	SetDefault(newLogger(cfg))
}

// Default returns the default global logger.
func Default() *zerolog.Logger {
	return &defaultLogger
}

// SetDefault sets the default global logger.
func SetDefault(logger zerolog.Logger) {
	defaultLogger = logger
	log.Logger = logger // keep zerolog's global in step
}

// New creates a new logger with the given writer.
func New(w io.Writer) zerolog.Logger {
	return zerolog.New(w).
		Level(zerolog.GlobalLevel()).
		With().
		Timestamp().
		Logger()
}

func newLogger(cfg Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var out io.Writer
	switch strings.ToLower(cfg.Output) {
	case "stdout":
		out = os.Stdout
	case "discard", "none":
		out = io.Discard
	default:
		out = os.Stderr
	}

	format := strings.ToLower(cfg.Format)
	if format == "auto" || format == "" {
		if isatty() {
			format = "console"
		} else {
			format = "json"
		}
	}
	if format == "console" {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.Kitchen,
			NoColor:    cfg.NoColor,
		}
	}

	logger := zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Logger()

	if level <= zerolog.DebugLevel {
		logger = logger.With().Caller().Logger()
	}

	return logger
}

// isatty checks if stderr is a terminal.
func isatty() bool {
	if fileInfo, _ := os.Stderr.Stat(); (fileInfo.Mode() & os.ModeCharDevice) != 0 {
		return true
	}
	return false
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
