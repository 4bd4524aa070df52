// Package logging provides structured logging for the simulation engine
// using Go's standard library slog package. It supports multiple output
// formats, log levels, and sensitive-field redaction.
//
// Usage:
//
//	logger := logging.New(logging.Config{
//	    Level:  slog.LevelInfo,
//	    Format: logging.FormatJSON,
//	})
//
//	logger.Info("run starting", slog.Int("trials", 100))
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"
)

// Format specifies the log output format.
type Format string

const (
	// FormatJSON outputs structured JSON logs, ideal for production and log aggregation.
	FormatJSON Format = "json"

	// FormatText outputs human-readable text logs, ideal for development.
	FormatText Format = "text"
)

type contextKey string

const loggerKey contextKey = "refsim_logger"

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output. Defaults to slog.LevelInfo
	// if zero.
	Level slog.Level

	// Format specifies the output format (json or text). Defaults to
	// FormatJSON if empty.
	Format Format

	// Output is the destination for log output. Defaults to os.Stdout if
	// nil.
	Output io.Writer

	// AddSource includes source file and line number in log output.
	AddSource bool

	// TimeFormat specifies the time format for text output. Defaults to
	// time.RFC3339 if empty. Ignored for JSON format.
	TimeFormat string

	// AppName is included in every log entry.
	AppName string

	// Environment is included in every log entry (development, production,
	// test).
	Environment string
}

func (c *Config) applyDefaults() {
	if c.Format == "" {
		c.Format = FormatJSON
	}
	if c.Output == nil {
		c.Output = os.Stdout
	}
	if c.TimeFormat == "" {
		c.TimeFormat = time.RFC3339
	}
	if c.AppName == "" {
		c.AppName = "refsim"
	}
}

// New creates a new structured logger with the given configuration.
func New(cfg Config) *slog.Logger {
	cfg.applyDefaults()

	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if isSensitiveKey(a.Key) {
				return slog.String(a.Key, "[REDACTED]")
			}
			if a.Key == slog.TimeKey && cfg.Format == FormatText {
				if t, ok := a.Value.Any().(time.Time); ok {
					return slog.String(a.Key, t.Format(cfg.TimeFormat))
				}
			}
			return a
		},
	}

	var handler slog.Handler
	switch cfg.Format {
	case FormatText:
		handler = slog.NewTextHandler(cfg.Output, opts)
	default:
		handler = slog.NewJSONHandler(cfg.Output, opts)
	}

	if cfg.AppName != "" || cfg.Environment != "" {
		attrs := make([]slog.Attr, 0, 2)
		if cfg.AppName != "" {
			attrs = append(attrs, slog.String("app", cfg.AppName))
		}
		if cfg.Environment != "" {
			attrs = append(attrs, slog.String("env", cfg.Environment))
		}
		handler = handler.WithAttrs(attrs)
	}

	return slog.New(handler)
}

// NewFromEnv creates a logger configured from environment variables.
//
// Environment variables:
//   - REFSIM_LOG_LEVEL: debug, info, warn, error (default: info)
//   - REFSIM_LOG_FORMAT: json, text (default: json)
//   - REFSIM_LOG_SOURCE: true, false (default: false)
func NewFromEnv() *slog.Logger {
	return New(Config{
		Level:       parseLogLevel(os.Getenv("REFSIM_LOG_LEVEL")),
		Format:      parseLogFormat(os.Getenv("REFSIM_LOG_FORMAT")),
		AddSource:   parseBool(os.Getenv("REFSIM_LOG_SOURCE")),
		Environment: os.Getenv("REFSIM_APP_ENV"),
	})
}

// Default returns the default logger: production-ready JSON output.
func Default() *slog.Logger {
	return New(Config{Level: slog.LevelInfo, Format: FormatJSON})
}

// Development returns a development-friendly logger with text output and
// debug level.
func Development() *slog.Logger {
	return New(Config{Level: slog.LevelDebug, Format: FormatText, AddSource: true})
}

// NewContext returns a new context with the logger attached.
func NewContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext retrieves the logger from context, or the default logger if
// none is attached.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.Default()
}

// Error logs an error with the caller's file and line attached.
func Error(logger *slog.Logger, msg string, err error, attrs ...slog.Attr) {
	if logger == nil {
		logger = slog.Default()
	}

	_, file, line, ok := runtime.Caller(1)
	if ok {
		attrs = append(attrs,
			slog.String("error", err.Error()),
			slog.String("error_file", file),
			slog.Int("error_line", line),
		)
	} else {
		attrs = append(attrs, slog.String("error", err.Error()))
	}

	args := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		args = append(args, attr)
	}

	logger.Error(msg, args...)
}

// ErrorContext logs an error using the logger attached to ctx.
func ErrorContext(ctx context.Context, msg string, err error, attrs ...slog.Attr) {
	Error(FromContext(ctx), msg, err, attrs...)
}

var sensitiveKeys = map[string]bool{
	"password":      true,
	"passwd":        true,
	"secret":        true,
	"token":         true,
	"api_key":       true,
	"apikey":        true,
	"authorization": true,
	"auth":          true,
	"credential":    true,
	"private_key":   true,
	"access_token":  true,
	"refresh_token": true,
	"jwt":           true,
}

func isSensitiveKey(key string) bool {
	return sensitiveKeys[strings.ToLower(key)]
}

// AddSensitiveKey adds a key to the list of redacted field names.
func AddSensitiveKey(key string) {
	sensitiveKeys[strings.ToLower(key)] = true
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func parseLogFormat(format string) Format {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "text", "console":
		return FormatText
	default:
		return FormatJSON
	}
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on":
		return true
	default:
		return false
	}
}
