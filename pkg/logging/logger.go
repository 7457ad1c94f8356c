// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// serviceName is stamped onto every log line so aggregated logs stay
// attributable when several partner services share a sink.
const serviceName = "etg-client"

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// FromEnv builds a Config from LOG_LEVEL and LOG_PRETTY, falling back to
// the defaults for anything unset.
func FromEnv() Config {
	cfg := DefaultConfig()
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Level = LogLevel(level)
	}
	cfg.Pretty = os.Getenv("LOG_PRETTY") == "true"
	return cfg
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	// Set global log level
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	// Configure output
	var output io.Writer = cfg.Output
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: cfg.Output}
	}

	// Create logger with timestamp and service tag
	logger := zerolog.New(output).With().Timestamp().Str("service", serviceName).Logger()

	// Set as global logger
	log.Logger = logger

	return logger
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Cache operations (hit/miss/expired, key, TTL)
//   - Rate limit decisions (remaining slots, computed wait)
//   - Request flow (endpoint, body size)
//
// Info: Normal operation events
//   - Successful vendor requests
//   - Prebook and finish submissions, booking confirmations
//   - Server startup/shutdown
//
// Warn: Warning conditions that don't prevent operation
//   - Rate limit waits (throttling active)
//   - Booking status poll failures (will retry)
//   - Cache errors (fallback to direct fetch)
//   - Static enrichment failures (degraded result returned)
//
// Error: Error conditions requiring attention
//   - Failed vendor requests
//   - Failed bookings
//   - Redis unavailability
//   - Configuration errors
//
// Context Fields:
//   - endpoint: ETG endpoint path
//   - status_code: HTTP status code
//   - duration: Request duration
//   - category: Error category (validation, rate_limit_exceeded, network, ...)
//   - hotel_id: Vendor hotel identifier
//   - order_id: Vendor order identifier
//   - book_hash / match_hash: Rate identifiers through the booking flow
//   - ttl: Cache entry TTL
