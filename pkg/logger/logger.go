package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger wraps slog.Logger with additional functionality
type Logger struct {
	*slog.Logger
}

// New creates a new logger instance
func New() *Logger {
	return NewWithWriter(os.Stdout, os.Getenv("LOG_LEVEL"))
}

// NewWithWriter creates a logger writing to w at the given level
func NewWithWriter(w io.Writer, levelStr string) *Logger {
	level := getLogLevel(levelStr)

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	// Text handler for development (more readable), JSON for production
	var handler slog.Handler
	if gin.Mode() == gin.DebugMode {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// Discard returns a logger that drops everything, for tests
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// getLogLevel converts string to slog.Level
func getLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithSessionID adds filter session ID to logger context
func (l *Logger) WithSessionID(sessionID string) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("session_id", sessionID)),
	}
}

// HTTP logging methods

// LogHTTPRequest logs an HTTP request
func (l *Logger) LogHTTPRequest(c *gin.Context, duration time.Duration) {
	l.Logger.InfoContext(c.Request.Context(),
		"HTTP Request",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("query", c.Request.URL.RawQuery),
		slog.Int("status", c.Writer.Status()),
		slog.Duration("duration", duration),
		slog.String("ip", c.ClientIP()),
		slog.String("user_agent", c.Request.UserAgent()),
		slog.Int("size", c.Writer.Size()),
		slog.String("request_id", c.GetString("request_id")),
	)
}

// LogHTTPError logs an HTTP error
func (l *Logger) LogHTTPError(c *gin.Context, err error, statusCode int) {
	l.Logger.ErrorContext(c.Request.Context(),
		"HTTP Error",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.Int("status", statusCode),
		slog.String("error", err.Error()),
		slog.String("ip", c.ClientIP()),
	)
}

// Data source logging methods

// LogCatalogLoaded logs a successful catalog (re)load
func (l *Logger) LogCatalogLoaded(ctx context.Context, url string, packages, countries int, duration time.Duration) {
	l.Logger.InfoContext(ctx,
		"Catalog Loaded",
		slog.String("url", url),
		slog.Int("packages", packages),
		slog.Int("countries", countries),
		slog.Duration("duration", duration),
	)
}

// LogPricingLoaded logs a parsed price file
func (l *Logger) LogPricingLoaded(ctx context.Context, fileID string, terms, warnings int, lastUpdated string) {
	l.Logger.InfoContext(ctx,
		"Pricing Loaded",
		slog.String("file_id", fileID),
		slog.Int("terms", terms),
		slog.Int("warnings", warnings),
		slog.String("last_updated", lastUpdated),
	)
}

// LogLoadFailed logs a failed catalog or pricing load
func (l *Logger) LogLoadFailed(ctx context.Context, what, source string, err error) {
	l.Logger.ErrorContext(ctx,
		"Load Failed",
		slog.String("what", what),
		slog.String("source", source),
		slog.String("error", err.Error()),
	)
}

// LogProbe logs a data file existence probe
func (l *Logger) LogProbe(ctx context.Context, url string, exists bool, duration time.Duration) {
	l.Logger.DebugContext(ctx,
		"Existence Probe",
		slog.String("url", url),
		slog.Bool("exists", exists),
		slog.Duration("duration", duration),
	)
}

// LogStaleResultDropped logs an asynchronous result that arrived after its
// request had been superseded
func (l *Logger) LogStaleResultDropped(ctx context.Context, kind string, generation, current uint64) {
	l.Logger.DebugContext(ctx,
		"Stale Result Dropped",
		slog.String("kind", kind),
		slog.Uint64("generation", generation),
		slog.Uint64("current_generation", current),
	)
}

// LogSelectionChanged logs a filter transition
func (l *Logger) LogSelectionChanged(ctx context.Context, sessionID, level, value, fileID string) {
	l.Logger.InfoContext(ctx,
		"Selection Changed",
		slog.String("session_id", sessionID),
		slog.String("level", level),
		slog.String("value", value),
		slog.String("file_id", fileID),
	)
}

// Security logging methods

// LogRateLimitExceeded logs rate limit exceeded
func (l *Logger) LogRateLimitExceeded(ctx context.Context, ip, endpoint string) {
	l.Logger.WarnContext(ctx,
		"Rate Limit Exceeded",
		slog.String("ip", ip),
		slog.String("endpoint", endpoint),
	)
}

// Helper methods for common patterns

// InfoWithContext logs an info message with context
func (l *Logger) InfoWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	l.Logger.InfoContext(ctx, msg, args...)
}

// ErrorWithContext logs an error message with context
func (l *Logger) ErrorWithContext(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	args := make([]interface{}, 0, len(fields)*2+2)
	args = append(args, slog.String("error", err.Error()))
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	l.Logger.ErrorContext(ctx, msg, args...)
}

// WarnWithContext logs a warning message with context
func (l *Logger) WarnWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	l.Logger.WarnContext(ctx, msg, args...)
}

// Global logger instance (can be replaced with dependency injection)
var defaultLogger = New()

// GetDefault returns the default logger instance
func GetDefault() *Logger {
	return defaultLogger
}

// SetDefault sets the default logger instance
func SetDefault(logger *Logger) {
	defaultLogger = logger
}
