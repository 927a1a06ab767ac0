package logger

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// LogRequest logs a remote HTTP exchange at a level matching its status
func LogRequest(method, url string, statusCode int, duration time.Duration) {
	fields := map[string]interface{}{
		"method":      method,
		"url":         url,
		"status_code": statusCode,
		"duration_ms": duration.Milliseconds(),
	}

	switch {
	case statusCode >= 200 && statusCode < 300:
		GetLogger().DebugWithFields("HTTP request completed", fields)
	case statusCode >= 500 || statusCode == 0:
		GetLogger().ErrorWithFields("HTTP request server error", fields)
	default:
		GetLogger().WarnWithFields("HTTP request client error", fields)
	}
}

// LogUpload records the outcome of a single row sent to the remote store
func LogUpload(row int, timestamp time.Time, status string, detail string) {
	log := GetLogger().WithFields(map[string]interface{}{
		"row":       row,
		"timestamp": timestamp.UTC().Format(time.RFC3339),
		"status":    status,
	})

	switch status {
	case "inserted":
		log.Debug("Row inserted")
	case "skipped":
		log.Debug("Row already synced, skipping")
	default:
		log.WithField("detail", detail).Warn("Row rejected")
	}
}

// LogScrapeProgress logs how many posts a session has collected. A limit of
// zero or less means the session is unbounded.
func LogScrapeProgress(target string, collected, limit int) {
	fields := map[string]interface{}{
		"target":    target,
		"collected": collected,
	}
	if limit > 0 {
		fields["limit"] = limit
		fields["percentage"] = fmt.Sprintf("%.1f%%", float64(collected)/float64(limit)*100)
	} else {
		fields["limit"] = "unbounded"
	}
	GetLogger().WithFields(fields).Info("Scraping progress")
}

// LogComponentStart logs when a component starts
func LogComponentStart(component string, settings map[string]interface{}) {
	log := GetLogger().WithField("component", component)
	if len(settings) > 0 {
		log = log.WithFields(settings)
	}
	log.Info("Component started")
}

// LogComponentStop logs when a component stops
func LogComponentStop(component string, reason string) {
	GetLogger().WithFields(map[string]interface{}{
		"component": component,
		"reason":    reason,
	}).Info("Component stopped")
}

// NewNopLogger creates a logger that discards everything
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger                               { return nil }
