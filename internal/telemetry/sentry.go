package telemetry

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sh1zzle/activetime-project/internal"
)

type Config struct {
	DSN         string
	Environment string
	Release     string
}

// Init configures Sentry. An empty DSN leaves reporting disabled, and every
// capture call becomes a no-op.
func Init(cfg Config, logger internal.Logger) error {
	if cfg.DSN == "" {
		logger.Warn("Sentry DSN not configured - error tracking disabled")
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     cfg.Release,
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			if event.Request != nil && event.Request.Headers != nil {
				delete(event.Request.Headers, "Authorization")
				delete(event.Request.Headers, "Cookie")
			}
			return event
		},
	})
	if err != nil {
		return fmt.Errorf("sentry init: %w", err)
	}
	logger.Infof("Sentry initialized (environment=%s)", cfg.Environment)
	return nil
}

// CaptureException reports err with tags attached to a scope of its own.
func CaptureException(hub *sentry.Hub, err error, tags map[string]string) {
	if err == nil {
		return
	}
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		hub.CaptureException(err)
	})
}

// Flush waits for buffered events before the process exits.
func Flush(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}
