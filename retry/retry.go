// Package retry bietet begrenzte Wiederholungen mit randomisiertem
// exponentiellen Backoff.
package retry

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// Config hält die Retry-Parameter.
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultConfig liefert die Standard-Parameter (5 Versuche, 1s..60s).
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 5,
		BaseDelay:   1 * time.Second,
		MaxDelay:    60 * time.Second,
	}
}

// ExhaustedError wird zurückgegeben, wenn alle Versuche fehlgeschlagen sind.
// Der letzte Fehler bleibt über Unwrap erreichbar.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("operation failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// WithBackoff führt operation aus und wiederholt bei jedem Fehler mit
// exponentiell wachsender, zufällig gestreuter Wartezeit.
func WithBackoff(ctx context.Context, cfg Config, operation func(context.Context) error) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		lastErr = operation(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == cfg.MaxAttempts-1 {
			break
		}

		// Exponentieller Backoff mit Jitter, gedeckelt auf MaxDelay.
		delay := cfg.BaseDelay * time.Duration(1<<attempt)
		if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
		delay += time.Duration(rand.Int63n(int64(cfg.BaseDelay)))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return &ExhaustedError{Attempts: cfg.MaxAttempts, Last: lastErr}
}
