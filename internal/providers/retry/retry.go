package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"net"
	"net/http"
	"time"

	"google.golang.org/api/googleapi"
)

// Config controls exponential backoff between attempts of a single remote call.
type Config struct {
	MaxAttempts int           `koanf:"max_attempts"`
	BaseDelay   time.Duration `koanf:"base_delay"`
	MaxDelay    time.Duration `koanf:"max_delay"`
	JitterRatio float64       `koanf:"jitter_ratio"`
}

func DefaultConfig() Config {
	return Config{
		MaxAttempts: 4,
		BaseDelay:   250 * time.Millisecond,
		MaxDelay:    4 * time.Second,
		JitterRatio: 0.25,
	}
}

func (c Config) delay(attempt int) time.Duration {
	d := time.Duration(float64(c.BaseDelay) * math.Pow(2, float64(attempt-1)))
	if d > c.MaxDelay {
		d = c.MaxDelay
	}
	return d + time.Duration(rand.Float64()*c.JitterRatio*float64(d))
}

// Do runs fn until it succeeds, returns a non-transient error, or MaxAttempts is
// reached. The error of the last attempt is returned unchanged.
func Do(ctx context.Context, cfg Config, logger *slog.Logger, op string, fn func(ctx context.Context) error) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !IsTransient(err) || attempt >= cfg.MaxAttempts {
			return err
		}
		wait := cfg.delay(attempt)
		if logger != nil {
			logger.Debug("retrying remote call",
				slog.String("op", op),
				slog.Int("attempt", attempt),
				slog.Duration("backoff", wait),
				slog.String("error", err.Error()),
			)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// StatusError is a non-2xx answer from a model endpoint.
type StatusError struct {
	Status   int
	Body     string
	Provider string
}

func NewStatusError(status int, body, provider string) *StatusError {
	return &StatusError{Status: status, Body: body, Provider: provider}
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s http %d: %s", e.Provider, e.Status, e.Body)
}

// IsTransient reports whether err is worth another attempt: rate limiting, server
// errors and network timeouts.
func IsTransient(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return retryableStatus(se.Status)
	}
	var ge *googleapi.Error
	if errors.As(err, &ge) {
		return retryableStatus(ge.Code)
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
