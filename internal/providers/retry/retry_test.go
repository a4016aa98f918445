package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

func fastConfig(attempts int) Config {
	return Config{MaxAttempts: attempts, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, JitterRatio: 0.1}
}

func TestDo_RetriesTransientUntilSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(5), nil, "test", func(context.Context) error {
		calls++
		if calls < 3 {
			return NewStatusError(429, "rate limited", "gemini")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnNonTransient(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(5), nil, "test", func(context.Context) error {
		calls++
		return NewStatusError(400, "bad request", "gemini")
	})
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 400, se.Status)
	assert.Equal(t, 1, calls)
}

func TestDo_GivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(3), nil, "test", func(context.Context) error {
		calls++
		return NewStatusError(503, "unavailable", "gemini")
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_HonoursCancellationWhileWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := Config{MaxAttempts: 5, BaseDelay: time.Minute, MaxDelay: time.Minute}
	err := Do(ctx, cfg, nil, "test", func(context.Context) error {
		cancel()
		return NewStatusError(503, "unavailable", "gemini")
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestDelay_IsCapped(t *testing.T) {
	cfg := Config{BaseDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond}
	assert.Equal(t, 100*time.Millisecond, cfg.delay(1))
	assert.Equal(t, 200*time.Millisecond, cfg.delay(2))
	assert.Equal(t, 300*time.Millisecond, cfg.delay(6))
}

func TestStatusError_Message(t *testing.T) {
	assert.Equal(t, "gemini http 429: slow down", NewStatusError(429, "slow down", "gemini").Error())
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"429", NewStatusError(429, "", "gemini"), true},
		{"500", NewStatusError(500, "", "gemini"), true},
		{"wrapped 503", fmt.Errorf("send: %w", NewStatusError(503, "", "gemini")), true},
		{"400", NewStatusError(400, "", "gemini"), false},
		{"404", NewStatusError(404, "", "gemini"), false},
		{"googleapi 429", &googleapi.Error{Code: 429}, true},
		{"googleapi 403", &googleapi.Error{Code: 403}, false},
		{"network timeout", &net.DNSError{IsTimeout: true}, true},
		{"network non-timeout", &net.DNSError{}, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}
