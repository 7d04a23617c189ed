package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	errs "imgharvest/pkg/errors"
	"imgharvest/pkg/logger"
)

func alwaysRetry(error) bool { return true }

func TestRetryWithSuccess(t *testing.T) {
	attempts := 0
	cfg := &Config{
		MaxAttempts: 5,
		Backoff:     &LinearBackoff{BaseDelay: 10 * time.Millisecond},
		RetryIf:     alwaysRetry,
	}

	err := Do(context.Background(), cfg, func(ctx context.Context, attempt int) error {
		attempts++
		if attempt != attempts {
			t.Errorf("attempt number %d does not match call count %d", attempt, attempts)
		}
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	})
	if err != nil {
		t.Errorf("Expected success after retries, got error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestRetryWithMaxAttemptsExceeded(t *testing.T) {
	attempts := 0
	persistent := errors.New("persistent error")
	tl := logger.NewTestLogger()
	cfg := &Config{
		MaxAttempts: 3,
		Backoff:     &LinearBackoff{BaseDelay: time.Millisecond},
		RetryIf:     alwaysRetry,
		Logger:      tl,
	}

	err := Do(context.Background(), cfg, func(context.Context, int) error {
		attempts++
		return persistent
	})
	if !errors.Is(err, ErrExhausted) || !errors.Is(err, persistent) {
		t.Errorf("Expected exhausted error wrapping the cause, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
	if got := len(tl.GetMessagesByLevel("WARN")); got != 3 {
		t.Errorf("Expected 2 retry warnings and 1 exhaustion warning, got %d", got)
	}
}

func TestRetryWithNonRetryableError(t *testing.T) {
	attempts := 0
	parseErr := errs.Parse(nil, "bad markup")

	err := Do(context.Background(), &Config{MaxAttempts: 5}, func(context.Context, int) error {
		attempts++
		return parseErr
	})
	if err != parseErr {
		t.Errorf("Expected parse error, got: %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts)
	}
}

func TestDefaultRetryIf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"transport", errs.Transport(503, nil, "unavailable"), true},
		{"wrapped transport", errors.Join(errors.New("ctx"), errs.Transport(0, nil, "refused")), true},
		{"automation", errs.Automation(nil, "no button"), false},
		{"canceled", context.Canceled, false},
		{"plain", errors.New("plain"), false},
	}
	for _, tt := range tests {
		if got := DefaultRetryIf(tt.err); got != tt.want {
			t.Errorf("%s: DefaultRetryIf = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestRetryWithContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	cfg := &Config{
		MaxAttempts: 5,
		Backoff:     &LinearBackoff{BaseDelay: time.Minute},
		RetryIf:     alwaysRetry,
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := Do(ctx, cfg, func(context.Context, int) error {
		attempts++
		return errors.New("error")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected cancellation error, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt before cancellation, got %d", attempts)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("cancellation did not interrupt the backoff wait")
	}
}

func TestOnRetryReceivesLinearDelays(t *testing.T) {
	var delays []time.Duration
	cfg := &Config{
		MaxAttempts: 3,
		Backoff:     Proportional(time.Millisecond),
		RetryIf:     alwaysRetry,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			delays = append(delays, delay)
		},
	}

	_ = Do(context.Background(), cfg, func(context.Context, int) error {
		return errors.New("fail")
	})

	if len(delays) != 2 || delays[0] != time.Millisecond || delays[1] != 2*time.Millisecond {
		t.Errorf("Expected delays [1ms 2ms], got %v", delays)
	}
}

func TestLinearBackoff(t *testing.T) {
	backoff := &LinearBackoff{
		BaseDelay: 100 * time.Millisecond,
		MaxDelay:  500 * time.Millisecond,
		Increment: 100 * time.Millisecond,
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 0},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{5, 500 * time.Millisecond},
		{6, 500 * time.Millisecond}, // capped
	}

	for _, test := range tests {
		if delay := backoff.NextDelay(test.attempt); delay != test.expected {
			t.Errorf("Attempt %d: expected %v, got %v", test.attempt, test.expected, delay)
		}
	}

	uncapped := Proportional(time.Second)
	if d := uncapped.NextDelay(10); d != 10*time.Second {
		t.Errorf("Expected uncapped 10s, got %v", d)
	}
}

func TestLinearBackoffJitterBounds(t *testing.T) {
	backoff := &LinearBackoff{BaseDelay: time.Second, JitterFactor: 0.5}
	for i := 0; i < 50; i++ {
		d := backoff.NextDelay(1)
		if d < 500*time.Millisecond || d > 1500*time.Millisecond {
			t.Fatalf("jittered delay %v outside [0.5s, 1.5s]", d)
		}
	}
}

func TestDoWithResult(t *testing.T) {
	cfg := &Config{
		MaxAttempts: 3,
		Backoff:     &LinearBackoff{BaseDelay: time.Millisecond},
		RetryIf:     alwaysRetry,
	}

	result, err := DoWithResult(context.Background(), cfg, func(_ context.Context, attempt int) (string, error) {
		if attempt < 2 {
			return "", errors.New("temporary error")
		}
		return "success", nil
	})
	if err != nil {
		t.Errorf("Expected success, got error: %v", err)
	}
	if result != "success" {
		t.Errorf("Expected 'success', got '%s'", result)
	}
}
