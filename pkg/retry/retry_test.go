package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig(attempts int) Config {
	return Config{MaxAttempts: attempts, InitialWait: time.Millisecond, MaxWait: time.Millisecond, Multiplier: 2}
}

func TestDo_RetriesRetryable(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(3), func() error {
		calls++
		if calls < 3 {
			return Retryable(errors.New("connection reset"))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDo_StopsOnPermanentError(t *testing.T) {
	calls := 0
	permanent := errors.New("cannot get token")
	err := Do(context.Background(), fastConfig(5), func() error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected exactly 1 call, got %d", calls)
	}
}

func TestDo_SingleAttemptNeverRetries(t *testing.T) {
	calls := 0
	var retried bool
	cfg := fastConfig(1)
	cfg.OnRetry = func(int, error, time.Duration) { retried = true }

	err := Do(context.Background(), cfg, func() error {
		calls++
		return Retryable(errors.New("timeout"))
	})
	if err == nil || !IsRetryable(err) {
		t.Fatalf("expected the retryable error back, got %v", err)
	}
	if calls != 1 || retried {
		t.Errorf("expected one call and no retry hook, got calls=%d retried=%v", calls, retried)
	}
}

func TestDoWithResult_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := DoWithResult(ctx, fastConfig(3), func() (int, error) {
		return 0, Retryable(errors.New("boom"))
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestDefaultConfig_ClampsAttempts(t *testing.T) {
	if got := DefaultConfig(0).MaxAttempts; got != 1 {
		t.Errorf("expected 1 attempt, got %d", got)
	}
}
