package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errTestError = errors.New("test error")

func fastConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestDo_SuccessOnFirstAttempt(t *testing.T) {
	attempts := 0
	got, err := Do(context.Background(), fastConfig(), func(context.Context) (int, error) {
		attempts++
		return 42, nil
	})

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if got != 42 {
		t.Errorf("Expected 42, got: %d", got)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got: %d", attempts)
	}
}

func TestDo_SuccessAfterRetries(t *testing.T) {
	attempts := 0
	_, err := Do(context.Background(), fastConfig(), func(context.Context) (struct{}, error) {
		attempts++
		if attempts < 3 {
			return struct{}{}, errTestError
		}
		return struct{}{}, nil
	})

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got: %d", attempts)
	}
}

func TestDo_MaxAttemptsExceeded(t *testing.T) {
	attempts := 0
	_, err := Do(context.Background(), fastConfig(), func(context.Context) (int, error) {
		attempts++
		return 0, errTestError
	})

	if !errors.Is(err, errTestError) {
		t.Fatalf("Expected wrapped test error, got: %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got: %d", attempts)
	}
}

func TestDo_PermanentErrorStopsImmediately(t *testing.T) {
	attempts := 0
	_, err := Do(context.Background(), fastConfig(), func(context.Context) (int, error) {
		attempts++
		return 0, Permanent(errTestError)
	})

	if err != errTestError {
		t.Fatalf("Expected the unwrapped error, got: %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got: %d", attempts)
	}
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fastConfig()
	cfg.InitialDelay = time.Second

	attempts := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := Do(ctx, cfg, func(context.Context) (int, error) {
		attempts++
		return 0, errTestError
	})

	if err == nil {
		t.Fatal("Expected error on cancellation")
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt before cancel, got: %d", attempts)
	}
}

func TestPermanent(t *testing.T) {
	if Permanent(nil) != nil {
		t.Error("Expected nil for nil error")
	}
	if !IsPermanent(Permanent(errTestError)) {
		t.Error("Expected permanent error to be detected")
	}
	if IsPermanent(errTestError) {
		t.Error("Expected plain error not to be permanent")
	}
}

func TestDelay(t *testing.T) {
	cfg := Config{InitialDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond, Multiplier: 2}

	if d := Delay(cfg, 0); d != 100*time.Millisecond {
		t.Errorf("Expected 100ms, got: %v", d)
	}
	if d := Delay(cfg, 1); d != 200*time.Millisecond {
		t.Errorf("Expected 200ms, got: %v", d)
	}
	if d := Delay(cfg, 5); d != 300*time.Millisecond {
		t.Errorf("Expected cap of 300ms, got: %v", d)
	}

	cfg.Jitter = true
	for i := 0; i < 20; i++ {
		d := Delay(cfg, 0)
		if d < 75*time.Millisecond || d > 125*time.Millisecond {
			t.Fatalf("Jittered delay out of range: %v", d)
		}
	}
}
