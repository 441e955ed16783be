package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"medrag/internal/errdefs"
)

func stubSleep(t *testing.T) *int {
	t.Helper()
	calls := 0
	orig := sleepFunc
	sleepFunc = func(ctx context.Context, d time.Duration) error {
		calls++
		return nil
	}
	t.Cleanup(func() { sleepFunc = orig })
	return &calls
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	sleeps := stubSleep(t)

	calls := 0
	err := Do(context.Background(), 3, time.Second, func(ctx context.Context) error {
		calls++
		return nil
	})

	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if *sleeps != 0 {
		t.Errorf("expected no sleeps, got %d", *sleeps)
	}
}

func TestDo_RetriesTransient(t *testing.T) {
	sleeps := stubSleep(t)

	calls := 0
	err := Do(context.Background(), 3, time.Second, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errdefs.Transient("embed", fmt.Errorf("connection refused"))
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
	if *sleeps != 2 {
		t.Errorf("expected 2 sleeps, got %d", *sleeps)
	}
}

func TestDo_DoesNotRetryNonTransient(t *testing.T) {
	stubSleep(t)

	calls := 0
	permanent := errors.New("bad input")
	err := Do(context.Background(), 3, time.Second, func(ctx context.Context) error {
		calls++
		return permanent
	})

	if !errors.Is(err, permanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	stubSleep(t)

	calls := 0
	err := Do(context.Background(), 3, time.Second, func(ctx context.Context) error {
		calls++
		return errdefs.Transient("search", fmt.Errorf("timeout"))
	})

	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if !errdefs.IsTransient(err) {
		t.Errorf("expected transient error, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDo_StopsOnCancelledContext(t *testing.T) {
	orig := sleepFunc
	sleepFunc = func(ctx context.Context, d time.Duration) error {
		return context.Canceled
	}
	defer func() { sleepFunc = orig }()

	calls := 0
	err := Do(context.Background(), 5, time.Second, func(ctx context.Context) error {
		calls++
		return errdefs.Transient("search", fmt.Errorf("timeout"))
	})

	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call before cancelled sleep, got %d", calls)
	}
}
