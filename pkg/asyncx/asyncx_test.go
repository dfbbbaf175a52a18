package asyncx_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Abraxas-365/tidal/pkg/asyncx"
)

func TestFuture_AwaitCachesResult(t *testing.T) {
	var calls atomic.Int32
	f := asyncx.Run(func() (int, error) {
		calls.Add(1)
		return 7, nil
	})

	for range 3 {
		v, err := f.Await()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v != 7 {
			t.Fatalf("unexpected value %d", v)
		}
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("expected one execution, got %d", n)
	}
}

func TestDoCtx(t *testing.T) {
	ran := make(chan struct{})
	asyncx.DoCtx(context.Background(), func(ctx context.Context) {
		close(ran)
	})
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("fn never ran with a live context")
	}

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	var fired atomic.Bool
	asyncx.DoCtx(cancelled, func(ctx context.Context) {
		fired.Store(true)
	})
	time.Sleep(20 * time.Millisecond)
	if fired.Load() {
		t.Fatal("fn must not run when the context is already done")
	}
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	var calls atomic.Int32
	v, err := asyncx.Retry(context.Background(), 3, func(ctx context.Context) (string, error) {
		if calls.Add(1) < 3 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "ok" || calls.Load() != 3 {
		t.Fatalf("expected success on attempt 3, got %q after %d calls", v, calls.Load())
	}
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	var calls atomic.Int32
	_, err := asyncx.Retry(context.Background(), 2, func(ctx context.Context) (string, error) {
		calls.Add(1)
		return "", errors.New("still down")
	})
	if err == nil {
		t.Fatal("expected the last error")
	}
	if n := calls.Load(); n != 2 {
		t.Fatalf("expected exactly 2 attempts, got %d", n)
	}
}

func TestRetry_RespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := asyncx.Retry(ctx, 3, func(ctx context.Context) (int, error) {
		t.Fatal("fn must not run with a cancelled context")
		return 0, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestWithTimeout_Completes(t *testing.T) {
	v, err := asyncx.WithTimeout(context.Background(), time.Second, func(ctx context.Context) (int, error) {
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 42 {
		t.Fatalf("unexpected value %d", v)
	}
}

func TestWithTimeout_Expires(t *testing.T) {
	_, err := asyncx.WithTimeout(context.Background(), 10*time.Millisecond, func(ctx context.Context) (int, error) {
		select {
		case <-ctx.Done():
		case <-time.After(2 * time.Second):
		}
		return 0, ctx.Err()
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
