package resilience

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"
)

func newGroup() *FallbackGroup[string] {
	fg := NewFallbackGroup("primary", "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 2, ResetTimeout: time.Hour},
	})
	fg.AddFallback("secondary", "secondary")
	return fg
}

func TestFallbackGroup_PrimarySuccess(t *testing.T) {
	t.Parallel()
	fg := newGroup()

	var called []string
	err := fg.Execute(context.Background(), func(v string) error {
		called = append(called, v)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(called, []string{"primary"}) {
		t.Fatalf("called = %v, want [primary]", called)
	}
}

func TestFallbackGroup_Failover(t *testing.T) {
	t.Parallel()
	fg := newGroup()

	got, err := ExecuteWithResult(context.Background(), fg, func(v string) (string, error) {
		if v == "primary" {
			return "", errTest
		}
		return v + "-ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "secondary-ok" {
		t.Fatalf("got %q, want secondary-ok", got)
	}
}

func TestFallbackGroup_AllFail(t *testing.T) {
	t.Parallel()
	fg := newGroup()

	err := fg.Execute(context.Background(), func(string) error { return errTest })
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
	if !errors.Is(err, errTest) {
		t.Fatalf("err = %v, should wrap the last provider error", err)
	}
}

func TestFallbackGroup_SkipsOpenBreaker(t *testing.T) {
	t.Parallel()
	fg := newGroup()

	// Two failures open the primary's breaker.
	for range 2 {
		_ = fg.Execute(context.Background(), func(v string) error {
			if v == "primary" {
				return errTest
			}
			return nil
		})
	}

	var called []string
	err := fg.Execute(context.Background(), func(v string) error {
		called = append(called, v)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(called, []string{"secondary"}) {
		t.Fatalf("called = %v, want [secondary]", called)
	}
}

func TestFallbackGroup_StopsOnCancellation(t *testing.T) {
	t.Parallel()
	fg := newGroup()
	ctx, cancel := context.WithCancel(context.Background())

	var called []string
	err := fg.Execute(ctx, func(v string) error {
		called = append(called, v)
		cancel()
		return ctx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if errors.Is(err, ErrAllFailed) {
		t.Fatal("cancellation must not be reported as ErrAllFailed")
	}
	if !slices.Equal(called, []string{"primary"}) {
		t.Fatalf("called = %v, want [primary]", called)
	}
}

func TestFallbackGroup_AlreadyCancelled(t *testing.T) {
	t.Parallel()
	fg := newGroup()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := fg.Execute(ctx, func(string) error { called = true; return nil })
	if !errors.Is(err, context.Canceled) || called {
		t.Fatalf("err = %v, called = %v", err, called)
	}
}

func TestFallbackGroup_Names(t *testing.T) {
	t.Parallel()
	fg := newGroup()
	if got := fg.Names(); !slices.Equal(got, []string{"primary", "secondary"}) {
		t.Fatalf("Names() = %v", got)
	}
	if fg.Primary() != "primary" {
		t.Fatalf("Primary() = %q", fg.Primary())
	}
}
