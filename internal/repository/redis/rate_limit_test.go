package redis

import (
	"context"
	"testing"
	"time"
)

func TestRateLimitRepository_RecordAndCount(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewRateLimitRepository(client, SlidingWindowConfig{
		KeyPrefix: "rate",
		TTL:       2 * time.Minute,
	})

	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		if err := repo.RecordAttempt(ctx, "login:203.0.113.9", now.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("RecordAttempt returned error: %v", err)
		}
	}

	count, err := repo.CountAttempts(ctx, "login:203.0.113.9", time.Minute, now.Add(3*time.Second))
	if err != nil {
		t.Fatalf("CountAttempts returned error: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected three attempts, got %d", count)
	}

	remaining := server.TTL("rate:login:203.0.113.9")
	if remaining <= 0 || remaining > 2*time.Minute {
		t.Fatalf("expected ttl within (0, 2m], got %v", remaining)
	}
}

func TestRateLimitRepository_CountExcludesOutsideWindow(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewRateLimitRepository(client, SlidingWindowConfig{KeyPrefix: "rate"})

	ctx := context.Background()
	now := time.Now().UTC()

	if err := repo.RecordAttempt(ctx, "otp:driver", now.Add(-2*time.Minute)); err != nil {
		t.Fatalf("RecordAttempt returned error: %v", err)
	}
	if err := repo.RecordAttempt(ctx, "otp:driver", now.Add(-10*time.Second)); err != nil {
		t.Fatalf("RecordAttempt returned error: %v", err)
	}

	count, err := repo.CountAttempts(ctx, "otp:driver", time.Minute, now)
	if err != nil {
		t.Fatalf("CountAttempts returned error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one attempt in window, got %d", count)
	}
}

func TestRateLimitRepository_TrimWindow(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewRateLimitRepository(client, SlidingWindowConfig{KeyPrefix: "rate"})

	ctx := context.Background()
	now := time.Now().UTC()

	if err := repo.RecordAttempt(ctx, "reset:driver", now.Add(-5*time.Minute)); err != nil {
		t.Fatalf("RecordAttempt returned error: %v", err)
	}
	if err := repo.RecordAttempt(ctx, "reset:driver", now); err != nil {
		t.Fatalf("RecordAttempt returned error: %v", err)
	}

	if err := repo.TrimWindow(ctx, "reset:driver", time.Minute, now); err != nil {
		t.Fatalf("TrimWindow returned error: %v", err)
	}

	count, err := repo.CountAttempts(ctx, "reset:driver", 10*time.Minute, now)
	if err != nil {
		t.Fatalf("CountAttempts returned error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected trimmed set to keep one attempt, got %d", count)
	}
}

func TestRateLimitRepository_OldestAttempt(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewRateLimitRepository(client, SlidingWindowConfig{KeyPrefix: "rate"})

	ctx := context.Background()
	now := time.Now().UTC()
	first := now.Add(-30 * time.Second)

	if err := repo.RecordAttempt(ctx, "login:driver", first); err != nil {
		t.Fatalf("RecordAttempt returned error: %v", err)
	}
	if err := repo.RecordAttempt(ctx, "login:driver", now); err != nil {
		t.Fatalf("RecordAttempt returned error: %v", err)
	}

	oldest, found, err := repo.OldestAttempt(ctx, "login:driver", time.Minute, now)
	if err != nil {
		t.Fatalf("OldestAttempt returned error: %v", err)
	}
	if !found {
		t.Fatalf("expected an attempt inside the window")
	}
	if !oldest.Equal(time.Unix(0, first.UnixNano())) {
		t.Fatalf("expected oldest %v, got %v", first, oldest)
	}

	_, found, err = repo.OldestAttempt(ctx, "login:nobody", time.Minute, now)
	if err != nil {
		t.Fatalf("OldestAttempt returned error: %v", err)
	}
	if found {
		t.Fatalf("expected no attempts for unknown identifier")
	}
}

func TestRateLimitRepository_RejectsNonPositiveWindow(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewRateLimitRepository(client, SlidingWindowConfig{KeyPrefix: "rate"})

	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := repo.CountAttempts(ctx, "x", 0, now); err == nil {
		t.Fatalf("expected error for non-positive window in CountAttempts")
	}
	if err := repo.TrimWindow(ctx, "x", 0, now); err == nil {
		t.Fatalf("expected error for non-positive window in TrimWindow")
	}
	if _, _, err := repo.OldestAttempt(ctx, "x", 0, now); err == nil {
		t.Fatalf("expected error for non-positive window in OldestAttempt")
	}
}
