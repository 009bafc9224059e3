package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestNew(t *testing.T) {
	limiter := New(time.Second)
	if limiter.hosts == nil {
		t.Fatal("New() returned limiter with nil hosts map")
	}
	if limiter.minInterval != time.Second {
		t.Errorf("New() minInterval = %v, want %v", limiter.minInterval, time.Second)
	}
}

func TestAllow_FirstRequest(t *testing.T) {
	limiter := New(100 * time.Millisecond)

	if !limiter.Allow("example.com") {
		t.Error("Allow() should return true for first request to a host")
	}
}

func TestAllow_SecondRequestTooSoon(t *testing.T) {
	limiter := New(100 * time.Millisecond)

	limiter.Allow("example.com")
	if limiter.Allow("example.com") {
		t.Error("Allow() should return false for second request before minInterval")
	}
}

func TestAllow_SecondRequestAfterInterval(t *testing.T) {
	limiter := New(50 * time.Millisecond)

	limiter.Allow("example.com")
	time.Sleep(60 * time.Millisecond)

	if !limiter.Allow("example.com") {
		t.Error("Allow() should return true after minInterval has passed")
	}
}

func TestAllow_DifferentHosts(t *testing.T) {
	limiter := New(100 * time.Millisecond)

	limiter.Allow("example.com")
	if !limiter.Allow("other.com") {
		t.Error("Allow() should return true for different host")
	}
}

func TestAllow_ZeroIntervalNeverBlocks(t *testing.T) {
	limiter := New(0)
	for i := 0; i < 5; i++ {
		if !limiter.Allow("example.com") {
			t.Fatalf("Allow() #%d = false, want true with zero interval", i)
		}
	}
}

func TestWait_SecondRequestWaits(t *testing.T) {
	limiter := New(50 * time.Millisecond)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "example.com"); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	start := time.Now()
	if err := limiter.Wait(ctx, "example.com"); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("Wait() should wait for minInterval, elapsed: %v", elapsed)
	}
}

func TestWait_DifferentHostsNoWait(t *testing.T) {
	limiter := New(100 * time.Millisecond)
	ctx := context.Background()

	limiter.Wait(ctx, "example.com")
	start := time.Now()
	limiter.Wait(ctx, "other.com")

	if elapsed := time.Since(start); elapsed >= 50*time.Millisecond {
		t.Error("Wait() should not wait for different host")
	}
}

func TestWait_CancelledContext(t *testing.T) {
	limiter := New(time.Hour)
	limiter.Allow("example.com")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx, "example.com"); err == nil {
		t.Error("Wait() should return an error when the context cannot cover the delay")
	}
}

func TestResetAndResetAll(t *testing.T) {
	limiter := New(100 * time.Millisecond)

	limiter.Allow("example.com")
	limiter.Allow("other.com")

	limiter.Reset("example.com")
	if !limiter.Allow("example.com") {
		t.Error("Allow() should return true after Reset()")
	}
	if limiter.Allow("other.com") {
		t.Error("Reset() should not affect other hosts")
	}

	limiter.ResetAll()
	if !limiter.Allow("other.com") {
		t.Error("Allow() should return true after ResetAll()")
	}
}

func TestConcurrentAccess(t *testing.T) {
	limiter := New(10 * time.Millisecond)
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			host := "host" + string(rune('a'+idx)) + ".com"
			limiter.Wait(context.Background(), host)
			limiter.Allow("example.com")
			limiter.Reset("example.com")
		}(i)
	}

	wg.Wait()
}

func TestHostOf(t *testing.T) {
	tests := map[string]string{
		"https://Feeds.BBCI.co.uk/news/rss.xml": "feeds.bbci.co.uk",
		"http://example.com:8080/a":             "example.com",
		"newsapi.org":                           "newsapi.org",
	}
	for in, want := range tests {
		if got := HostOf(in); got != want {
			t.Errorf("HostOf(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRedisLimiter_FailsOpen(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	limiter := NewRedis(client, "test:", time.Minute)
	if !limiter.Allow("refresh") {
		t.Error("Allow() should fail open when redis is unreachable")
	}
}
