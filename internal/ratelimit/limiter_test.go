package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestAllow_FirstTrigger(t *testing.T) {
	limiter := New(100 * time.Millisecond)

	if !limiter.Allow("user-1") {
		t.Error("first trigger for a user should be allowed")
	}
}

func TestAllow_SecondTriggerInsideCooldown(t *testing.T) {
	limiter := New(100 * time.Millisecond)

	limiter.Allow("user-1")
	if limiter.Allow("user-1") {
		t.Error("second trigger inside the cooldown should be denied")
	}
}

func TestAllow_AfterCooldown(t *testing.T) {
	limiter := New(50 * time.Millisecond)

	limiter.Allow("user-1")
	time.Sleep(60 * time.Millisecond)

	if !limiter.Allow("user-1") {
		t.Error("trigger after the cooldown should be allowed")
	}
}

func TestAllow_UsersIndependent(t *testing.T) {
	limiter := New(100 * time.Millisecond)

	limiter.Allow("user-1")
	if !limiter.Allow("user-2") {
		t.Error("one user's cooldown must not throttle another")
	}
}

func TestAllow_DeniedTriggerKeepsWindow(t *testing.T) {
	limiter := New(50 * time.Millisecond)

	limiter.Allow("user-1")
	time.Sleep(30 * time.Millisecond)
	limiter.Allow("user-1") // denied, must not restart the cooldown

	time.Sleep(30 * time.Millisecond) // 60ms since the permitted trigger

	if !limiter.Allow("user-1") {
		t.Error("denied trigger must not push the window forward")
	}
}

func TestAllow_ZeroInterval(t *testing.T) {
	limiter := New(0)

	for i := 0; i < 10; i++ {
		if !limiter.Allow("user-1") {
			t.Fatalf("zero interval should always allow, denied at trigger %d", i)
		}
	}
}

func TestReset(t *testing.T) {
	limiter := New(100 * time.Millisecond)

	limiter.Allow("user-1")
	if limiter.Allow("user-1") {
		t.Fatal("second trigger should be denied before reset")
	}

	limiter.Reset("user-1")

	if !limiter.Allow("user-1") {
		t.Error("trigger after Reset should be allowed")
	}
}

func TestReset_UnknownKey(t *testing.T) {
	limiter := New(time.Second)

	limiter.Reset("never-seen")

	if !limiter.Allow("never-seen") {
		t.Error("first trigger after a no-op Reset should be allowed")
	}
}

func TestAllow_ConcurrentUsers(t *testing.T) {
	limiter := New(10 * time.Millisecond)
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			key := fmt.Sprintf("user-%d", idx)
			for j := 0; j < 5; j++ {
				limiter.Allow(key)
				limiter.Reset(key)
			}
		}(i)
	}

	wg.Wait()
}
