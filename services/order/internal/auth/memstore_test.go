package auth

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCodeStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCodeStore()
	now := time.Now()
	store.now = func() time.Time { return now }

	_ = store.Put(ctx, testPhone, Challenge{CodeHash: "h"}, time.Minute)
	if ch, _ := store.Get(ctx, testPhone); ch == nil || ch.CodeHash != "h" {
		t.Fatalf("Get() = %+v, want stored challenge", ch)
	}

	now = now.Add(time.Minute)
	if ch, _ := store.Get(ctx, testPhone); ch != nil {
		t.Errorf("Get() after ttl = %+v, want nil", ch)
	}
}

func TestMemoryCodeStoreZeroTTLDeletes(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCodeStore()

	_ = store.Put(ctx, testPhone, Challenge{CodeHash: "h"}, time.Minute)
	_ = store.Put(ctx, testPhone, Challenge{CodeHash: "h"}, 0)
	if ch, _ := store.Get(ctx, testPhone); ch != nil {
		t.Errorf("Get() = %+v, want nil", ch)
	}
}

func TestOTPServiceWithMemoryStore(t *testing.T) {
	ctx := context.Background()
	svc := newTestOTP(NewMemoryCodeStore(), &MockSender{}, "424242")

	if _, err := svc.SendCode(ctx, testPhone); err != nil {
		t.Fatalf("SendCode() error = %v", err)
	}
	if _, err := svc.VerifyCode(ctx, testPhone, "424242"); err != nil {
		t.Errorf("VerifyCode() error = %v", err)
	}
}
