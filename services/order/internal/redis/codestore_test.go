package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/momomagic/momo/services/order/internal/auth"
)

// fakeCmdable serves the few string commands the code store uses.
type fakeCmdable struct {
	goredis.Cmdable
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
}

func newFakeCmdable() *fakeCmdable {
	return &fakeCmdable{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeCmdable) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	f.ttls[key] = expiration
	return goredis.NewStatusResult("OK", nil)
}

func (f *fakeCmdable) Get(ctx context.Context, key string) *goredis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return goredis.NewStringResult("", goredis.Nil)
	}
	return goredis.NewStringResult(v, nil)
}

func (f *fakeCmdable) Del(ctx context.Context, keys ...string) *goredis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return goredis.NewIntResult(n, nil)
}

func TestCodeStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeCmdable()
	store := NewCodeStore(rdb)

	got, err := store.Get(ctx, "+919812345678")
	if err != nil || got != nil {
		t.Fatalf("Get() on empty store = %v, %v; want nil, nil", got, err)
	}

	ch := auth.Challenge{CodeHash: "abc", Attempts: 2, ExpiresAt: time.Now().Add(time.Minute).UTC().Truncate(time.Second)}
	if err := store.Put(ctx, "+919812345678", ch, time.Minute); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if rdb.ttls[codeKeyPrefix+"+919812345678"] != time.Minute {
		t.Errorf("ttl = %v, want 1m", rdb.ttls[codeKeyPrefix+"+919812345678"])
	}

	got, err = store.Get(ctx, "+919812345678")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got == nil || got.CodeHash != "abc" || got.Attempts != 2 || !got.ExpiresAt.Equal(ch.ExpiresAt) {
		t.Errorf("Get() = %+v, want %+v", got, ch)
	}

	if err := store.Delete(ctx, "+919812345678"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if got, _ := store.Get(ctx, "+919812345678"); got != nil {
		t.Errorf("Get() after Delete() = %+v, want nil", got)
	}
}

func TestCodeStorePutWithExpiredTTLDeletes(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeCmdable()
	store := NewCodeStore(rdb)

	_ = store.Put(ctx, "p", auth.Challenge{CodeHash: "x"}, time.Minute)
	if err := store.Put(ctx, "p", auth.Challenge{CodeHash: "x"}, 0); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if got, _ := store.Get(ctx, "p"); got != nil {
		t.Errorf("Get() = %+v, want nil after zero ttl put", got)
	}
}

func TestCodeStoreCorruptValue(t *testing.T) {
	rdb := newFakeCmdable()
	rdb.data[codeKeyPrefix+"p"] = "{not json"
	store := NewCodeStore(rdb)

	got, err := store.Get(context.Background(), "p")
	if err != nil || got != nil {
		t.Errorf("Get() on corrupt value = %v, %v; want nil, nil", got, err)
	}
}
