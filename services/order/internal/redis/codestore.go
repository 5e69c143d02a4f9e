package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/momomagic/momo/services/order/internal/auth"
)

const codeKeyPrefix = "momo:otp:"

// CodeStore keeps verification challenges as JSON values with a TTL.
type CodeStore struct {
	rdb goredis.Cmdable
}

func NewCodeStore(rdb goredis.Cmdable) *CodeStore {
	return &CodeStore{rdb: rdb}
}

func (s *CodeStore) Put(ctx context.Context, phone string, ch auth.Challenge, ttl time.Duration) error {
	if ttl <= 0 {
		return s.Delete(ctx, phone)
	}
	payload, err := json.Marshal(ch)
	if err != nil {
		return fmt.Errorf("cannot encode challenge: %w", err)
	}
	if err := s.rdb.Set(ctx, codeKeyPrefix+phone, payload, ttl).Err(); err != nil {
		return fmt.Errorf("cannot store challenge: %w", err)
	}
	return nil
}

func (s *CodeStore) Get(ctx context.Context, phone string) (*auth.Challenge, error) {
	val, err := s.rdb.Get(ctx, codeKeyPrefix+phone).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot load challenge: %w", err)
	}

	var ch auth.Challenge
	if err := json.Unmarshal(val, &ch); err != nil {
		// A value we cannot read is as good as no pending challenge.
		return nil, nil
	}
	return &ch, nil
}

func (s *CodeStore) Delete(ctx context.Context, phone string) error {
	if err := s.rdb.Del(ctx, codeKeyPrefix+phone).Err(); err != nil {
		return fmt.Errorf("cannot delete challenge: %w", err)
	}
	return nil
}
