package redisx

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const idemPending = "pending"

// IdemState is the outcome of claiming an idempotency key.
type IdemState int

const (
	// IdemNew means the caller owns the key and must Complete or Release it.
	IdemNew IdemState = iota
	// IdemDone means an earlier request finished; the stored order id is returned.
	IdemDone
	// IdemInFlight means another request holds the key right now.
	IdemInFlight
)

type IdempotencyStore struct{ rdb redis.Cmdable }

func NewIdempotencyStore(rdb redis.Cmdable) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb}
}

// Claim reserves key for scope with SET NX. A pending claim expires on its own
// so a crashed request does not block the key forever.
func (s *IdempotencyStore) Claim(ctx context.Context, scope, key string) (IdemState, string, error) {
	k := idemKey(scope, key)
	ok, err := s.rdb.SetNX(ctx, k, idemPending, TTLIdemPending).Result()
	if err != nil {
		return 0, "", fmt.Errorf("idempotency claim: %w", err)
	}
	if ok {
		return IdemNew, "", nil
	}
	v, err := s.rdb.Get(ctx, k).Result()
	switch {
	case err == redis.Nil:
		return s.Claim(ctx, scope, key)
	case err != nil:
		return 0, "", fmt.Errorf("idempotency lookup: %w", err)
	case v == idemPending:
		return IdemInFlight, "", nil
	default:
		return IdemDone, v, nil
	}
}

// Complete records the order created under key.
func (s *IdempotencyStore) Complete(ctx context.Context, scope, key, orderID string) error {
	return s.rdb.Set(ctx, idemKey(scope, key), orderID, TTLIdempotency).Err()
}

// Release drops a pending claim after a failed request so it can be retried.
func (s *IdempotencyStore) Release(ctx context.Context, scope, key string) error {
	return s.rdb.Del(ctx, idemKey(scope, key)).Err()
}
