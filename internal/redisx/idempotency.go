package redisx

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// ClaimState is the outcome of claiming an Idempotency-Key.
type ClaimState int

const (
	// Claimed: the caller owns the key and must Complete or Release it.
	Claimed ClaimState = iota
	// Completed: the key already produced an order.
	Completed
	// InFlight: another request holds the claim.
	InFlight
)

const pendingMarker = "pending"

// releaseScript deletes the key only while it still holds the pending marker,
// so a late Release never drops a completed record.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Idempotency remembers which order an Idempotency-Key produced. Postgres
// stays the source of truth; a lost record only means a replay places a
// new order.
type Idempotency struct {
	rdb *redis.Client
}

func NewIdempotency(rdb *redis.Client) *Idempotency {
	return &Idempotency{rdb: rdb}
}

func idemKey(key string) string { return fmt.Sprintf(KeyIdemOrderPlace, key) }

// Claim takes the key with a short-lived pending marker (SETNX). When the key
// is already taken it reports whether an order id is stored or the claim is
// still in flight.
func (i *Idempotency) Claim(ctx context.Context, key string) (ClaimState, int64, error) {
	k := idemKey(key)
	ok, err := i.rdb.SetNX(ctx, k, pendingMarker, TTLIdemPending).Result()
	if err != nil {
		return 0, 0, err
	}
	if ok {
		return Claimed, 0, nil
	}

	v, err := i.rdb.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// released or expired between SETNX and GET; the client retries
		return InFlight, 0, nil
	}
	if err != nil {
		return 0, 0, err
	}
	if v == pendingMarker {
		return InFlight, 0, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("idempotency record %q: %w", key, err)
	}
	return Completed, id, nil
}

// Complete replaces the pending marker with the order id for TTLIdempotency.
func (i *Idempotency) Complete(ctx context.Context, key string, orderID int64) error {
	return i.rdb.Set(ctx, idemKey(key), orderID, TTLIdempotency).Err()
}

// Release frees a claim whose order failed.
func (i *Idempotency) Release(ctx context.Context, key string) error {
	return releaseScript.Run(ctx, i.rdb, []string{idemKey(key)}, pendingMarker).Err()
}
