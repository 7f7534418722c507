package redisx

import "time"

const (
	// Idempotent order placement: idem:order:place:{idempotency key} -> "pending" | order id
	KeyIdemOrderPlace = "idem:order:place:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	// a claim outlives any single order transaction; a crashed request frees the key after this
	TTLIdemPending = 30 * time.Second
)
