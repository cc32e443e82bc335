package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// ReplayCache implements ports.ReplayCache using Redis SET NX. It marks
// (txn_id, gateway status) pairs already delivered so repeated IPN posts can
// short-circuit without taking the payment row lock. Best effort only: the
// payment row's terminal state stays authoritative.
type ReplayCache struct {
	client *goredis.Client
	prefix string
}

// NewReplayCache creates a new Redis-backed IPN replay cache.
func NewReplayCache(client *goredis.Client) *ReplayCache {
	return &ReplayCache{
		client: client,
		prefix: "ipn:",
	}
}

// Seen atomically marks the (txnID, gatewayStatus) pair and reports whether
// it was already marked.
func (c *ReplayCache) Seen(ctx context.Context, txnID string, gatewayStatus int, ttl time.Duration) (bool, error) {
	key := c.prefix + txnID + ":" + strconv.Itoa(gatewayStatus)
	result, err := c.client.SetArgs(ctx, key, 1, goredis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Result()
	if err != nil {
		if err == goredis.Nil {
			// Key already exists — this delivery is a replay.
			return true, nil
		}
		return false, fmt.Errorf("redis replay check: %w", err)
	}
	return result != "OK", nil
}
