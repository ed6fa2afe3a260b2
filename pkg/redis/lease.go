package redis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrLeaseNotAcquired is returned when someone else holds the lease
	ErrLeaseNotAcquired = errors.New("lease not acquired")
	// ErrLeaseNotHeld is returned when releasing or extending a lease we no longer own
	ErrLeaseNotHeld = errors.New("lease not held")
)

// Lease is an exclusive, TTL-bounded claim on a key. The session manager
// takes one per template so two back-office users cannot edit the same
// template at once; the TTL guarantees an abandoned browser tab releases
// the template eventually.
type Lease struct {
	client *Client
	key    string
	value  string
	ttl    time.Duration
}

// Leaser hands out leases under a shared key prefix.
type Leaser struct {
	client    *Client
	keyPrefix string
}

// NewLeaser creates a new Leaser.
func NewLeaser(client *Client, keyPrefix string) *Leaser {
	if keyPrefix == "" {
		keyPrefix = "lease:"
	}
	return &Leaser{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Acquire attempts to take the lease for key.
func (l *Leaser) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lease, error) {
	leaseKey := l.keyPrefix + key
	leaseValue := uuid.New().String()

	ok, err := l.client.rdb.SetNX(ctx, leaseKey, leaseValue, ttl).Result()
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, ErrLeaseNotAcquired
	}

	l.client.logger.WithContext(ctx).Debugf("Acquired lease: %s", key)

	return &Lease{
		client: l.client,
		key:    leaseKey,
		value:  leaseValue,
		ttl:    ttl,
	}, nil
}

// Release gives the lease back. A Lua script guards against deleting a lease
// that expired and was re-acquired by someone else.
func (lease *Lease) Release(ctx context.Context) error {
	script := redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		else
			return 0
		end
	`)

	result, err := script.Run(ctx, lease.client.rdb, []string{lease.key}, lease.value).Int64()
	if err != nil {
		return err
	}

	if result == 0 {
		return ErrLeaseNotHeld
	}

	lease.client.logger.WithContext(ctx).Debugf("Released lease: %s", lease.key)
	return nil
}

// Extend pushes the lease's expiry out, keeping a long editing session alive.
func (lease *Lease) Extend(ctx context.Context, ttl time.Duration) error {
	script := redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("pexpire", KEYS[1], ARGV[2])
		else
			return 0
		end
	`)

	result, err := script.Run(ctx, lease.client.rdb, []string{lease.key}, lease.value, ttl.Milliseconds()).Int64()
	if err != nil {
		return err
	}

	if result == 0 {
		return ErrLeaseNotHeld
	}

	return nil
}
