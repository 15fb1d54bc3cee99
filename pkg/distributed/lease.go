// Package distributed holds coordination primitives backed by Redis.
package distributed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotHeld is returned by Release when the key no longer carries this
// lease's token.
var ErrNotHeld = errors.New("lease not held")

var (
	releaseScript = redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		end
		return 0
	`)
	renewScript = redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("pexpire", KEYS[1], ARGV[2])
		end
		return 0
	`)
)

// Lease is an exclusive, expiring claim on a Redis key. While held it is
// renewed at a third of its TTL; Lost is closed if a renewal finds the key
// gone or owned by someone else.
type Lease struct {
	client *redis.Client
	key    string
	token  string
	ttl    time.Duration

	mu   sync.Mutex
	held bool
	stop chan struct{}
	lost chan struct{}
	done chan struct{}
}

func NewLease(client *redis.Client, key string, ttl time.Duration) *Lease {
	if ttl < 3*time.Millisecond {
		ttl = 30 * time.Second
	}
	return &Lease{
		client: client,
		key:    key,
		token:  uuid.NewString(),
		ttl:    ttl,
		lost:   make(chan struct{}),
	}
}

// TryAcquire claims the key if nobody holds it.
func (l *Lease) TryAcquire(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held {
		return true, nil
	}

	ok, err := l.client.SetNX(ctx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lease %s: %w", l.key, err)
	}
	if !ok {
		return false, nil
	}

	l.held = true
	select {
	case <-l.lost:
		l.lost = make(chan struct{})
	default:
	}
	l.stop = make(chan struct{})
	l.done = make(chan struct{})
	go l.keepalive(l.stop, l.done)
	return true, nil
}

// Holder returns the token currently stored under the key, or "" when the
// key is free.
func (l *Lease) Holder(ctx context.Context) (string, error) {
	token, err := l.client.Get(ctx, l.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return token, err
}

func (l *Lease) Token() string {
	return l.token
}

// Lost is closed when renewal discovers the lease was taken over.
func (l *Lease) Lost() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lost
}

// Release stops renewal and deletes the key if it is still ours.
func (l *Lease) Release(ctx context.Context) error {
	l.mu.Lock()
	if !l.held {
		l.mu.Unlock()
		return ErrNotHeld
	}
	l.held = false
	close(l.stop)
	done := l.done
	l.mu.Unlock()
	<-done

	n, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Int()
	if err != nil {
		return fmt.Errorf("release lease %s: %w", l.key, err)
	}
	if n == 0 {
		return ErrNotHeld
	}
	return nil
}

func (l *Lease) keepalive(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(l.ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), l.ttl/3)
			n, err := renewScript.Run(ctx, l.client, []string{l.key}, l.token, l.ttl.Milliseconds()).Int()
			cancel()
			if err != nil {
				// transient; the key survives until its TTL runs out
				continue
			}
			if n == 0 {
				l.mu.Lock()
				l.held = false
				close(l.lost)
				l.mu.Unlock()
				return
			}
		case <-stop:
			return
		}
	}
}
