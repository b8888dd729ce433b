package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker serializes work on one session. Lock blocks until the lock is held or
// ctx is done; the returned func releases it.
type Locker interface {
	Lock(ctx context.Context, sessionID string) (unlock func(), err error)
}

// KeyedMutex is an in-process Locker with one lock per session id.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	sem  chan struct{}
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyedLock)}
}

func (k *KeyedMutex) Lock(ctx context.Context, sessionID string) (func(), error) {
	k.mu.Lock()
	l, ok := k.locks[sessionID]
	if !ok {
		l = &keyedLock{sem: make(chan struct{}, 1)}
		k.locks[sessionID] = l
	}
	l.refs++
	k.mu.Unlock()

	select {
	case l.sem <- struct{}{}:
		return func() {
			<-l.sem
			k.release(sessionID, l)
		}, nil
	case <-ctx.Done():
		k.release(sessionID, l)
		return nil, ctx.Err()
	}
}

func (k *KeyedMutex) release(sessionID string, l *keyedLock) {
	k.mu.Lock()
	defer k.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(k.locks, sessionID)
	}
}

func (k *KeyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

const (
	lockKeyPrefix    = "interview:lock:"
	defaultLockTTL   = 2 * time.Minute
	lockPollInterval = 25 * time.Millisecond
)

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a Locker shared by every instance using the same redis.
type RedisLocker struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisLocker returns a redis-backed Locker. ttl bounds how long a crashed
// holder can keep a session locked.
func NewRedisLocker(rdb *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLocker{rdb: rdb, ttl: ttl}
}

func (r *RedisLocker) Lock(ctx context.Context, sessionID string) (func(), error) {
	key := lockKeyPrefix + sessionID
	token := uuid.New().String()

	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()
	for {
		ok, err := r.rdb.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, err
		}
		if ok {
			return func() {
				// the request context may already be cancelled
				_ = releaseScript.Run(context.Background(), r.rdb, []string{key}, token).Err()
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
