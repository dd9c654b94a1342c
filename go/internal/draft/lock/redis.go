package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/livedraft/go/internal/draft/drafterrors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// releaseScript deletes the key only if this lease still owns it, so a
// holder whose TTL already lapsed cannot free a newer holder's lock.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements Locker with SET NX PX on a per-draft key.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisLocker creates a RedisLocker. A non-positive ttl uses DefaultTTL.
func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisLocker{client: client, ttl: ttl, prefix: "draft"}
}

func (l *RedisLocker) key(draftID string) string {
	return fmt.Sprintf("%s:%s:lock", l.prefix, draftID)
}

func (l *RedisLocker) Acquire(ctx context.Context, draftID string) (Lease, error) {
	token := uuid.New().String()
	ok, err := l.client.SetNX(ctx, l.key(draftID), token, l.ttl).Result()
	if err != nil {
		return nil, drafterrors.Unavailable(err, "failed to acquire lock for draft %s", draftID)
	}
	if !ok {
		log.Debug().Str("draft_id", draftID).Msg("draft lock contended")
		return nil, drafterrors.New(drafterrors.KindLockContention, "draft %s is locked by another request", draftID)
	}
	return &redisLease{locker: l, draftID: draftID, token: token}, nil
}

type redisLease struct {
	locker  *RedisLocker
	draftID string
	token   string
}

// Release runs even if ctx is already cancelled; the request that held the
// lock may have been aborted by its client.
func (l *redisLease) Release(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()

	n, err := releaseScript.Run(ctx, l.locker.client, []string{l.locker.key(l.draftID)}, l.token).Int()
	if err != nil {
		return drafterrors.Unavailable(err, "failed to release lock for draft %s", l.draftID)
	}
	if n == 0 {
		log.Warn().Str("draft_id", l.draftID).Msg("draft lock expired before release")
	}
	return nil
}
