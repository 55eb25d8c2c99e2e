package repo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tripflow-core/server/internal/core/errx"
	"github.com/tripflow-core/server/internal/planner/model"
	logx "github.com/tripflow-core/server/pkg/logger"
)

const sessionKeyPrefix = "trip:session:"

// redisClient is the slice of the go-redis API the repository uses.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisSessionRepository persists sessions as JSON blobs with a sliding
// TTL: every save restarts the expiry clock.
type RedisSessionRepository struct {
	rdb redisClient
	ttl time.Duration
}

func NewRedisSessionRepository(rdb redisClient, ttl time.Duration) *RedisSessionRepository {
	return &RedisSessionRepository{rdb: rdb, ttl: ttl}
}

var _ model.SessionRepository = (*RedisSessionRepository)(nil)

// Load returns (nil, nil) when no session exists for the identity. A
// stored blob that no longer unmarshals is dropped and treated as
// absent rather than poisoning every following turn.
func (r *RedisSessionRepository) Load(ctx context.Context, identity string) (*model.Session, error) {
	raw, err := r.rdb.Get(ctx, sessionKey(identity)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, errx.WrapRedis(err)
	}

	var sess model.Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		logx.Warn().Err(err).Str("identity", identity).Msg("Discarding corrupt session blob")
		r.rdb.Del(ctx, sessionKey(identity))
		return nil, nil
	}
	if sess.Attempts == nil {
		sess.Attempts = map[string]int{}
	}
	if sess.Slots == nil {
		sess.Slots = map[string]model.Slot{}
	}
	return &sess, nil
}

func (r *RedisSessionRepository) Save(ctx context.Context, sess *model.Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return errx.Internal(err)
	}
	if err := r.rdb.Set(ctx, sessionKey(sess.Identity), raw, r.ttl).Err(); err != nil {
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisSessionRepository) Delete(ctx context.Context, identity string) error {
	if err := r.rdb.Del(ctx, sessionKey(identity)).Err(); err != nil {
		return errx.WrapRedis(err)
	}
	return nil
}

func sessionKey(identity string) string {
	return sessionKeyPrefix + identity
}
