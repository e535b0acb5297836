package presence

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on Redis.
//
// Layout per database selector:
//   - pulse:{db}:session:{user}        -> token (plain string)
//   - pulse:{db}:presence:{class}      -> sorted set, member = user,
//     score = validity in unix milliseconds
//
// The sorted set per anonymity class is the liveness index; SET on the
// per-user key gives replace-on-establish atomicity for free.
type RedisStore struct {
	client redis.Cmdable
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(client redis.Cmdable) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("presence: nil redis client")
	}
	return &RedisStore{client: client}, nil
}

func redisSessionKey(db, user string) string {
	return "pulse:" + db + ":session:" + user
}

func redisPresenceKey(db string, anonymous bool) string {
	if anonymous {
		return "pulse:" + db + ":presence:anon"
	}
	return "pulse:" + db + ":presence:auth"
}

// Upsert overwrites the user's token and presence score in one pipeline.
func (s *RedisStore) Upsert(ctx context.Context, db string, now time.Time, user, token string) error {
	if !ValidDBName(db) {
		return ErrBadDatabaseName
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, redisSessionKey(db, user), token, 0)
	pipe.ZAdd(ctx, redisPresenceKey(db, IsAnonymous(user)), redis.Z{
		Score:  float64(now.UnixMilli()),
		Member: user,
	})
	_, err := pipe.Exec(ctx)
	return err
}

// Exists reports whether the stored token for user matches exactly.
func (s *RedisStore) Exists(ctx context.Context, db, user, token string) (bool, error) {
	if !ValidDBName(db) {
		return false, ErrBadDatabaseName
	}

	got, err := s.client.Get(ctx, redisSessionKey(db, user)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return got == token, nil
}

// Refresh re-scores the user's presence entry when the presented token still
// matches; a missing or replaced token is a silent no-op.
func (s *RedisStore) Refresh(ctx context.Context, db string, now time.Time, user, token string) error {
	if !ValidDBName(db) {
		return ErrBadDatabaseName
	}

	got, err := s.client.Get(ctx, redisSessionKey(db, user)).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}
	if got != token {
		return nil
	}

	return s.client.ZAdd(ctx, redisPresenceKey(db, IsAnonymous(user)), redis.Z{
		Score:  float64(now.UnixMilli()),
		Member: user,
	}).Err()
}

// ActiveSince returns users of the anonymity class heard from strictly after cutoff.
func (s *RedisStore) ActiveSince(ctx context.Context, db string, anonymous bool, cutoff time.Time) ([]string, error) {
	if !ValidDBName(db) {
		return nil, ErrBadDatabaseName
	}

	return s.client.ZRangeByScore(ctx, redisPresenceKey(db, anonymous), &redis.ZRangeBy{
		Min: "(" + strconv.FormatInt(cutoff.UnixMilli(), 10),
		Max: "+inf",
	}).Result()
}

// Init validates the selector; Redis needs no provisioning.
func (s *RedisStore) Init(ctx context.Context, db string) error {
	if !ValidDBName(db) {
		return ErrBadDatabaseName
	}
	return ctx.Err()
}

// Drop deletes every key belonging to the named database.
func (s *RedisStore) Drop(ctx context.Context, db string) error {
	if !ValidDBName(db) {
		return ErrBadDatabaseName
	}

	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, "pulse:"+db+":*", 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// EnsureIndexes is a no-op: the sorted set per class is the liveness index.
func (s *RedisStore) EnsureIndexes(ctx context.Context, db string) error {
	if !ValidDBName(db) {
		return ErrBadDatabaseName
	}
	return ctx.Err()
}
