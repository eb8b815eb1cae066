package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"line-register-bot/models"
)

// decrementScript lowers a member's score by one and removes it at zero
// Members that were never counted are left absent
var decrementScript = redis.NewScript(`
if not redis.call('ZSCORE', KEYS[1], ARGV[1]) then
  return 0
end
local score = redis.call('ZINCRBY', KEYS[1], -1, ARGV[1])
if tonumber(score) <= 0 then
  redis.call('ZREM', KEYS[1], ARGV[1])
  return 0
end
return score
`)

// RedisNameStats keeps each frequency table in a sorted set
type RedisNameStats struct {
	client *redis.Client
	prefix string
}

// OpenRedis creates a client and pings it
func OpenRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	if addr == "" {
		return nil, fmt.Errorf("empty redis addr")
	}
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// NewRedisNameStats stores tables under "<prefix>:<kind>" keys
func NewRedisNameStats(client *redis.Client, prefix string) *RedisNameStats {
	return &RedisNameStats{client: client, prefix: prefix}
}

func (s *RedisNameStats) key(kind models.NameKind) string {
	return s.prefix + ":" + string(kind)
}

func (s *RedisNameStats) Increment(ctx context.Context, kind models.NameKind, name string) error {
	member := NormalizeName(name)
	if member == "" {
		return nil
	}
	if err := s.client.ZIncrBy(ctx, s.key(kind), 1, member).Err(); err != nil {
		return fmt.Errorf("increment %s name %q: %w", kind, member, err)
	}
	return nil
}

func (s *RedisNameStats) Decrement(ctx context.Context, kind models.NameKind, name string) error {
	member := NormalizeName(name)
	if member == "" {
		return nil
	}
	err := decrementScript.Run(ctx, s.client, []string{s.key(kind)}, member).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("decrement %s name %q: %w", kind, member, err)
	}
	return nil
}

// Top reads the highest scores. Redis orders equal scores by member in
// reverse, so when the cut falls inside a tie the whole tied group is fetched
// and the rows are ordered by name the same way MemoryNameStats does
func (s *RedisNameStats) Top(ctx context.Context, kind models.NameKind, n int) ([]models.NameCount, error) {
	stop := int64(-1)
	if n > 0 {
		stop = int64(n - 1)
	}
	zs, err := s.client.ZRevRangeWithScores(ctx, s.key(kind), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("top %s names: %w", kind, err)
	}
	if n > 0 && len(zs) == n {
		boundary := zs[n-1].Score
		score := strconv.FormatFloat(boundary, 'f', -1, 64)
		tied, err := s.client.ZRangeByScoreWithScores(ctx, s.key(kind), &redis.ZRangeBy{Min: score, Max: score}).Result()
		if err != nil {
			return nil, fmt.Errorf("top %s names: %w", kind, err)
		}
		above := zs[:0]
		for _, z := range zs {
			if z.Score > boundary {
				above = append(above, z)
			}
		}
		zs = append(above, tied...)
	}
	return topNameCounts(zs, n), nil
}

// topNameCounts orders sorted-set entries by count, then name, and keeps n
func topNameCounts(zs []redis.Z, n int) []models.NameCount {
	rows := make([]models.NameCount, 0, len(zs))
	for _, z := range zs {
		name, _ := z.Member.(string)
		rows = append(rows, models.NameCount{Name: name, Count: int64(z.Score)})
	}
	return rankNameCounts(rows, n)
}
