package store

import (
	"context"
	"sort"

	"github.com/redis/go-redis/v9"

	"railalert/internal/subscription/models"
)

const defaultRedisPrefix = "railalert:subs"

// RedisCache keeps one SET per line plus a SET of lines seen, so several
// processes can share a warm fallback view.
type RedisCache struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisCache(client redis.UniversalClient, prefix string) *RedisCache {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisCache{client: client, prefix: prefix}
}

func (c *RedisCache) lineKey(line models.LineCode) string {
	return c.prefix + ":line:" + string(line)
}

func (c *RedisCache) linesKey() string {
	return c.prefix + ":lines"
}

func (c *RedisCache) Add(ctx context.Context, line models.LineCode, recipient models.Recipient) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, c.lineKey(line), string(recipient))
		pipe.SAdd(ctx, c.linesKey(), string(line))
		return nil
	})
	if err != nil {
		return unavailable("redis add", err)
	}
	return nil
}

func (c *RedisCache) Remove(ctx context.Context, line models.LineCode, recipient models.Recipient) error {
	if err := c.client.SRem(ctx, c.lineKey(line), string(recipient)).Err(); err != nil {
		return unavailable("redis remove", err)
	}
	return nil
}

// Replace swaps the line's SET for recipients in one MULTI/EXEC.
func (c *RedisCache) Replace(ctx context.Context, line models.LineCode, recipients []models.Recipient) error {
	members := make([]any, 0, len(recipients))
	for _, r := range recipients {
		members = append(members, string(r))
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, c.lineKey(line))
		if len(members) > 0 {
			pipe.SAdd(ctx, c.lineKey(line), members...)
			pipe.SAdd(ctx, c.linesKey(), string(line))
		}
		return nil
	})
	if err != nil {
		return unavailable("redis replace", err)
	}
	return nil
}

func (c *RedisCache) Recipients(ctx context.Context, line models.LineCode) ([]models.Recipient, error) {
	members, err := c.client.SMembers(ctx, c.lineKey(line)).Result()
	if err != nil {
		return nil, unavailable("redis members", err)
	}
	return toRecipients(members), nil
}

func (c *RedisCache) Snapshot(ctx context.Context) (map[models.LineCode][]models.Recipient, error) {
	lines, err := c.client.SMembers(ctx, c.linesKey()).Result()
	if err != nil {
		return nil, unavailable("redis lines", err)
	}

	cmds := make(map[models.LineCode]*redis.StringSliceCmd, len(lines))
	_, err = c.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, l := range lines {
			line := models.LineCode(l)
			cmds[line] = pipe.SMembers(ctx, c.lineKey(line))
		}
		return nil
	})
	if err != nil {
		return nil, unavailable("redis snapshot", err)
	}

	out := make(map[models.LineCode][]models.Recipient, len(cmds))
	for line, cmd := range cmds {
		if members := cmd.Val(); len(members) > 0 {
			out[line] = toRecipients(members)
		}
	}
	return out, nil
}

func toRecipients(members []string) []models.Recipient {
	sort.Strings(members)
	out := make([]models.Recipient, 0, len(members))
	for _, m := range members {
		out = append(out, models.Recipient(m))
	}
	return out
}
