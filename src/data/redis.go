package data

import (
	"context"
	"log"

	"github.com/redis/go-redis/v9"
)

const streamAudit = "steward.audit"

func MustRedis(url string) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	return redis.NewClient(opt)
}

// PublishAudit appends an audit entry to the steward audit stream so other
// consumers (dashboards, archival) can follow staff activity.
func PublishAudit(ctx context.Context, rdb *redis.Client, payload map[string]interface{}) error {
	_, err := rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: streamAudit,
		Values: payload,
	}).Result()
	return err
}
