// 包 notify：将准入告警与求救数据包交给外部通道（Redis 发布、Kafka 投递）
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"fishing-borders/internal/compliance"
)

// 最近一次合规快照的键
const SnapshotKey = "fishguard:snapshot"

type redisCmdable interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// AlertMessage：发布到频道的消息体
type AlertMessage struct {
	Alert       compliance.Alert    `json:"alert"`
	Snapshot    compliance.Snapshot `json:"snapshot"`
	PublishedAt time.Time           `json:"published_at"`
}

// 文档注释：Redis 告警发布
// 背景：岸基值守端订阅频道实时接收告警；同时写入最近快照键，供晚到的订阅端拉取。
// 约束：快照键 24h 过期；发布失败返回错误由调用方记录，不重试。
type RedisPublisher struct {
	rc      redisCmdable
	channel string
	ttl     time.Duration
}

func NewRedisPublisher(rc *redis.Client, channel string) *RedisPublisher {
	return newRedisPublisher(rc, channel)
}

func newRedisPublisher(rc redisCmdable, channel string) *RedisPublisher {
	if channel == "" {
		channel = "fishguard:alerts"
	}
	return &RedisPublisher{rc: rc, channel: channel, ttl: 24 * time.Hour}
}

func (p *RedisPublisher) Name() string { return "redis" }

func (p *RedisPublisher) PublishAlert(ctx context.Context, a compliance.Alert, snap compliance.Snapshot) error {
	body, err := json.Marshal(AlertMessage{Alert: a, Snapshot: snap, PublishedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	if err := p.rc.Publish(ctx, p.channel, body).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", p.channel, err)
	}
	sb, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	if err := p.rc.Set(ctx, SnapshotKey, sb, p.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", SnapshotKey, err)
	}
	return nil
}
