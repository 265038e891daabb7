package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"fishing-borders/internal/alerts"
	"fishing-borders/internal/geo"
)

// ErrNoDispatcher：未配置求救投递通道
var ErrNoDispatcher = errors.New("emergency dispatcher not configured")

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewWriter：同步写、单副本确认
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}
}

// 文档注释：求救数据包投递
// 背景：将 EmergencyBroadcast 生成的数据包写入 Kafka 主题，由海岸警卫/短信网关等下游消费。
// 约束：消息键为船位 geohash 前缀（同海区消息同分区有序）；写入失败直接返回错误，不在此重试。
type KafkaDispatcher struct {
	w       messageWriter
	vessel  string
	timeout time.Duration
}

func NewKafkaDispatcher(brokers []string, topic, vessel string) *KafkaDispatcher {
	return newKafkaDispatcher(NewWriter(brokers, topic), vessel)
}

func newKafkaDispatcher(w messageWriter, vessel string) *KafkaDispatcher {
	return &KafkaDispatcher{w: w, vessel: vessel, timeout: 5 * time.Second}
}

// EmergencyMessage：投递的消息体
type EmergencyMessage struct {
	Vessel    string           `json:"vessel,omitempty"`
	Emergency alerts.Emergency `json:"emergency"`
}

func (d *KafkaDispatcher) DispatchEmergency(ctx context.Context, em alerts.Emergency) error {
	if d == nil {
		return ErrNoDispatcher
	}
	body, err := json.Marshal(EmergencyMessage{Vessel: d.vessel, Emergency: em})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	err = d.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(messageKey(em)),
		Value: body,
		Time:  em.CreatedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("dispatch emergency: %w", err)
	}
	return nil
}

func (d *KafkaDispatcher) Close() error {
	if d == nil {
		return nil
	}
	return d.w.Close()
}

// messageKey：geohash 4 位（约 39km 网格）
func messageKey(em alerts.Emergency) string {
	return geo.Geohash(em.Location.Lat, em.Location.Lng, 4)
}
