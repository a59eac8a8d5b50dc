package queue

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Consumer 订单事件的通知消费者：收到 OrderCreated 后向用户
// 发出下单确认（当前实现为结构化日志，替换为邮件/推送只改这一处）。
// 消费语义 at-least-once，通知重复发送无副作用。
type Consumer struct {
	r *kafka.Reader
}

func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	return &Consumer{
		r: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 1e3,
			MaxBytes: 1e6,
		}),
	}
}

func (c *Consumer) Close() error { return c.r.Close() }

func (c *Consumer) Run(ctx context.Context) {
	for {
		m, err := c.r.ReadMessage(ctx)
		if err != nil {
			return // ctx cancel / 连接断开等
		}

		var evt OrderEvent
		if err := json.Unmarshal(m.Value, &evt); err != nil {
			zap.S().Errorf("consumer unmarshal: %v", err)
			continue
		}
		if err := evt.Validate(); err != nil {
			zap.S().Errorf("consumer invalid event: %v", err)
			continue
		}

		zap.S().Infow("order confirmation notification",
			"order_id", evt.OrderID,
			"user_id", evt.UserID,
			"total_amount", evt.TotalAmount,
			"status", evt.Status,
			"item_count", evt.ItemCount,
		)
	}
}
