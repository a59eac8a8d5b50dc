package queue

import (
	"context"
	"strconv"

	"glacier_catalog/internal/model"

	rd "github.com/redis/go-redis/v9"
)

// Outbox 把订单创建事件先写入 Redis Stream，由 Relay 异步转发 Kafka。
// 对下单主流程来说写入是尽力而为：失败不回滚订单，只由调用方记日志。
type Outbox struct {
	rdb    *rd.Client
	stream string
}

func NewOutbox(rdb *rd.Client, stream string) *Outbox {
	return &Outbox{rdb: rdb, stream: stream}
}

// OrderCreated 实现 order.EventSink。
func (o *Outbox) OrderCreated(ctx context.Context, ord *model.Order) error {
	return o.rdb.XAdd(ctx, &rd.XAddArgs{
		Stream: o.stream,
		Values: map[string]interface{}{
			"order_id":     ord.ID,
			"user_id":      ord.UserID,
			"total_amount": ord.TotalAmount.StringFixed(2),
			"status":       string(ord.Status),
			"item_count":   strconv.Itoa(len(ord.Items)),
		},
	}).Err()
}
