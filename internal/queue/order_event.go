package queue

import "fmt"

// OrderEvent 是订单创建成功后写入 Kafka 的事件。
// TotalAmount 以十进制字符串传输，避免二进制浮点损失精度。
type OrderEvent struct {
	OrderID     string `json:"order_id"`
	UserID      string `json:"user_id"`
	TotalAmount string `json:"total_amount"`
	Status      string `json:"status"`
	ItemCount   int    `json:"item_count"`
}

// Validate 做最小字段校验，防止消费者处理脏消息。
func (e OrderEvent) Validate() error {
	if e.OrderID == "" {
		return fmt.Errorf("order_id is required")
	}
	if e.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if e.TotalAmount == "" {
		return fmt.Errorf("total_amount is required")
	}
	if e.Status == "" {
		return fmt.Errorf("status is required")
	}
	if e.ItemCount <= 0 {
		return fmt.Errorf("item_count must be > 0")
	}
	return nil
}
