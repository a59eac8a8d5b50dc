package order

import (
	"context"
	"errors"

	"glacier_catalog/internal/inventory"
	"glacier_catalog/internal/model"
	"glacier_catalog/pkg/metrics"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrOrderNotFound 订单不存在。
var ErrOrderNotFound = errors.New("order not found")

// EventSink 接收订单创建事件。发布是尽力而为：失败只记日志，
// 订单本身的提交结果不依赖事件管道。
type EventSink interface {
	OrderCreated(ctx context.Context, o *model.Order) error
}

// Coordinator 订单事务协调器：把「逐行预留」与「订单落库」组织成
// 一个全或无的提交单元。预留由账本的条件 UPDATE 保证原子性，
// 落库失败时通过补偿栈回补全部预留，绝不留下半写订单或泄漏的扣减。
type Coordinator struct {
	db      *gorm.DB
	builder *Builder
	events  EventSink // 可为 nil
}

func NewCoordinator(db *gorm.DB, ledger *inventory.Ledger, events EventSink) *Coordinator {
	return &Coordinator{
		db:      db,
		builder: NewBuilder(ledger),
		events:  events,
	}
}

// CreateOrder 下单入口。
// 流程：
//  1. 构建草稿（逐行预留 + 定价 + 精确汇总），失败则原样透传错误，无任何落库。
//  2. 同一事务内写入 Order（status=PENDING, payment_status=PENDING）与全部明细。
//  3. 落库失败：回补全部预留，对外返回 PERSISTENCE_FAILURE。
//  4. 成功：发布 OrderCreated 事件（尽力而为），返回完整订单。
func (c *Coordinator) CreateOrder(ctx context.Context, userID string, lines []LineRequest, paymentMethod, notes string) (*model.Order, error) {
	draft, err := c.builder.Build(ctx, userID, lines, paymentMethod, notes)
	if err != nil {
		c.countFailure(err)
		return nil, err
	}

	o := &model.Order{
		UserID:        draft.UserID,
		TotalAmount:   draft.Total,
		Status:        model.OrderStatusPending,
		PaymentStatus: model.PaymentStatusPending,
		PaymentMethod: draft.PaymentMethod,
		Notes:         draft.Notes,
		Items:         draft.Items,
	}

	// Order 与 OrderItems 在一个事务内写入：读者永远看不到半写订单。
	err = c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(o).Error
	})
	if err != nil {
		// 预留此时已是真实的库存扣减，必须在返回前全部回补。
		draft.Release(ctx)
		zap.S().Errorf("persist order user=%s: %v", userID, err)
		perr := errPersistence(err)
		c.countFailure(perr)
		return nil, perr
	}

	metrics.OrdersCreated.Inc()
	c.emitCreated(ctx, o)
	return o, nil
}

// GetOrder 按 ID 读取订单（含全部明细）。
func (c *Coordinator) GetOrder(ctx context.Context, orderID string) (*model.Order, error) {
	var o model.Order
	err := c.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", orderID).
		First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// ListUserOrders 按用户读取订单列表，新单在前。
func (c *Coordinator) ListUserOrders(ctx context.Context, userID string) ([]model.Order, error) {
	var orders []model.Order
	err := c.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateStatus 管理操作：更新订单生命周期状态（枚举校验由 HTTP 层完成）。
func (c *Coordinator) UpdateStatus(ctx context.Context, orderID string, status model.OrderStatus) error {
	return c.updateLabel(ctx, orderID, "status", string(status))
}

// UpdatePaymentStatus 管理操作：更新支付状态标签。
func (c *Coordinator) UpdatePaymentStatus(ctx context.Context, orderID string, status model.PaymentStatus) error {
	return c.updateLabel(ctx, orderID, "payment_status", string(status))
}

func (c *Coordinator) updateLabel(ctx context.Context, orderID, column, value string) error {
	upd := c.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", orderID).
		Update(column, value)
	if upd.Error != nil {
		return upd.Error
	}
	if upd.RowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (c *Coordinator) emitCreated(ctx context.Context, o *model.Order) {
	if c.events == nil {
		return
	}
	if err := c.events.OrderCreated(ctx, o); err != nil {
		zap.S().Warnf("emit order created order=%s: %v", o.ID, err)
	}
}

func (c *Coordinator) countFailure(err error) {
	if oe, ok := AsError(err); ok {
		metrics.OrderFailures.WithLabelValues(string(oe.Code)).Inc()
	}
}
