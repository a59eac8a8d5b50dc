package order

import (
	"context"
	"errors"

	"glacier_catalog/internal/inventory"
	"glacier_catalog/internal/model"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LineRequest 一条下单明细请求。数量校验放在 Build 里完成，
// 让非正数量统一走 INVALID_QUANTITY 错误码而不是绑定失败。
type LineRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// Draft 通过校验的订单草稿：定价后的明细、精确汇总的总额，
// 以及本次请求内所有成功预留的补偿栈。
type Draft struct {
	UserID        string
	PaymentMethod string
	Notes         string
	Items         []model.OrderItem
	Total         decimal.Decimal

	compensations *releaseStack
}

// Release 逆序回补草稿内全部预留。持久化失败时由协调器调用。
func (d *Draft) Release(ctx context.Context) {
	d.compensations.unwind(ctx)
}

// releaseStack 记录已成功的预留，失败时逆序回补（补偿动作栈）。
// 回补在返回调用方之前同步执行，不延迟、不丢弃。
type releaseStack struct {
	ledger *inventory.Ledger
	resv   []inventory.Reservation
}

func (s *releaseStack) push(r inventory.Reservation) {
	s.resv = append(s.resv, r)
}

func (s *releaseStack) unwind(ctx context.Context) {
	// 客户端断开（ctx 取消）往往正是触发补偿的原因；
	// 回补不能跟着取消，否则扣减就永久泄漏了。
	ctx = context.WithoutCancel(ctx)
	for i := len(s.resv) - 1; i >= 0; i-- {
		r := s.resv[i]
		if err := s.ledger.Release(ctx, r.ProductID, r.Quantity); err != nil {
			// 回补失败只能记日志：库存已扣减但无法自动恢复，需人工对账。
			zap.S().Errorf("release stock product=%s qty=%d: %v", r.ProductID, r.Quantity, err)
		}
	}
	s.resv = nil
}

// Builder 订单聚合构建器：逐行校验、预留、定价，失败时整体回滚。
type Builder struct {
	ledger *inventory.Ledger
}

func NewBuilder(ledger *inventory.Ledger) *Builder {
	return &Builder{ledger: ledger}
}

// Build 按请求顺序逐行调用 TryReserve。任何一行失败时，
// 先逆序回补本次已成功的预留，再返回错误——整体全或无。
// 数量非正、明细为空属于客户端输入错误，在触碰库存之前拒绝。
// 同一商品出现多行时按独立明细处理（分别预留、分别定价），不合并。
func (b *Builder) Build(ctx context.Context, userID string, lines []LineRequest, paymentMethod, notes string) (*Draft, error) {
	if len(lines) == 0 {
		return nil, errEmptyOrder()
	}
	for _, ln := range lines {
		if ln.Quantity <= 0 {
			return nil, errInvalidQuantity(ln.ProductID)
		}
	}

	stack := &releaseStack{ledger: b.ledger}
	total := decimal.Zero
	items := make([]model.OrderItem, 0, len(lines))

	for _, ln := range lines {
		r, err := b.ledger.TryReserve(ctx, ln.ProductID, ln.Quantity)
		if err != nil {
			stack.unwind(ctx)
			return nil, mapLedgerError(ln.ProductID, err)
		}
		stack.push(r)

		total = total.Add(r.UnitPrice.Mul(decimal.NewFromInt(int64(ln.Quantity))))
		items = append(items, model.OrderItem{
			ProductID:   r.ProductID,
			Quantity:    r.Quantity,
			Price:       r.UnitPrice,
			ProductName: r.ProductName,
		})
	}

	return &Draft{
		UserID:        userID,
		PaymentMethod: paymentMethod,
		Notes:         notes,
		Items:         items,
		Total:         total,
		compensations: stack,
	}, nil
}

func mapLedgerError(productID string, err error) error {
	var ise *inventory.InsufficientStockError
	if errors.As(err, &ise) {
		return errInsufficientStock(ise.ProductID, ise.ProductName, err)
	}
	if errors.Is(err, inventory.ErrProductNotFound) {
		return errProductNotFound(productID, err)
	}
	return errPersistence(err)
}
