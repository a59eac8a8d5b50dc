package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"glacier_catalog/internal/model"
	"glacier_catalog/pkg/metrics"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	// ErrProductNotFound 商品不存在或已下架。
	ErrProductNotFound = errors.New("product not found or inactive")
	// ErrInsufficientStock 库存不足，预留失败。
	ErrInsufficientStock = errors.New("insufficient stock")
)

// InsufficientStockError 库存不足的具体错误，带商品名用于对外提示。
// errors.Is(err, ErrInsufficientStock) 对其成立。
type InsufficientStockError struct {
	ProductID   string
	ProductName string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s (%s)", e.ProductName, e.ProductID)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// Reservation 一次成功预留的结果：扣减数量 + 预留时刻的价格/名称快照。
type Reservation struct {
	ProductID   string
	Quantity    int
	UnitPrice   decimal.Decimal
	ProductName string
}

// Ledger 库存账本：商品库存的唯一写入口。
// 「检查库存 → 扣减」必须是单步原子操作，否则并发下单会超卖。
type Ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// TryReserve 原子预留：条件 UPDATE 一步完成「读库存 → 判断 ≥ 扣减量 → 扣减」，
// 库存不足时影响 0 行，不会出现读到旧值再扣的窗口。
// 价格/名称在同一事务内快照，之后的改价不影响已校验的明细行。
func (l *Ledger) TryReserve(ctx context.Context, productID string, quantity int) (Reservation, error) {
	if quantity <= 0 {
		return Reservation{}, fmt.Errorf("reserve quantity must be > 0, got %d", quantity)
	}

	start := time.Now()
	var res Reservation
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		upd := tx.Model(&model.Product{}).
			Where("id = ? AND is_active = ? AND stock >= ?", productID, true, quantity).
			Update("stock", gorm.Expr("stock - ?", quantity))
		if upd.Error != nil {
			return upd.Error
		}
		if upd.RowsAffected == 0 {
			// 区分「不存在/下架」与「库存不足」
			var p model.Product
			err := tx.Select("name").
				Where("id = ? AND is_active = ?", productID, true).
				First(&p).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProductNotFound
			}
			if err != nil {
				return err
			}
			return &InsufficientStockError{ProductID: productID, ProductName: p.Name}
		}

		var p model.Product
		if err := tx.Select("price", "name").
			Where("id = ?", productID).
			First(&p).Error; err != nil {
			return err
		}
		res = Reservation{
			ProductID:   productID,
			Quantity:    quantity,
			UnitPrice:   p.Price,
			ProductName: p.Name,
		}
		return nil
	})
	metrics.ReserveLatency.Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		return Reservation{}, err
	}
	return res, nil
}

// Release 回补库存（补偿动作）：同一请求后续步骤失败、或订单取消时调用。
func (l *Ledger) Release(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("release quantity must be > 0, got %d", quantity)
	}
	upd := l.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ?", productID).
		Update("stock", gorm.Expr("stock + ?", quantity))
	if upd.Error != nil {
		return upd.Error
	}
	if upd.RowsAffected == 0 {
		return fmt.Errorf("release stock: product %s not found", productID)
	}
	return nil
}
