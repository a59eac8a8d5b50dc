package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"glacier_catalog/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// openTestDB 每个测试一个独立的共享内存库。
// sqlite 单写者：限制连接数为 1，并发由条件 UPDATE 语义保证。
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&model.Product{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, name, price string, stock int64, active bool) string {
	t.Helper()
	p := model.Product{
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
		IsActive: active,
	}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return p.ID
}

func currentStock(t *testing.T, db *gorm.DB, id string) int64 {
	t.Helper()
	var p model.Product
	if err := db.First(&p, "id = ?", id).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	return p.Stock
}

func TestTryReserveDecrementsAndSnapshots(t *testing.T) {
	db := openTestDB(t)
	id := seedProduct(t, db, "Glacier Mug", "9.99", 5, true)
	ledger := NewLedger(db)

	r, err := ledger.TryReserve(context.Background(), id, 2)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if !r.UnitPrice.Equal(decimal.RequireFromString("9.99")) {
		t.Fatalf("unit price: %s", r.UnitPrice)
	}
	if r.ProductName != "Glacier Mug" || r.Quantity != 2 {
		t.Fatalf("unexpected reservation: %+v", r)
	}
	if got := currentStock(t, db, id); got != 3 {
		t.Fatalf("stock after reserve: %d", got)
	}
}

func TestTryReserveInsufficientStock(t *testing.T) {
	db := openTestDB(t)
	id := seedProduct(t, db, "Ice Axe", "20.00", 1, true)
	ledger := NewLedger(db)

	_, err := ledger.TryReserve(context.Background(), id, 2)
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	var ise *InsufficientStockError
	if !errors.As(err, &ise) || ise.ProductName != "Ice Axe" {
		t.Fatalf("expected product name in error, got %v", err)
	}
	// 失败不能扣库存
	if got := currentStock(t, db, id); got != 1 {
		t.Fatalf("stock changed on failure: %d", got)
	}
}

func TestTryReserveUnknownProduct(t *testing.T) {
	db := openTestDB(t)
	ledger := NewLedger(db)

	_, err := ledger.TryReserve(context.Background(), "no-such-id", 1)
	if !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestTryReserveInactiveProduct(t *testing.T) {
	db := openTestDB(t)
	id := seedProduct(t, db, "Retired Jacket", "49.50", 10, false)
	ledger := NewLedger(db)

	_, err := ledger.TryReserve(context.Background(), id, 1)
	if !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected not found for inactive, got %v", err)
	}
	if got := currentStock(t, db, id); got != 10 {
		t.Fatalf("stock changed for inactive: %d", got)
	}
}

func TestReleaseRestoresStock(t *testing.T) {
	db := openTestDB(t)
	id := seedProduct(t, db, "Thermal Flask", "15.25", 4, true)
	ledger := NewLedger(db)

	if _, err := ledger.TryReserve(context.Background(), id, 3); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := ledger.Release(context.Background(), id, 3); err != nil {
		t.Fatalf("release: %v", err)
	}
	if got := currentStock(t, db, id); got != 4 {
		t.Fatalf("stock after release: %d", got)
	}
}

func TestConcurrentReserveLastUnit(t *testing.T) {
	db := openTestDB(t)
	id := seedProduct(t, db, "Limited Print", "99.00", 1, true)
	ledger := NewLedger(db)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, errs[idx] = ledger.TryReserve(context.Background(), id, 1)
		}(i)
	}
	wg.Wait()

	success := 0
	for _, err := range errs {
		if err == nil {
			success++
			continue
		}
		if !errors.Is(err, ErrInsufficientStock) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly one success, got %d", success)
	}
	if got := currentStock(t, db, id); got != 0 {
		t.Fatalf("final stock: %d", got)
	}
}
