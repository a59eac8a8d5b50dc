package order

import (
	"context"
	"errors"
	"sync"
	"testing"

	"glacier_catalog/internal/inventory"
	"glacier_catalog/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type captureSink struct {
	mu     sync.Mutex
	orders []*model.Order
}

func (s *captureSink) OrderCreated(ctx context.Context, o *model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append(s.orders, o)
	return nil
}

func newCoordinator(db *gorm.DB, sink EventSink) *Coordinator {
	return NewCoordinator(db, inventory.NewLedger(db), sink)
}

func countRows(t *testing.T, db *gorm.DB, m any) int64 {
	t.Helper()
	var n int64
	if err := db.Model(m).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func TestCreateOrderSuccess(t *testing.T) {
	db := openTestDB(t)
	idA := seedProduct(t, db, "Glacier Mug", "9.99", 5)
	idB := seedProduct(t, db, "Ice Axe", "20.00", 1)
	sink := &captureSink{}
	coord := newCoordinator(db, sink)

	o, err := coord.CreateOrder(context.Background(), "user-1", []LineRequest{
		{ProductID: idA, Quantity: 2},
		{ProductID: idB, Quantity: 1},
	}, "credit_card", "leave at door")
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	if o.TotalAmount.String() != "39.98" {
		t.Fatalf("total: %s", o.TotalAmount)
	}
	if o.Status != model.OrderStatusPending || o.PaymentStatus != model.PaymentStatusPending {
		t.Fatalf("status: %s / %s", o.Status, o.PaymentStatus)
	}
	if o.PaymentMethod != "credit_card" || o.Notes != "leave at door" {
		t.Fatalf("labels: %+v", o)
	}
	if len(o.Items) != 2 {
		t.Fatalf("items: %d", len(o.Items))
	}
	if o.Items[0].ProductName != "Glacier Mug" || !o.Items[0].Price.Equal(decimal.RequireFromString("9.99")) {
		t.Fatalf("item snapshot: %+v", o.Items[0])
	}
	if got := currentStock(t, db, idA); got != 3 {
		t.Fatalf("stock A: %d", got)
	}
	if got := currentStock(t, db, idB); got != 0 {
		t.Fatalf("stock B: %d", got)
	}
	if len(sink.orders) != 1 || sink.orders[0].ID != o.ID {
		t.Fatalf("event sink not notified: %+v", sink.orders)
	}
}

// total_amount 恒等于明细小计之和。
func TestCreateOrderTotalMatchesItems(t *testing.T) {
	db := openTestDB(t)
	idA := seedProduct(t, db, "Alpha", "3.33", 100)
	idB := seedProduct(t, db, "Beta", "0.07", 100)
	coord := newCoordinator(db, nil)

	o, err := coord.CreateOrder(context.Background(), "user-1", []LineRequest{
		{ProductID: idA, Quantity: 7},
		{ProductID: idB, Quantity: 13},
	}, "", "")
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	sum := o.Items[0].Subtotal().Add(o.Items[1].Subtotal())
	if !o.TotalAmount.Equal(sum) {
		t.Fatalf("total %s != sum %s", o.TotalAmount, sum)
	}
	// 3.33×7 + 0.07×13 = 23.31 + 0.91 = 24.22，精确无舍入
	if !o.TotalAmount.Equal(sum) || o.TotalAmount.String() != "24.22" {
		t.Fatalf("total: %s", o.TotalAmount)
	}
}

func TestCreateOrderPartialFailureLeavesNoTrace(t *testing.T) {
	db := openTestDB(t)
	idA := seedProduct(t, db, "Alpha", "5.00", 10)
	idB := seedProduct(t, db, "Beta", "7.50", 10)
	coord := newCoordinator(db, nil)

	_, err := coord.CreateOrder(context.Background(), "user-1", []LineRequest{
		{ProductID: idA, Quantity: 1},
		{ProductID: idB, Quantity: 2},
		{ProductID: "no-such-id", Quantity: 1},
	}, "", "")
	oe := mustCode(t, err, CodeProductNotFound)
	if oe.ProductID != "no-such-id" {
		t.Fatalf("error should identify invalid product, got %q", oe.ProductID)
	}

	if n := countRows(t, db, &model.Order{}); n != 0 {
		t.Fatalf("orders persisted: %d", n)
	}
	if n := countRows(t, db, &model.OrderItem{}); n != 0 {
		t.Fatalf("order items persisted: %d", n)
	}
	if got := currentStock(t, db, idA); got != 10 {
		t.Fatalf("stock A: %d", got)
	}
	if got := currentStock(t, db, idB); got != 10 {
		t.Fatalf("stock B: %d", got)
	}
}

func TestCreateOrderConcurrentLastUnit(t *testing.T) {
	db := openTestDB(t)
	id := seedProduct(t, db, "Limited Print", "99.00", 1)
	coord := newCoordinator(db, nil)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, errs[idx] = coord.CreateOrder(context.Background(), "user-1", []LineRequest{
				{ProductID: id, Quantity: 1},
			}, "", "")
		}(i)
	}
	wg.Wait()

	success, insufficient := 0, 0
	for _, err := range errs {
		if err == nil {
			success++
			continue
		}
		if oe, ok := AsError(err); ok && oe.Code == CodeInsufficientStock {
			insufficient++
			continue
		}
		t.Fatalf("unexpected error: %v", err)
	}
	if success != 1 || insufficient != n-1 {
		t.Fatalf("success=%d insufficient=%d", success, insufficient)
	}
	if got := currentStock(t, db, id); got != 0 {
		t.Fatalf("final stock: %d", got)
	}
	if n := countRows(t, db, &model.Order{}); n != 1 {
		t.Fatalf("orders persisted: %d", n)
	}
}

// 下单返回后立刻按 ID 读取，明细/总额/状态必须与返回值一致。
func TestCreateOrderReadAfterWrite(t *testing.T) {
	db := openTestDB(t)
	id := seedProduct(t, db, "Glacier Mug", "9.99", 5)
	coord := newCoordinator(db, nil)

	created, err := coord.CreateOrder(context.Background(), "user-1", []LineRequest{
		{ProductID: id, Quantity: 2},
	}, "", "")
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	fetched, err := coord.GetOrder(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if !fetched.TotalAmount.Equal(created.TotalAmount) {
		t.Fatalf("total mismatch: %s != %s", fetched.TotalAmount, created.TotalAmount)
	}
	if fetched.Status != created.Status || fetched.PaymentStatus != created.PaymentStatus {
		t.Fatalf("status mismatch")
	}
	if len(fetched.Items) != len(created.Items) {
		t.Fatalf("items mismatch: %d != %d", len(fetched.Items), len(created.Items))
	}
	for i := range fetched.Items {
		if fetched.Items[i].ProductID != created.Items[i].ProductID ||
			fetched.Items[i].Quantity != created.Items[i].Quantity ||
			!fetched.Items[i].Price.Equal(created.Items[i].Price) ||
			fetched.Items[i].ProductName != created.Items[i].ProductName {
			t.Fatalf("item %d mismatch: %+v != %+v", i, fetched.Items[i], created.Items[i])
		}
	}
}

func TestCreateOrderPersistenceFailureReleasesStock(t *testing.T) {
	db := openTestDB(t)
	id := seedProduct(t, db, "Alpha", "5.00", 10)
	coord := newCoordinator(db, nil)

	// 删掉明细表让落库失败：事务整体回滚，订单与明细都不可见
	if err := db.Migrator().DropTable(&model.OrderItem{}); err != nil {
		t.Fatalf("drop table: %v", err)
	}

	_, err := coord.CreateOrder(context.Background(), "user-1", []LineRequest{
		{ProductID: id, Quantity: 3},
	}, "", "")
	mustCode(t, err, CodePersistenceFailure)

	// 预留必须已全部回补
	if got := currentStock(t, db, id); got != 10 {
		t.Fatalf("stock leaked: %d", got)
	}
	if n := countRows(t, db, &model.Order{}); n != 0 {
		t.Fatalf("orders persisted: %d", n)
	}
}

func TestListUserOrders(t *testing.T) {
	db := openTestDB(t)
	id := seedProduct(t, db, "Alpha", "5.00", 10)
	coord := newCoordinator(db, nil)

	for i := 0; i < 2; i++ {
		if _, err := coord.CreateOrder(context.Background(), "user-1", []LineRequest{
			{ProductID: id, Quantity: 1},
		}, "", ""); err != nil {
			t.Fatalf("create order: %v", err)
		}
	}
	if _, err := coord.CreateOrder(context.Background(), "user-2", []LineRequest{
		{ProductID: id, Quantity: 1},
	}, "", ""); err != nil {
		t.Fatalf("create order: %v", err)
	}

	orders, err := coord.ListUserOrders(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(orders))
	}
	for _, o := range orders {
		if len(o.Items) != 1 {
			t.Fatalf("items not hydrated: %+v", o)
		}
	}
}

func TestUpdateStatus(t *testing.T) {
	db := openTestDB(t)
	id := seedProduct(t, db, "Alpha", "5.00", 10)
	coord := newCoordinator(db, nil)

	o, err := coord.CreateOrder(context.Background(), "user-1", []LineRequest{
		{ProductID: id, Quantity: 1},
	}, "", "")
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	if err := coord.UpdateStatus(context.Background(), o.ID, model.OrderStatusPreparing); err != nil {
		t.Fatalf("update status: %v", err)
	}
	if err := coord.UpdatePaymentStatus(context.Background(), o.ID, model.PaymentStatusPaid); err != nil {
		t.Fatalf("update payment status: %v", err)
	}

	fetched, err := coord.GetOrder(context.Background(), o.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if fetched.Status != model.OrderStatusPreparing || fetched.PaymentStatus != model.PaymentStatusPaid {
		t.Fatalf("status: %s / %s", fetched.Status, fetched.PaymentStatus)
	}

	if err := coord.UpdateStatus(context.Background(), "no-such-order", model.OrderStatusReady); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
