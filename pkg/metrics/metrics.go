package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// OrdersCreated 成功创建的订单数。
	OrdersCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "glacier",
		Subsystem: "catalog",
		Name:      "orders_created_total",
		Help:      "Total number of successfully created orders.",
	})

	// OrderFailures 按错误码统计的下单失败数。
	OrderFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "glacier",
		Subsystem: "catalog",
		Name:      "order_failures_total",
		Help:      "Total number of failed order attempts by error code.",
	}, []string{"code"})

	// ReserveLatency 单次库存预留耗时（毫秒）。
	ReserveLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "glacier",
		Subsystem: "catalog",
		Name:      "stock_reserve_duration_ms",
		Help:      "Stock reservation latency in milliseconds.",
		Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
	})
)

func init() {
	prometheus.MustRegister(OrdersCreated, OrderFailures, ReserveLatency)
}

// Handler 暴露 /metrics 端点。
func Handler() http.Handler {
	return promhttp.Handler()
}
