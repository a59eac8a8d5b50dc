package router

import (
	"errors"
	"net/http"

	"glacier_catalog/internal/catalog"
	"glacier_catalog/internal/config"
	"glacier_catalog/internal/middleware"
	"glacier_catalog/internal/model"
	"glacier_catalog/internal/order"
	"glacier_catalog/pkg/metrics"

	"github.com/gin-gonic/gin"
	rd "github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Setup 注册全部 HTTP 路由。
func Setup(r *gin.Engine, db *gorm.DB, rdb *rd.Client, coord *order.Coordinator, cat *catalog.Catalog, cfg config.AppConfig) {
	r.GET("/health", health(db))
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Catalog（只读）
	r.GET("/api/products", listProducts(cat))
	r.GET("/api/products/:id", getProduct(cat))
	r.GET("/api/products/:id/stock", getStock(cat))
	r.GET("/api/categories", listCategories(cat))
	r.GET("/api/search", searchProducts(cat))

	// Orders
	authed := r.Group("/api", middleware.BearerShape())
	authed.POST("/orders",
		middleware.RedisRateLimit(rdb, cfg.OrderRateLimit, cfg.OrderRateWindow),
		createOrder(coord))
	authed.GET("/orders/:id", getOrder(coord))
	authed.GET("/users/:user_id/orders", listUserOrders(coord))

	// 管理操作：仅允许修改状态标签
	admin := r.Group("/api", middleware.AdminToken(cfg.AdminToken))
	admin.PUT("/orders/:id/status", updateOrderStatus(coord))
	admin.PUT("/orders/:id/payment_status", updatePaymentStatus(coord))
}

// health 探活：校验数据库连接。
func health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "msg": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "catalog-service"})
	}
}

func listProducts(cat *catalog.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		views, err := cat.ListProducts(c.Request.Context(), c.Query("category"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": views})
	}
}

func getProduct(cat *catalog.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		view, err := cat.GetProduct(c.Request.Context(), c.Param("id"))
		if errors.Is(err, catalog.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"code": 404, "msg": "product not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": view})
	}
}

// getStock 查询商品当前库存。
func getStock(cat *catalog.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		stock, err := cat.GetStock(c.Request.Context(), c.Param("id"))
		if errors.Is(err, catalog.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"code": 404, "msg": "product not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": gin.H{"stock": stock}})
	}
}

func listCategories(cat *catalog.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		cats, err := cat.ListCategories(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": cats})
	}
}

func searchProducts(cat *catalog.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := c.Query("q")
		if q == "" {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "q is required"})
			return
		}
		views, err := cat.Search(c.Request.Context(), q)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": views})
	}
}

// createOrder 下单入口：校验、预留、定价、落库全部在 Coordinator 内完成，
// 这里只做请求解析与错误码映射。
func createOrder(coord *order.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			UserID        string              `json:"user_id" binding:"required"`
			Items         []order.LineRequest `json:"items"`
			PaymentMethod string              `json:"payment_method"`
			Notes         string              `json:"notes"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}

		o, err := coord.CreateOrder(c.Request.Context(), req.UserID, req.Items, req.PaymentMethod, req.Notes)
		if err != nil {
			writeOrderError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": o})
	}
}

func getOrder(coord *order.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		o, err := coord.GetOrder(c.Request.Context(), c.Param("id"))
		if errors.Is(err, order.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"code": 404, "msg": "order not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": o})
	}
}

func listUserOrders(coord *order.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		orders, err := coord.ListUserOrders(c.Request.Context(), c.Param("user_id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": orders})
	}
}

func updateOrderStatus(coord *order.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Status string `json:"status" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}
		if !model.ValidOrderStatus(req.Status) {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "invalid status"})
			return
		}
		if err := coord.UpdateStatus(c.Request.Context(), c.Param("id"), model.OrderStatus(req.Status)); err != nil {
			writeUpdateError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": gin.H{"order_id": c.Param("id"), "status": req.Status}})
	}
}

func updatePaymentStatus(coord *order.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			PaymentStatus string `json:"payment_status" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}
		if !model.ValidPaymentStatus(req.PaymentStatus) {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "invalid payment status"})
			return
		}
		if err := coord.UpdatePaymentStatus(c.Request.Context(), c.Param("id"), model.PaymentStatus(req.PaymentStatus)); err != nil {
			writeUpdateError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": gin.H{"order_id": c.Param("id"), "payment_status": req.PaymentStatus}})
	}
}

func writeUpdateError(c *gin.Context, err error) {
	if errors.Is(err, order.ErrOrderNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"code": 404, "msg": "order not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
}

// writeOrderError 将类型化下单错误映射为 HTTP 响应。
func writeOrderError(c *gin.Context, err error) {
	oe, ok := order.AsError(err)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
		return
	}
	status := http.StatusBadRequest
	switch oe.Code {
	case order.CodeProductNotFound:
		status = http.StatusNotFound
	case order.CodePersistenceFailure:
		status = http.StatusInternalServerError
	}
	body := gin.H{"code": status, "error_code": string(oe.Code), "msg": oe.Error()}
	if oe.ProductID != "" {
		body["product_id"] = oe.ProductID
	}
	c.JSON(status, body)
}
