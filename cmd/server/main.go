package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"glacier_catalog/internal/catalog"
	"glacier_catalog/internal/config"
	"glacier_catalog/internal/inventory"
	"glacier_catalog/internal/model"
	"glacier_catalog/internal/order"
	"glacier_catalog/internal/queue"
	"glacier_catalog/internal/router"

	"github.com/gin-gonic/gin"
	rd "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	zap.ReplaceGlobals(logger)
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		zap.S().Fatalf("load config: %v", err)
	}

	// 1. 连接 SQLite，自动建表
	db, err := gorm.Open(sqlite.Open(cfg.DBPath), &gorm.Config{})
	if err != nil {
		zap.S().Fatalf("db open: %v", err)
	}
	if err := db.AutoMigrate(
		&model.Product{},
		&model.Category{},
		&model.Order{},
		&model.OrderItem{},
	); err != nil {
		zap.S().Fatalf("db migrate: %v", err)
	}

	rdb := rd.NewClient(&rd.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})

	// 订单事件管道：outbox(Redis Stream) → relay → Kafka
	producer := queue.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer producer.Close()
	outbox := queue.NewOutbox(rdb, cfg.OrderEventStream)
	relay := queue.NewRelay(rdb, producer, cfg.OrderEventStream, cfg.OrderEventGroup, cfg.OrderEventConsumer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go relay.Run(ctx)

	ledger := inventory.NewLedger(db)
	coord := order.NewCoordinator(db, ledger, outbox)
	cat := catalog.New(db)

	r := gin.Default()
	router.Setup(r, db, rdb, coord, cat, cfg)

	if err := r.Run(cfg.HTTPAddr); err != nil {
		zap.S().Fatalf("http server: %v", err)
	}
}
