package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"glacier_catalog/internal/config"
	"glacier_catalog/internal/queue"

	"go.uber.org/zap"
)

// worker 消费 Kafka 上的订单创建事件并发送下单确认通知。
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

	consumer := queue.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID)
	defer consumer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zap.S().Infow("order notification worker started",
		"brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic, "group", cfg.KafkaGroupID)
	consumer.Run(ctx)
}
