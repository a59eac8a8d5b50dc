package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":3002" {
		t.Fatalf("http addr: %s", cfg.HTTPAddr)
	}
	if cfg.OrderRateLimit != 100 || cfg.OrderRateWindow != time.Second {
		t.Fatalf("rate limit defaults: %d / %s", cfg.OrderRateLimit, cfg.OrderRateWindow)
	}
	if len(cfg.KafkaBrokers) != 1 || cfg.KafkaBrokers[0] != "localhost:9092" {
		t.Fatalf("brokers: %v", cfg.KafkaBrokers)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("ORDER_RATE_WINDOW_SEC", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":9000" {
		t.Fatalf("http addr: %s", cfg.HTTPAddr)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Fatalf("brokers: %v", cfg.KafkaBrokers)
	}
	if cfg.OrderRateWindow != 5*time.Second {
		t.Fatalf("rate window: %s", cfg.OrderRateWindow)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("ORDER_RATE_LIMIT", "0")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for zero rate limit")
	}
}
