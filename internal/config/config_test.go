package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"DUPLICATE_WINDOW", "UNDO_WINDOW", "DEFAULT_PAGE_LIMIT", "LEDGER_BACKEND", "KAFKA_BROKERS"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.DuplicateWindow != 24*time.Hour {
		t.Errorf("expected 24h duplicate window, got %s", cfg.DuplicateWindow)
	}
	if cfg.UndoWindow != 30*time.Minute {
		t.Errorf("expected 30m undo window, got %s", cfg.UndoWindow)
	}
	if cfg.DefaultPageLimit != 10 {
		t.Errorf("expected default page limit 10, got %d", cfg.DefaultPageLimit)
	}
	if cfg.LedgerBackend != BackendPostgres {
		t.Errorf("expected postgres backend, got %s", cfg.LedgerBackend)
	}
	if cfg.KafkaBrokers != nil {
		t.Errorf("expected no kafka brokers, got %v", cfg.KafkaBrokers)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("UNDO_WINDOW", "5m")
	t.Setenv("LEDGER_BACKEND", "Mongo")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("REDIS_DB", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.UndoWindow != 5*time.Minute {
		t.Errorf("expected 5m, got %s", cfg.UndoWindow)
	}
	if cfg.LedgerBackend != BackendMongo {
		t.Errorf("expected mongo backend, got %s", cfg.LedgerBackend)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "kafka-2:9092" {
		t.Errorf("unexpected brokers %v", cfg.KafkaBrokers)
	}
	if cfg.RedisDB != 3 {
		t.Errorf("expected redis db 3, got %d", cfg.RedisDB)
	}
}

func TestLoadInvalidDurationFallsBack(t *testing.T) {
	t.Setenv("DUPLICATE_WINDOW", "a day")
	t.Setenv("UNDO_WINDOW", "-1m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DuplicateWindow != 24*time.Hour {
		t.Errorf("expected fallback 24h, got %s", cfg.DuplicateWindow)
	}
	if cfg.UndoWindow != 30*time.Minute {
		t.Errorf("expected fallback 30m, got %s", cfg.UndoWindow)
	}
}
