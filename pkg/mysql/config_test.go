package mysql

import (
	"testing"
	"time"
)

func TestConfig_WithDefaults(t *testing.T) {
	cfg := Config{Host: "db", User: "u", Password: "p", DBName: "ledger"}.WithDefaults()

	if cfg.Port != 3306 {
		t.Errorf("port: got %d", cfg.Port)
	}
	if cfg.MaxOpenConns != 100 || cfg.MaxIdleConns != 10 {
		t.Errorf("pool: open=%d idle=%d", cfg.MaxOpenConns, cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime != 30*time.Minute {
		t.Errorf("lifetime: got %v", cfg.ConnMaxLifetime)
	}
	if cfg.MaxRetries != 10 || cfg.RetryInterval != 2*time.Second {
		t.Errorf("retry: %d / %v", cfg.MaxRetries, cfg.RetryInterval)
	}
}

func TestConfig_DSN(t *testing.T) {
	cfg := Config{Host: "db", Port: 3307, User: "u", Password: "p", DBName: "ledger"}
	want := "u:p@tcp(db:3307)/ledger?charset=utf8mb4&parseTime=True&loc=Local"
	if got := cfg.DSN(); got != want {
		t.Errorf("DSN: got %q, want %q", got, want)
	}
}

func TestConfig_Enabled(t *testing.T) {
	if (&Config{}).Enabled() {
		t.Error("empty config should be disabled")
	}
	if !(&Config{Host: "db"}).Enabled() {
		t.Error("config with host should be enabled")
	}
}
