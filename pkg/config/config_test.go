package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q, want :8080", cfg.Addr)
	}
	if cfg.SettleDelay != 500*time.Millisecond {
		t.Errorf("SettleDelay = %s, want 500ms", cfg.SettleDelay)
	}
	if cfg.BusyMaxAttempts != 3 {
		t.Errorf("BusyMaxAttempts = %d, want 3", cfg.BusyMaxAttempts)
	}
	if cfg.UseMockPrinter {
		t.Error("UseMockPrinter = true, want false")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SETTLE_DELAY", "2s")
	t.Setenv("PRINTER_FALLBACKS", "EPSON_XP8700,Backup_Printer")
	t.Setenv("BUSY_MAX_ATTEMPTS", "5")
	t.Setenv("USE_MOCK_PRINTER", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SettleDelay != 2*time.Second {
		t.Errorf("SettleDelay = %s, want 2s", cfg.SettleDelay)
	}
	if len(cfg.PrinterFallbacks) != 2 || cfg.PrinterFallbacks[0] != "EPSON_XP8700" {
		t.Errorf("PrinterFallbacks = %v", cfg.PrinterFallbacks)
	}
	if cfg.BusyMaxAttempts != 5 {
		t.Errorf("BusyMaxAttempts = %d, want 5", cfg.BusyMaxAttempts)
	}
	if !cfg.UseMockPrinter {
		t.Error("UseMockPrinter = false, want true")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("BUSY_MAX_ATTEMPTS", "0")
	if _, err := Load(); err == nil {
		t.Error("Load accepted BUSY_MAX_ATTEMPTS=0")
	}
}
