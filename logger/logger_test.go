package logger

import (
	"testing"
)

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.Level != "info" {
		t.Errorf("Level = %q, want %q", cfg.Level, "info")
	}
	if cfg.Format != "console" {
		t.Errorf("Format = %q, want %q", cfg.Format, "console")
	}
	if cfg.Output != "stdout" {
		t.Errorf("Output = %q, want %q", cfg.Output, "stdout")
	}
	if !cfg.Timestamp {
		t.Error("Timestamp = false, want true")
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := Config{Level: "info", Format: "json"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}

	cfg = Config{Level: "verbose", Format: "json"}
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() = nil for invalid level, want error")
	}

	cfg = Config{Level: "info", Format: "xml"}
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() = nil for invalid format, want error")
	}
}

func TestNew_InvalidLevelFallsBack(t *testing.T) {
	log := New(&Config{Level: "nonsense", Format: "json"}, "test")
	if log == nil {
		t.Fatal("New() returned nil")
	}
	// Should not panic when logging.
	log.Info("hello")
}

func TestWithComponent(t *testing.T) {
	log := Nop().WithComponent("registry")
	if log == nil {
		t.Fatal("WithComponent() returned nil")
	}
	log.Debug("tagged")
}

func TestFields(t *testing.T) {
	m := Fields("service", "orders", "count", 3)
	if m["service"] != "orders" {
		t.Errorf("Fields()[service] = %v, want orders", m["service"])
	}
	if m["count"] != 3 {
		t.Errorf("Fields()[count] = %v, want 3", m["count"])
	}

	// Odd trailing value is dropped.
	m = Fields("only")
	if len(m) != 0 {
		t.Errorf("Fields() with dangling key = %v, want empty", m)
	}
}
