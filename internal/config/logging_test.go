package config

import "testing"

func TestLoadLogDefaults(t *testing.T) {
	cfg, err := LoadLog()
	if err != nil {
		t.Fatalf("LoadLog() error = %v", err)
	}
	if cfg.Level != "info" {
		t.Fatalf("Level = %q, want info", cfg.Level)
	}
	if cfg.FileMaxMB != 10 {
		t.Fatalf("FileMaxMB = %d, want 10", cfg.FileMaxMB)
	}
}

func TestLoadLogParse(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FILE_MAX_MB", "25")

	cfg, err := LoadLog()
	if err != nil {
		t.Fatalf("LoadLog() error = %v", err)
	}
	if cfg.Level != "debug" || cfg.FileMaxMB != 25 {
		t.Fatalf("unexpected log config: %+v", cfg)
	}
}
