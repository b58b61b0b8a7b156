package config

import "testing"

func TestLoadNodeRequiresGenesisAdmin(t *testing.T) {
	t.Setenv("GENESIS_ADMIN", "")
	if _, err := LoadNode(); err == nil {
		t.Fatalf("expected error without GENESIS_ADMIN")
	}
}

func TestLoadNodeRejectsZeroSweep(t *testing.T) {
	t.Setenv("GENESIS_ADMIN", "deployer")
	t.Setenv("CAMPAIGN_SWEEP_SECONDS", "0")
	if _, err := LoadNode(); err == nil {
		t.Fatalf("expected error for zero sweep interval")
	}

	t.Setenv("CAMPAIGN_SWEEP_SECONDS", "-5")
	if _, err := LoadNode(); err == nil {
		t.Fatalf("expected error for negative sweep interval")
	}
}

func TestLoadNodeDefaults(t *testing.T) {
	t.Setenv("GENESIS_ADMIN", "deployer")

	cfg, err := LoadNode()
	if err != nil {
		t.Fatalf("LoadNode() error = %v", err)
	}
	if cfg.GenesisAdmin != "deployer" {
		t.Fatalf("GenesisAdmin = %q", cfg.GenesisAdmin)
	}
	if cfg.TreasuryOwner != "xkart-treasury" {
		t.Fatalf("TreasuryOwner = %q", cfg.TreasuryOwner)
	}
	if cfg.DedupWindowMins != 1440 {
		t.Fatalf("DedupWindowMins = %d", cfg.DedupWindowMins)
	}
}
