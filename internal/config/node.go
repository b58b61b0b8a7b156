package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type NodeConfig struct {
	GenesisAdmin  string `env:"GENESIS_ADMIN,required,notEmpty"`
	TreasuryOwner string `env:"TREASURY_OWNER" envDefault:"xkart-treasury"`
	GenesisSupply uint64 `env:"GENESIS_SUPPLY" envDefault:"1000000000"`

	TransferFee        uint64 `env:"TRANSFER_FEE" envDefault:"0"`
	DedupWindowMins    int    `env:"TX_DEDUP_WINDOW_MINUTES" envDefault:"1440"`
	PermittedDriftSecs int    `env:"TX_PERMITTED_DRIFT_SECONDS" envDefault:"120"`
	CampaignSweepSecs  int    `env:"CAMPAIGN_SWEEP_SECONDS" envDefault:"30"`
}

func LoadNode() (NodeConfig, error) {
	var cfg NodeConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}
	if cfg.CampaignSweepSecs <= 0 {
		return cfg, fmt.Errorf("CAMPAIGN_SWEEP_SECONDS must be positive, got %d", cfg.CampaignSweepSecs)
	}
	return cfg, nil
}
