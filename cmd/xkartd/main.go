package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"xkart/internal/asset"
	"xkart/internal/authority"
	"xkart/internal/campaign"
	"xkart/internal/config"
	"xkart/internal/logging"
	"xkart/internal/race"
	"xkart/internal/token"
)

func main() {
	cfg, err := config.LoadApp()
	if err != nil {
		panic(err)
	}
	logging.Init(cfg.Log)

	clock := clockwork.NewRealClock()
	admins := authority.New(cfg.Node.GenesisAdmin)
	ledger := token.New(admins, token.Config{
		Fee:            cfg.Node.TransferFee,
		FeeCollector:   token.Account{Owner: cfg.Node.TreasuryOwner, Sub: "fees"},
		DedupWindow:    time.Duration(cfg.Node.DedupWindowMins) * time.Minute,
		PermittedDrift: time.Duration(cfg.Node.PermittedDriftSecs) * time.Second,
		Clock:          clock,
	})
	registry := asset.NewRegistry(ledger)
	races := race.NewEngine(ledger, registry, admins, cfg.Node.TreasuryOwner)
	campaigns := campaign.NewEngine(ledger, registry, admins, cfg.Node.TreasuryOwner, clock)

	if cfg.Node.GenesisSupply > 0 {
		to := token.Account{Owner: cfg.Node.TreasuryOwner}
		if err := ledger.Mint(cfg.Node.GenesisAdmin, to, cfg.Node.GenesisSupply); err != nil {
			log.Fatal().Err(err).Msg("genesis mint failed")
		}
	}

	log.Info().
		Str("admin", cfg.Node.GenesisAdmin).
		Uint64("supply", ledger.TotalSupply()).
		Msg("xkartd up")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	sweep := time.Duration(cfg.Node.CampaignSweepSecs) * time.Second
	if sweep <= 0 {
		sweep = 30 * time.Second
	}
	ticker := time.NewTicker(sweep)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := campaigns.ExpireDue(); n > 0 {
				log.Info().Int("count", n).Msg("campaigns expired")
			}
		case sig := <-stop:
			log.Info().
				Str("signal", sig.String()).
				Int("races", len(races.All())).
				Int("campaigns", len(campaigns.All())).
				Msg("shutting down")
			return
		}
	}
}
