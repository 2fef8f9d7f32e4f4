// Command dealwatch runs the eBay deal-detection and price-tracking MCP
// server over stdio.
package main

import (
	"flag"
	"log"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/guarzo/dealwatch/internal/config"
	"github.com/guarzo/dealwatch/internal/deals"
	"github.com/guarzo/dealwatch/internal/ebay"
	"github.com/guarzo/dealwatch/internal/store"
	"github.com/guarzo/dealwatch/internal/tools"
	"github.com/guarzo/dealwatch/internal/tracker"
)

const version = "0.2.0"

func main() {
	dbPath := flag.String("db", "", "tracking database path (overrides DEALWATCH_DB)")
	flag.Parse()

	log.SetPrefix("dealwatch: ")
	log.SetFlags(0)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if cfg.EbayAppID == "" {
		log.Printf("warning: EBAY_APP_ID not set; marketplace tools will fail until configured")
	}

	st, err := store.Open(store.DefaultConfig(cfg.DBPath))
	if err != nil {
		log.Fatalf("open tracking database %s: %v", cfg.DBPath, err)
	}
	defer st.Close()

	client := ebay.NewClient(ebay.ClientConfig{
		AppID:   cfg.EbayAppID,
		Timeout: cfg.RequestTimeout,
		Retry: ebay.RetryPolicy{
			MaxAttempts: cfg.MaxRetries + 1,
			Backoff:     500 * time.Millisecond,
		},
		RateLimit: rate.Every(time.Second),
	})

	finder := deals.NewFinder(client, deals.Config{
		LookbackDays:      cfg.LookbackDays,
		SampleSize:        cfg.SampleSize,
		DiscountThreshold: cfg.DiscountThreshold,
	})
	svc := tracker.NewService(st, client)

	srv := tools.New(version, client, finder, svc)
	if err := srv.ServeStdio(); err != nil {
		log.Printf("server stopped: %v", err)
		os.Exit(1)
	}
}
