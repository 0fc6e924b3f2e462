package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"cryptoInsight/config"
	"cryptoInsight/internal/adapters/binanceclient"
	"cryptoInsight/internal/adapters/kraken"
	"cryptoInsight/internal/adapters/logger"
	"cryptoInsight/internal/indicators"
	"cryptoInsight/internal/marketdata"
	"cryptoInsight/internal/ports"
	"cryptoInsight/internal/utils"
)

func main() {
	symbol := flag.String("symbol", "BTC", "Coin symbol (BTC, ETH, SOL, XRP)")
	days := flag.Int("days", marketdata.DefaultRange, "Visible days to export")
	out := flag.String("out", "", "Output CSV path (default data/<SYMBOL>_<days>d_<date>.csv)")
	flag.Parse()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := logger.NewStdLogger(cfg.LogLevel)
	ctx := context.Background()

	// 3. Initialize Market Data Source
	var source ports.RawBarSource
	switch cfg.Provider {
	case config.ProviderBinance:
		source, err = binanceclient.New(binanceclient.Config{
			APIKey:     cfg.APIKey,
			SecretKey:  cfg.SecretKey,
			UseTestnet: cfg.IsTestnet,
			Timeout:    cfg.HTTPTimeout,
			Logger:     appLogger,
		})
	default:
		source, err = kraken.New(kraken.Config{BaseURL: cfg.KrakenBaseURL, Timeout: cfg.HTTPTimeout, Logger: appLogger})
	}
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize %s client: %v", cfg.Provider, err)
	}

	fetcher, err := marketdata.NewFetcher(marketdata.Config{Source: source, Logger: appLogger})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize fetcher: %v", err)
	}

	sym := strings.ToUpper(*symbol)
	fmt.Printf("Fetching %d days of %s bars from %s...\n", *days, sym, source.Name())
	series, err := fetcher.Fetch(ctx, sym, *days)
	if err != nil {
		appLogger.Error(ctx, err, "Error fetching bars")
		os.Exit(1)
	}

	frame, err := indicators.ComputeFrame(series)
	if err != nil {
		appLogger.Error(ctx, err, "Error computing indicators")
		os.Exit(1)
	}
	frame = frame.Window(*days)

	filename := *out
	if filename == "" {
		filename = fmt.Sprintf("data/%s_%dd_%s.csv", sym, *days, time.Now().UTC().Format("20060102"))
	}
	if err := utils.WriteFrameToFile(frame, filename); err != nil {
		appLogger.Error(ctx, err, "Error writing CSV")
		os.Exit(1)
	}
	appLogger.Info(ctx, "Saved to", map[string]interface{}{"filename": filename, "rows": frame.Bars.Len()})
}
