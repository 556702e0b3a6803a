// Package main provides the CLI entrypoint for the URL scan relay.
// It wires subcommands (serve, scan, urlid), loads configuration, and initializes logging.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"scanrelay/internal/config"
	"scanrelay/internal/scanner"
	"scanrelay/pkg/logger"
	"scanrelay/pkg/metrics"
	"scanrelay/pkg/threatscan/virustotal"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// getScanner builds the VirusTotal client and the scan workflow on top of it.
// Outbound requests are counted through mp.
func getScanner(ctx context.Context, cfg *config.Config, mp metric.MeterProvider) scanner.Scanner {
	transport, err := metrics.NewTransport(http.DefaultTransport, mp)
	if err != nil {
		logger.Fatal(ctx, "could not create upstream transport", zap.Error(err))
	}

	client := virustotal.New(&http.Client{
		Timeout:   cfg.VirusTotal.Timeout,
		Transport: transport,
	}, cfg.VirusTotal.BaseURL, cfg.VirusTotal.APIKey)

	opts := scanner.NewOptions(cfg)
	opts.MeterProvider = mp
	s, err := scanner.New(client, opts)
	if err != nil {
		logger.Fatal(ctx, "could not create scanner", zap.Error(err))
	}

	return s
}

// main sets up the root Cobra command, loads configuration and logging, and
// registers subcommands before executing the CLI.
func main() {
	rootCmd := &cobra.Command{
		Use:   "scanrelay",
		Short: "Relays URL scan requests to VirusTotal",
	}

	// there is no way to access flags before command execution in cobra.
	// configPath here is parsed using the standard flags package.
	// following line is just added to prevent errors when Cobra is parsing the flags.
	rootCmd.PersistentFlags().StringP("config", "c", "config.yml", "Config File Path")

	configPath := flag.String("c", "config.yml", "The config file path")
	flag.Parse()

	log.Println("loading config ...")
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("could not load config file", err)
	}

	if err := logger.Setup(cfg.Environment, cfg.LogLevel); err != nil {
		log.Fatal("could not setup logger", err)
	}

	ctx := context.Background()

	defer func() {
		if p := recover(); p != nil {
			logger.Error(ctx, "captured panic, exiting...", zap.Any("panic", p))
			_ = logger.Get(ctx).Sync()

			panic(p)
		}
	}()

	if cfg.VirusTotal.APIKey == "" {
		logger.Warn(ctx, "VIRUSTOTAL_API_KEY is not set, scans will fail until it is configured")
	}

	rootCmd.AddCommand(
		serveCommand(cfg),
		scanCommand(cfg),
		urlIDCommand(),
	)

	err = rootCmd.Execute()
	_ = logger.Get(ctx).Sync()
	if err != nil {
		os.Exit(1) //nolint: gocritic
	}
}
