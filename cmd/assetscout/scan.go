package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/HerbHall/assetscout/internal/printscan"
	"go.uber.org/zap"
)

// runScan performs one discovery pass and prints the report as JSON.
func runScan(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to configuration file")
	timeout := fs.Duration("timeout", 0, "overall scan ceiling (default from printscan.scan_timeout)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	v, logger, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	var cfg printscan.Config
	if err := v.UnmarshalKey("printscan", &cfg); err != nil {
		return fmt.Errorf("decode printscan config: %w", err)
	}
	if *timeout > 0 {
		cfg.ScanTimeout = *timeout
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := printscan.New(cfg, logger.Named("printscan")).Run(ctx)
	if report != nil {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(report); encErr != nil {
			return fmt.Errorf("encode report: %w", encErr)
		}
		logger.Info("scan finished",
			zap.Int("printers", len(report.Printers)),
			zap.Int("hosts_probed", report.HostsProbed),
			zap.Duration("duration", report.Duration),
		)
	}
	return err
}
