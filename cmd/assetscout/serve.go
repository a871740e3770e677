package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/HerbHall/assetscout/internal/auth"
	"github.com/HerbHall/assetscout/internal/config"
	"github.com/HerbHall/assetscout/internal/event"
	"github.com/HerbHall/assetscout/internal/inventory"
	"github.com/HerbHall/assetscout/internal/printscan"
	"github.com/HerbHall/assetscout/internal/registry"
	"github.com/HerbHall/assetscout/internal/server"
	"github.com/HerbHall/assetscout/internal/store"
	"github.com/HerbHall/assetscout/internal/version"
	"github.com/HerbHall/assetscout/internal/ws"
	"github.com/HerbHall/assetscout/pkg/plugin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func runServe(args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	v, logger, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return runAgent(ctx, v, logger)
}

// runAgent opens the store, starts the inventory module and serves HTTP
// until ctx is cancelled. Both serve and the OS service run it.
func runAgent(ctx context.Context, v *viper.Viper, logger *zap.Logger) error {
	logger.Info("AssetScout agent starting", zap.String("version", version.Short()))

	dbPath := v.GetString("database.path")
	if dbPath == "" {
		dbPath = "assetscout.db"
	}
	db, err := store.New(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.CheckVersion(ctx, version.Short()); err != nil {
		return err
	}
	logger.Info("database initialized",
		zap.String("component", "database"),
		zap.String("path", dbPath),
	)

	var scanCfg printscan.Config
	if err := v.UnmarshalKey("printscan", &scanCfg); err != nil {
		return fmt.Errorf("decode printscan config: %w", err)
	}

	bus := event.NewBus(logger.Named("event"))
	cfg := config.New(v)

	reg := registry.New(logger.Named("registry"))
	if err := reg.Register(inventory.New(inventory.WithScanConfig(scanCfg))); err != nil {
		return err
	}

	if err := reg.InitAll(ctx, func(name string) plugin.Dependencies {
		return plugin.Dependencies{
			Config: cfg.Sub(name),
			Logger: logger.Named(name),
			Store:  db,
			Bus:    bus,
		}
	}); err != nil {
		return err
	}
	if err := reg.StartAll(ctx); err != nil {
		return err
	}

	wsHandler := ws.NewHandler(bus, logger.Named("ws"))
	defer wsHandler.Close()

	var authn server.Authenticator
	if secret := v.GetString("auth.jwt_secret"); secret != "" {
		authn = auth.NewTokenService([]byte(secret), v.GetString("auth.issuer"))
	} else {
		logger.Warn("auth.jwt_secret not set, API is unauthenticated",
			zap.String("component", "auth"),
		)
	}

	var srvCfg server.Config
	if err := v.UnmarshalKey("server", &srvCfg); err != nil {
		return fmt.Errorf("decode server config: %w", err)
	}
	ready := func(ctx context.Context) error { return db.Ping(ctx) }
	srv := server.New(srvCfg.Addr(), reg, logger.Named("server"), ready, authn, wsHandler)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	reg.StopAll(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	logger.Info("AssetScout agent stopped")
	return runErr
}
