// Package app wires the engine, stream workers and projector together.
package app

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/internal/engine"
	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/internal/event"
	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/internal/infra"
	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/internal/infra/binance"
	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/internal/infra/publish"
	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/internal/storage"
)

// Bootstrap orchestrates the application startup sequence.
type Bootstrap struct {
	Config    *infra.Config
	MetaStore *storage.MetaStore
	Rest      *binance.RestClient
	Publisher *publish.RedisPublisher

	Service *Service
}

// NewBootstrap creates a new Bootstrap instance.
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization.
func (b *Bootstrap) Initialize() error {
	event.Warmup()

	cfg, err := infra.LoadConfig(infra.ResolveConfigPath())
	if err != nil {
		return err
	}
	b.Config = cfg

	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)
	slog.Info("bootstrapping", "app", cfg.App.Name, "symbol", cfg.Feed.Symbol)

	dataDir := filepath.Join(infra.GetWorkspaceDir(), "data")
	if err := infra.EnsureDir(dataDir); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	metaPath := cfg.Storage.MetaDBPath
	if metaPath == "" {
		metaPath = filepath.Join(dataDir, "meta.db")
	}
	metaStore, err := storage.NewMetaStore(metaPath, cfg.MetaTTL())
	if err != nil {
		return err
	}
	b.MetaStore = metaStore
	slog.Info("meta store initialized (WAL-mode)", "path", metaPath)

	b.Rest = binance.NewRestClient(cfg.Feed.RestURL)

	if cfg.Publish.Enabled {
		b.Publisher = publish.NewRedisPublisher(cfg.Publish.RedisAddr, cfg.Publish.Channel)
		slog.Info("redis publisher ready", "addr", cfg.Publish.RedisAddr, "channel", cfg.Publish.Channel)
	}

	b.Service = NewService(cfg, b.Rest, b.MetaStore, b.Publisher)
	return nil
}

var _ engine.DepthFetcher = (*binance.RestClient)(nil)

// Shutdown releases held resources.
func (b *Bootstrap) Shutdown() {
	if b.Publisher != nil {
		b.Publisher.Close()
	}
	if b.MetaStore != nil {
		b.MetaStore.Close()
	}
}
