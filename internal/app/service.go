package app

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/internal/domain"
	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/internal/engine"
	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/internal/infra"
	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/internal/infra/binance"
	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/internal/infra/publish"
	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/internal/storage"
)

// Service is the running application: one engine, one projector, and
// one set of stream workers for the active symbol. Switching symbols
// rotates the engine session and restarts the workers under the new
// stream URLs.
type Service struct {
	cfg *infra.Config

	Engine    *engine.Engine
	Projector *engine.Projector
	Streams   *binance.StreamManager

	rest      *binance.RestClient
	metaStore *storage.MetaStore
}

// NewService assembles the engine, projector and stream manager.
func NewService(cfg *infra.Config, rest *binance.RestClient, metaStore *storage.MetaStore, publisher *publish.RedisPublisher) *Service {
	eng := engine.New(engine.Config{
		Symbol:        strings.ToUpper(cfg.Feed.Symbol),
		DepthLimit:    cfg.Feed.DepthLimit,
		TradeCapacity: cfg.View.TradeCapacity,
		TradeFreshFor: cfg.TradeFreshFor(),
	}, rest)

	var sinks []engine.Sink
	if publisher != nil {
		sinks = append(sinks, publisher)
	}

	params := engine.ViewParams{
		TickSize: 10_000, // placeholder until symbol metadata resolves
		Grouping: int(cfg.View.Grouping),
		Rows:     cfg.View.Rows,
	}
	proj := engine.NewProjector(eng, cfg.UpdateInterval(), params, sinks...)
	proj.SetPaused(cfg.View.StartPaused)

	streams := binance.NewStreamManager(cfg.Feed.WSURL, cfg.Feed.DiffIntervalMS, eng.Inbox(), eng.Generation)

	return &Service{
		cfg:       cfg,
		Engine:    eng,
		Projector: proj,
		Streams:   streams,
		rest:      rest,
		metaStore: metaStore,
	}
}

// Run starts the engine and projector loops and brings up the streams
// for the configured symbol. It blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.Engine.Run(ctx)
		return nil
	})
	g.Go(func() error {
		s.Projector.Run(ctx)
		return nil
	})

	s.SetSymbol(ctx, s.cfg.Feed.Symbol)

	err := g.Wait()
	s.Streams.Stop()
	return err
}

// SetSymbol rotates the session to a new symbol: bumps the generation
// so in-flight events from the old symbol are dropped, restarts the
// stream workers, and points the projector at the new tick size.
func (s *Service) SetSymbol(ctx context.Context, symbol string) {
	symbol = strings.ToUpper(symbol)

	meta := s.resolveMeta(ctx, symbol)
	s.Projector.SetTickSize(meta.TickMicros())

	gen := s.Engine.StartSession(ctx, symbol)
	s.Streams.Start(ctx, symbol)

	slog.Info("symbol active",
		slog.String("symbol", symbol),
		slog.Int64("generation", gen),
		slog.String("tick_size", meta.TickSize.String()))
}

// resolveMeta loads tick size and lot step from the local cache,
// falling back to the exchange, then to defaults.
func (s *Service) resolveMeta(ctx context.Context, symbol string) domain.SymbolMeta {
	if s.metaStore != nil {
		if meta, ok, err := s.metaStore.Get(ctx, symbol); err == nil && ok {
			return meta
		} else if err != nil {
			slog.Warn("meta cache read failed", "symbol", symbol, "error", err)
		}
	}

	meta, err := s.rest.FetchSymbolMeta(ctx, symbol)
	if err != nil {
		slog.Warn("exchangeInfo fetch failed, using defaults", "symbol", symbol, "error", err)
		return domain.DefaultSymbolMeta(symbol)
	}

	if s.metaStore != nil {
		if err := s.metaStore.Put(ctx, meta); err != nil {
			slog.Warn("meta cache write failed", "symbol", symbol, "error", err)
		}
	}
	return meta
}
