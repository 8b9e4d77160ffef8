package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/internal/app"
	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/internal/infra"
	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/internal/infra/metrics"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	// 1. Pprof server (localhost only)
	go func() {
		slog.Info("pprof server started on localhost:6060")
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			slog.Error("pprof server failed", slog.Any("error", err))
		}
	}()

	// 2. System bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(); err != nil {
		slog.Error("bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer bootstrap.Shutdown()

	infra.PrintBanner(bootstrap.Config)

	// 3. Graceful shutdown context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Metrics endpoint
	if listen := bootstrap.Config.Metrics.Listen; listen != "" {
		reg := metrics.Init()
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(reg))
		srv := &http.Server{Addr: listen, Handler: mux}
		go func() {
			slog.Info("metrics server started", slog.String("listen", listen))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		defer func() {
			shutCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(shutCtx)
		}()
	}

	// 5. Run the reconstruction service (Hotpath Loop)
	slog.InfoContext(ctx, "order book service starting", slog.String("symbol", bootstrap.Config.Feed.Symbol))
	if err := bootstrap.Service.Run(ctx); err != nil && err != context.Canceled {
		slog.Error("service exited", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("shut down gracefully")
}
