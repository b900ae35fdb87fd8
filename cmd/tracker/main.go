// Command tracker launches the sports-event tracker: resolver, decoder,
// poller, live-state projector, history store, and HTTP render layer wired
// together and run until a termination signal arrives.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/coachpo/meltica/internal/config"
	"github.com/coachpo/meltica/internal/feed"
	"github.com/coachpo/meltica/internal/history"
	"github.com/coachpo/meltica/internal/httpapi"
	"github.com/coachpo/meltica/internal/live"
	"github.com/coachpo/meltica/internal/poller"
	"github.com/coachpo/meltica/internal/resolver"
	"github.com/coachpo/meltica/internal/telemetry"
)

const (
	loggerPrefix = "tracker "

	shutdownTimeout       = 10 * time.Second
	httpShutdownTimeout   = 5 * time.Second
	pollerShutdownTimeout = 5 * time.Second
	httpReadHeaderTimeout = 5 * time.Second
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := log.New(os.Stdout, loggerPrefix, log.LstdFlags|log.Lmicroseconds)

	cfg := config.FromEnv()
	logger.Printf("configuration loaded: addr=%s mapping=%s odds=%s interval=%s",
		cfg.Addr(), cfg.MappingEndpoint, cfg.OddsEndpoint, cfg.OddsPollingInterval)

	telemetryProvider, err := telemetry.NewProvider(ctx)
	if err != nil {
		logger.Fatalf("initialize telemetry: %v", err)
	}
	metrics := telemetry.New()

	res := resolver.New(cfg.MappingEndpoint, logger, metrics)
	decoder := feed.NewDecoder(res)
	projector := live.NewProjector(decoder)
	store := history.New(decoder, metrics)

	p := poller.New(cfg.OddsEndpoint, cfg.OddsPollingInterval, logger, metrics)
	// Registration order matters: the projector publishes the filtered live
	// view before the history store performs its dedup append and REMOVED
	// sweep, so /state can briefly reflect a snapshot newer than
	// /matchhistory, and a snapshot the projector rejects never reaches the
	// history store.
	p.AddListener(projector)
	p.AddListener(store)

	handler := httpapi.New(projector, store, logger)
	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler.Routes(),
		ReadHeaderTimeout: httpReadHeaderTimeout,
	}

	var lifecycle conc.WaitGroup
	p.Start(ctx)
	lifecycle.Go(func() {
		logger.Printf("http server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Printf("http server: %v", err)
		}
	})

	logger.Print("tracker started; awaiting shutdown signal")
	<-ctx.Done()
	logger.Print("shutdown signal received, initiating graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	shutdownStart := time.Now()
	gracefulShutdown(shutdownCtx, logger, server, p, &lifecycle, telemetryProvider)
	logger.Printf("shutdown completed in %v", time.Since(shutdownStart))
}

func gracefulShutdown(ctx context.Context, logger *log.Logger, server *http.Server, p *poller.Poller, lifecycle *conc.WaitGroup, telemetryProvider *telemetry.Provider) {
	step := func(name string, timeout time.Duration, fn func(context.Context) error) {
		stepCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		logger.Printf("shutdown: %s...", name)
		if err := fn(stepCtx); err != nil {
			logger.Printf("shutdown: %s failed: %v", name, err)
			return
		}
		logger.Printf("shutdown: %s completed", name)
	}

	step("stopping http server", httpShutdownTimeout, func(stepCtx context.Context) error {
		return server.Shutdown(stepCtx)
	})

	step("stopping poller", pollerShutdownTimeout, func(stepCtx context.Context) error {
		done := make(chan struct{})
		go func() {
			p.Stop()
			close(done)
		}()
		select {
		case <-done:
			return nil
		case <-stepCtx.Done():
			return fmt.Errorf("timeout waiting for poller to stop: %w", stepCtx.Err())
		}
	})

	logger.Print("shutdown: waiting for lifecycle goroutines")
	lifecycle.Wait()

	step("shutting down telemetry", httpShutdownTimeout, func(stepCtx context.Context) error {
		return telemetryProvider.Shutdown(stepCtx)
	})
}
