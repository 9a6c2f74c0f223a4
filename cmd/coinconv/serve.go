package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/damon-houk/coin-exchange-widget/internal/infrastructure/handler"
	"github.com/damon-houk/coin-exchange-widget/internal/infrastructure/middleware"
)

// shutdownTimeout bounds the graceful HTTP shutdown
const shutdownTimeout = 5 * time.Second

// --- Serve Command ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the conversion widget over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runServer(ctx)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides server.addr)")
}

func runServer(ctx context.Context) error {
	log.Info("Starting coin exchange widget", map[string]interface{}{
		"version": version,
		"addr":    cfg.Server.Addr,
		"storage": cfg.Storage.Driver,
	})

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	conversionHandler := handler.NewConversionHandler(a.store, a.directory, handler.Settings{
		MaxDecimals:   cfg.Exchange.MaxDecimals,
		DebounceDelay: cfg.Exchange.DebounceDelay,
		CacheTTL:      cfg.Exchange.CacheTTL,
	}, log)

	// Setup router
	router := mux.NewRouter()
	router.Use(middleware.RequestIDMiddleware)
	router.Use(middleware.LoggingMiddleware(log))
	conversionHandler.RegisterRoutes(router)

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("Server listening", map[string]interface{}{
			"addr": cfg.Server.Addr,
		})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		// A failed coin fetch is reported on the store, not fatal to the server
		a.store.Start(gctx)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		log.Info("Shutting down", nil)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
