// Command eventsapi serves GET /events/{user_id} from Postgres, optionally behind Redis.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/torosent/vuload/internal/eventsapi"
)

func main() {
	logger := log.New(os.Stderr, "[eventsapi] ", log.LstdFlags)
	if err := run(logger); err != nil {
		logger.Printf("error: %v", err)
		os.Exit(1)
	}
}

func run(logger *log.Logger) error {
	cfg, err := eventsapi.LoadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pg, err := eventsapi.NewPostgresStore(ctx, cfg.DatabaseURL, cfg.MaxConns)
	if err != nil {
		return err
	}
	defer pg.Close()
	logger.Println("Connected to PostgreSQL")

	var store eventsapi.Store = pg
	if cfg.CacheEnabled() {
		cache, err := eventsapi.NewRedisCache(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return err
		}
		defer cache.Close()
		store = eventsapi.NewCachedStore(pg, cache, cfg.CacheTTL, logger)
		logger.Printf("Caching events in Redis at %s for %s", cfg.RedisAddr, cfg.CacheTTL)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           eventsapi.NewRouter(store, logger),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("Listening on %s", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Println("Stopped")
	return nil
}
