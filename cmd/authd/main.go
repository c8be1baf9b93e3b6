package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gummaworks/gauth/internal/httpd"
	"github.com/gummaworks/gauth/internal/platform/obs"
)

func main() {
	logger := obs.Logger()

	cfg, err := httpd.LoadConfigFromEnv()
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}
	addr := flag.String("addr", cfg.Addr, "listen address")
	flag.Parse()
	cfg.Addr = *addr

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Error("serve", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg httpd.Config) error {
	obs.Init()

	server, err := httpd.New(cfg, nil)
	if err != nil {
		return err
	}
	defer server.Close()
	server.StartSweep(ctx)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()
	obs.Logger().Info("listening", "addr", cfg.Addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
