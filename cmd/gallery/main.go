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

	commonlog "eventgallery/server/common/log"
	"eventgallery/server/gallery/app"
)

func main() {
	if err := run(); err != nil {
		commonlog.Errorf("%v", err)
		commonlog.Sync()
		os.Exit(1)
	}
	commonlog.Sync()
}

func run() error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	server, err := app.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("initialize server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		commonlog.Infof("start http server on :%s", cfg.Port)
		if err := server.HTTPServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			_ = server.Shutdown(context.Background())
			return fmt.Errorf("run http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		commonlog.Warnf("shutdown server gracefully: %v", err)
	}
	return nil
}
