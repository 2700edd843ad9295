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

	"priceops/gateway/internal/app"
	"priceops/gateway/internal/config"
)

func main() {
	if path, loaded, err := loadEnvFile(); err != nil {
		log.Printf("env file %s not loaded: %v", path, err)
	} else if loaded > 0 {
		log.Printf("loaded %d vars from %s", loaded, path)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	srv, err := app.NewServer(cfg)
	if err != nil {
		log.Fatalf("init server failed: %v", err)
	}

	addr := fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)
	httpSrv := &http.Server{Addr: addr, Handler: srv.Handler()}

	go func() {
		log.Printf("gateway listening on %s", addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	srv.Close()
	log.Printf("gateway stopped")
}
