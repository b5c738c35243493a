package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"digitocr/internal/config"
	"digitocr/internal/engine"
	"digitocr/internal/server"
)

const defaultConfigPath = "configs/digitocr.yaml"

func main() {
	cfgPath := flag.String("config", defaultConfigPath, "Path to YAML config")
	hiddenSize := flag.Int("hidden-size", 0, "Hidden layer size for a fresh network")
	noPersist := flag.Bool("no-persist", false, "Keep parameters in memory only")
	statePath := flag.String("state", "", "Override parameter record path")
	listen := flag.String("listen", "", "Override listen address")
	staticDir := flag.String("static", "", "Directory of static UI files")
	seed := flag.Int64("seed", 0, "PRNG seed")

	flag.Parse()

	cfg, err := config.Load(*cfgPath, *cfgPath == defaultConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	cfg.ApplyOverrides(config.Overrides{
		HiddenSize:    *hiddenSize,
		NoPersistence: *noPersist,
		StatePath:     *statePath,
		ListenAddr:    *listen,
		StaticDir:     *staticDir,
		Seed:          *seed,
	})

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	eng, err := engine.Open(engine.Options{
		HiddenSize:     cfg.HiddenSize,
		UsePersistence: cfg.UsePersistence,
		StatePath:      cfg.StatePath,
		Seed:           cfg.Seed,
	})
	if err != nil {
		log.Fatalf("failed to open engine: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.New(eng, cfg.StaticDir),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	log.Printf("listen=%s hidden_size=%d persistence=%t seed=%d", cfg.ListenAddr, cfg.HiddenSize, cfg.UsePersistence, cfg.Seed)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("serve: %v", err)
	}
}
