package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"digitocr/internal/config"
	"digitocr/internal/engine"
	"digitocr/internal/trainer"
)

const defaultConfigPath = "configs/digitocr.yaml"

func main() {
	cfgPath := flag.String("config", defaultConfigPath, "Path to YAML config")
	root := flag.String("root", "", "Directory of .jsonl sample files and shard-NNNNNN.tar shards")
	hiddenSize := flag.Int("hidden-size", 0, "Hidden layer size for a fresh network")
	statePath := flag.String("state", "", "Override parameter record path")
	batchSize := flag.Int("batch-size", 0, "Samples per Train call")
	passes := flag.Int("passes", 0, "Passes over the sample set")
	seed := flag.Int64("seed", 0, "PRNG seed")
	logEvery := flag.Int("log-every", 0, "Log every N batches")

	flag.Parse()

	cfg, err := config.Load(*cfgPath, *cfgPath == defaultConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	cfg.ApplyOverrides(config.Overrides{
		TrainRoot:  *root,
		HiddenSize: *hiddenSize,
		StatePath:  *statePath,
		BatchSize:  *batchSize,
		Passes:     *passes,
		Seed:       *seed,
		LogEvery:   *logEvery,
	})

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	if cfg.TrainRoot == "" {
		log.Fatalf("invalid config: train_root must be set")
	}
	log.Printf("seed=%d", cfg.Seed)
	if !cfg.UsePersistence {
		log.Printf("warning: use_persistence=false, trained parameters will be discarded")
	}

	eng, err := engine.Open(engine.Options{
		HiddenSize:     cfg.HiddenSize,
		UsePersistence: cfg.UsePersistence,
		StatePath:      cfg.StatePath,
		Seed:           cfg.Seed,
		DeferSave:      true,
	})
	if err != nil {
		log.Fatalf("failed to open engine: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runCfg := trainer.RunConfig{
		Root:      cfg.TrainRoot,
		BatchSize: cfg.BatchSize,
		Passes:    cfg.Passes,
		LogEvery:  cfg.LogEvery,
		Seed:      cfg.Seed,
	}

	sum, err := trainer.Run(ctx, runCfg, eng)
	if err != nil {
		log.Fatalf("training failed: %v", err)
	}
	log.Printf("done samples=%d batches=%d passes=%d loss=%.4f", sum.Samples, sum.Batches, sum.Passes, sum.LastLoss)
}
