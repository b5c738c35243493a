package trainer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"digitocr/internal/config"
	"digitocr/internal/dataset"
	"digitocr/internal/model"
)

// Engine is the subset of engine.Engine the loop drives.
type Engine interface {
	Train(samples []model.Sample) error
	Loss(samples []model.Sample) (float64, error)
	Save() error
}

// RunConfig captures the knobs required by the training loop.
type RunConfig struct {
	Root      string
	BatchSize int
	Passes    int
	LogEvery  int
	Seed      int64
}

// Summary describes a finished run.
type Summary struct {
	Samples  int
	Batches  int
	Passes   int
	LastLoss float64
}

// Run trains eng on every sample found under cfg.Root. Batches are fed
// one at a time, so cancelling ctx stops the run between batches; the
// parameters reached so far are saved either way, once, at the end. eng
// should not save on its own after each Train call. A zero Seed is
// resolved the same way engine.Open resolves it.
func Run(ctx context.Context, cfg RunConfig, eng Engine) (Summary, error) {
	if cfg.BatchSize <= 0 {
		return Summary{}, errors.New("trainer: batch size must be > 0")
	}
	if cfg.Passes <= 0 {
		return Summary{}, errors.New("trainer: passes must be > 0")
	}
	if cfg.LogEvery <= 0 {
		cfg.LogEvery = 10
	}

	sources, err := dataset.Discover(cfg.Root)
	if err != nil {
		return Summary{}, err
	}
	if len(sources) == 0 {
		return Summary{}, fmt.Errorf("trainer: no sample files under %s", cfg.Root)
	}
	samples, err := dataset.LoadAll(ctx, sources)
	if err != nil {
		return Summary{}, err
	}
	if len(samples) == 0 {
		return Summary{}, fmt.Errorf("trainer: sample files under %s are empty", cfg.Root)
	}
	log.Printf("root=%s sources=%d samples=%d", cfg.Root, len(sources), len(samples))

	rng := rand.New(rand.NewSource(config.ResolveSeed(cfg.Seed)))
	sum := Summary{Samples: len(samples)}
	runErr := func() error {
		for pass := 1; pass <= cfg.Passes; pass++ {
			start := time.Now()
			batches := dataset.Batches(samples, cfg.BatchSize, rng)
			for i, batch := range batches {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := eng.Train(batch); err != nil {
					return fmt.Errorf("pass %d batch %d: %w", pass, i+1, err)
				}
				sum.Batches++
				if (i+1)%cfg.LogEvery == 0 || i == len(batches)-1 {
					loss, err := eng.Loss(batch)
					if err != nil {
						return err
					}
					sum.LastLoss = loss
					log.Printf("pass=%d batch=%d/%d samples_per_sec=%.1f loss=%.4f",
						pass, i+1, len(batches),
						float64(min((i+1)*cfg.BatchSize, len(samples)))/time.Since(start).Seconds(),
						loss,
					)
				}
			}
			sum.Passes++
		}
		return nil
	}()

	if err := eng.Save(); err != nil {
		return sum, fmt.Errorf("trainer: save: %w", err)
	}
	return sum, runErr
}
