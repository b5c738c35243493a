package engine

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"digitocr/internal/config"
	"digitocr/internal/metrics"
	"digitocr/internal/model"
	"digitocr/internal/store"
)

// Options configures Open.
type Options struct {
	HiddenSize     int
	UsePersistence bool
	StatePath      string
	Seed           int64

	// DeferSave stops Train from writing the record; callers persist
	// with Save instead.
	DeferSave bool
}

// Engine owns the single shared network of a process. Train takes the
// write lock, Predict and Save the read lock.
type Engine struct {
	mu    sync.RWMutex
	net   *model.Network
	store *store.FileStore
	stats metrics.Recorder

	saveOnTrain bool
}

var _ model.Classifier = (*Engine)(nil)

// Open restores the network from the configured record, or initializes a
// fresh one when persistence is off or no record exists. A record that
// exists but cannot be decoded is an error.
func Open(opts Options) (*Engine, error) {
	if opts.HiddenSize <= 0 {
		return nil, fmt.Errorf("engine: hidden size must be > 0 (got %d)", opts.HiddenSize)
	}
	rng := rand.New(rand.NewSource(config.ResolveSeed(opts.Seed)))
	st := store.New(opts.StatePath, opts.UsePersistence)

	params, err := st.Load()
	if err != nil {
		return nil, fmt.Errorf("engine: load parameters: %w", err)
	}

	var net *model.Network
	if params != nil {
		if params.HiddenSize() != opts.HiddenSize {
			log.Printf("engine: record hidden_size=%d overrides configured %d", params.HiddenSize(), opts.HiddenSize)
		}
		net = model.FromParams(params, rng)
		log.Printf("engine: restored path=%s hidden_size=%d", st.Path(), net.HiddenSize())
	} else {
		net = model.New(opts.HiddenSize, rng)
		log.Printf("engine: initialized hidden_size=%d persistence=%t", net.HiddenSize(), st.Enabled())
	}
	return &Engine{net: net, store: st, saveOnTrain: !opts.DeferSave}, nil
}

// Train updates the network on samples and, unless DeferSave was set,
// persists the result. When the save fails the in-memory update is kept
// and the error returned.
func (e *Engine) Train(samples []model.Sample) (err error) {
	start := time.Now()
	defer func() {
		n := len(samples)
		if err != nil {
			n = 0
		}
		e.stats.Record("train", n, time.Since(start), err)
	}()

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.net.Train(samples); err != nil {
		return err
	}
	if !e.saveOnTrain {
		return nil
	}
	if err := e.store.Save(e.net.Params()); err != nil {
		return fmt.Errorf("engine: save after train: %w", err)
	}
	return nil
}

// Predict classifies one grid.
func (e *Engine) Predict(grid []float64) (pred model.Prediction, err error) {
	start := time.Now()
	defer func() {
		n := 1
		if err != nil {
			n = 0
		}
		e.stats.Record("predict", n, time.Since(start), err)
	}()

	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.net.Predict(grid)
}

// Loss evaluates the network on samples without changing it.
func (e *Engine) Loss(samples []model.Sample) (float64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.net.Loss(samples)
}

// Save writes the current parameters to the store.
func (e *Engine) Save() (err error) {
	start := time.Now()
	defer func() { e.stats.Record("save", 0, time.Since(start), err) }()

	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.Save(e.net.Params())
}

// Status summarizes the engine for health reporting.
type Status struct {
	HiddenSize  int               `json:"hidden_size"`
	Persistence bool              `json:"persistence"`
	StatePath   string            `json:"state_path,omitempty"`
	Operations  []metrics.OpStats `json:"operations"`
}

// Status reports configuration and per-operation counters.
func (e *Engine) Status() Status {
	e.mu.RLock()
	hidden := e.net.HiddenSize()
	e.mu.RUnlock()

	st := Status{
		HiddenSize:  hidden,
		Persistence: e.store.Enabled(),
		Operations:  e.stats.Snapshot(),
	}
	if st.Persistence {
		st.StatePath = e.store.Path()
	}
	return st
}

// IsInputError reports whether err was caused by a malformed sample or
// grid rather than by the engine itself.
func IsInputError(err error) bool {
	return errors.Is(err, model.ErrEmptyBatch) ||
		errors.Is(err, model.ErrLabelRange) ||
		errors.Is(err, model.ErrGridSize)
}
