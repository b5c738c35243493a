package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultHiddenSize = 15
	DefaultStatePath  = "nn.json"
	DefaultListenAddr = "127.0.0.1:5000"
	DefaultBatchSize  = 5
	DefaultPasses     = 1
	DefaultLogEvery   = 10
)

// Config captures the runtime knobs shared by the server and the trainer.
type Config struct {
	HiddenSize     int    `yaml:"hidden_size"`
	UsePersistence bool   `yaml:"use_persistence"`
	StatePath      string `yaml:"state_path"`
	ListenAddr     string `yaml:"listen_addr"`
	StaticDir      string `yaml:"static_dir"`
	Seed           int64  `yaml:"seed"`
	TrainRoot      string `yaml:"train_root"`
	BatchSize      int    `yaml:"batch_size"`
	Passes         int    `yaml:"passes"`
	LogEvery       int    `yaml:"log_every"`
}

// Overrides captures CLI supplied values. Zero values leave the config
// untouched; NoPersistence forces persistence off.
type Overrides struct {
	HiddenSize    int
	NoPersistence bool
	StatePath     string
	ListenAddr    string
	StaticDir     string
	Seed          int64
	TrainRoot     string
	BatchSize     int
	Passes        int
	LogEvery      int
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		HiddenSize:     DefaultHiddenSize,
		UsePersistence: true,
		StatePath:      DefaultStatePath,
		ListenAddr:     DefaultListenAddr,
		BatchSize:      DefaultBatchSize,
		Passes:         DefaultPasses,
		LogEvery:       DefaultLogEvery,
	}
}

// Load reads a Config from YAML on top of Default. When optional is set a
// missing file yields the defaults instead of an error.
func Load(path string, optional bool) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := parseYAML(f)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// ApplyOverrides updates c using any non-zero override.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.HiddenSize > 0 {
		c.HiddenSize = o.HiddenSize
	}
	if o.NoPersistence {
		c.UsePersistence = false
	}
	if o.StatePath != "" {
		c.StatePath = o.StatePath
	}
	if o.ListenAddr != "" {
		c.ListenAddr = o.ListenAddr
	}
	if o.StaticDir != "" {
		c.StaticDir = o.StaticDir
	}
	if o.Seed != 0 {
		c.Seed = o.Seed
	}
	if o.TrainRoot != "" {
		c.TrainRoot = o.TrainRoot
	}
	if o.BatchSize > 0 {
		c.BatchSize = o.BatchSize
	}
	if o.Passes > 0 {
		c.Passes = o.Passes
	}
	if o.LogEvery > 0 {
		c.LogEvery = o.LogEvery
	}
}

// Validate verifies the config is runnable and fills unset optional knobs.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.HiddenSize <= 0 {
		return fmt.Errorf("hidden_size must be > 0 (got %d)", c.HiddenSize)
	}
	if c.UsePersistence && c.StatePath == "" {
		return errors.New("state_path must be set when use_persistence is true")
	}
	if c.BatchSize < 0 {
		return fmt.Errorf("batch_size must be >= 0 (got %d)", c.BatchSize)
	}
	if c.Passes < 0 {
		return fmt.Errorf("passes must be >= 0 (got %d)", c.Passes)
	}
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.BatchSize == 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.Passes == 0 {
		c.Passes = DefaultPasses
	}
	if c.LogEvery <= 0 {
		c.LogEvery = DefaultLogEvery
	}
	// Resolve once so weight init and batch order share the same seed.
	c.Seed = ResolveSeed(c.Seed)
	return nil
}

// ResolveSeed maps the "unset" seed 0 to a time based one.
func ResolveSeed(seed int64) int64 {
	if seed != 0 {
		return seed
	}
	return time.Now().UnixNano()
}

func parseYAML(r io.Reader) (*Config, error) {
	cfg := Default()
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: missing ':'", lineNo)
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		value = strings.Trim(value, "\"'")

		var err error
		switch key {
		case "hidden_size":
			cfg.HiddenSize, err = strconv.Atoi(value)
		case "use_persistence":
			cfg.UsePersistence, err = strconv.ParseBool(value)
		case "state_path":
			cfg.StatePath = value
		case "listen_addr":
			cfg.ListenAddr = value
		case "static_dir":
			cfg.StaticDir = value
		case "seed":
			cfg.Seed, err = strconv.ParseInt(value, 10, 64)
		case "train_root":
			cfg.TrainRoot = value
		case "batch_size":
			cfg.BatchSize, err = strconv.Atoi(value)
		case "passes":
			cfg.Passes, err = strconv.Atoi(value)
		case "log_every":
			cfg.LogEvery, err = strconv.Atoi(value)
		default:
			return nil, fmt.Errorf("line %d: unknown key %s", lineNo, key)
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %s: %w", lineNo, key, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return cfg, nil
}
