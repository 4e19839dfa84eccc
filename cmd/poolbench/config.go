package main

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pavanmanishd/objpool"
	"github.com/pavanmanishd/objpool/block"
	"github.com/pavanmanishd/objpool/internal/workload"
)

const envPrefix = "POOLBENCH"

// Systems selectable with --system.
const (
	systemMmap = "mmap"
	systemHeap = "heap"
)

// benchConfig is the merged configuration of one run. Values come from
// flags, then POOLBENCH_* environment variables, then the config file,
// then defaults.
type benchConfig struct {
	Batch       int    `mapstructure:"batch"`
	Objects     int    `mapstructure:"objects"`
	Rounds      int    `mapstructure:"rounds"`
	Order       string `mapstructure:"order"`
	Seed        uint64 `mapstructure:"seed"`
	System      string `mapstructure:"system"`
	DebugChecks bool   `mapstructure:"debug_checks"`
	Format      string `mapstructure:"format"`
	LogLevel    string `mapstructure:"log_level"`
	MetricsAddr string `mapstructure:"metrics_addr"`
}

func defaultConfig() benchConfig {
	return benchConfig{
		Batch:    objpool.DefaultBatchSize * 64,
		Objects:  10000,
		Rounds:   100,
		Order:    workload.LIFO,
		Seed:     1,
		System:   systemMmap,
		Format:   workload.FormatText,
		LogLevel: "info",
	}
}

// flag name -> config key
var flagKeys = map[string]string{
	"batch":        "batch",
	"objects":      "objects",
	"rounds":       "rounds",
	"order":        "order",
	"seed":         "seed",
	"system":       "system",
	"debug-checks": "debug_checks",
	"format":       "format",
	"log-level":    "log_level",
	"metrics-addr": "metrics_addr",
}

func addRunFlags(fs *pflag.FlagSet) {
	d := defaultConfig()
	fs.String("config", "", "YAML config file")
	fs.Int("batch", d.Batch, "objects per block")
	fs.Int("objects", d.Objects, "objects held live per round")
	fs.Int("rounds", d.Rounds, "allocate/release rounds")
	fs.String("order", d.Order, "release order: lifo, fifo or random")
	fs.Uint64("seed", d.Seed, "seed for the random release order")
	fs.String("system", d.System, "system allocator: mmap or heap")
	fs.Bool("debug-checks", d.DebugChecks, "reject double frees and foreign handles")
	fs.String("format", d.Format, "report format: json, yaml or text")
	fs.String("log-level", d.LogLevel, "log level: debug, info, warn or error")
	fs.String("metrics-addr", d.MetricsAddr, "serve Prometheus metrics on host:port until interrupted")
}

// loadConfig merges fs, the environment and the optional config file
// named by --config.
func loadConfig(fs *pflag.FlagSet) (benchConfig, error) {
	v := viper.New()

	d := defaultConfig()
	v.SetDefault("batch", d.Batch)
	v.SetDefault("objects", d.Objects)
	v.SetDefault("rounds", d.Rounds)
	v.SetDefault("order", d.Order)
	v.SetDefault("seed", d.Seed)
	v.SetDefault("system", d.System)
	v.SetDefault("debug_checks", d.DebugChecks)
	v.SetDefault("format", d.Format)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("metrics_addr", d.MetricsAddr)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for name, key := range flagKeys {
		if f := fs.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return benchConfig{}, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	if f := fs.Lookup("config"); f != nil && f.Value.String() != "" {
		v.SetConfigFile(f.Value.String())
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return benchConfig{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg benchConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return benchConfig{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, cfg.validate()
}

func (cfg benchConfig) validate() error {
	switch cfg.System {
	case systemMmap, systemHeap:
	default:
		return fmt.Errorf("unknown system %q", cfg.System)
	}
	switch cfg.Format {
	case workload.FormatJSON, workload.FormatYAML, workload.FormatText:
	default:
		return fmt.Errorf("unknown format %q", cfg.Format)
	}
	return cfg.workload().Validate()
}

func (cfg benchConfig) workload() workload.Config {
	return workload.Config{
		Objects: cfg.Objects,
		Rounds:  cfg.Rounds,
		Order:   cfg.Order,
		Seed:    cfg.Seed,
	}
}

func (cfg benchConfig) system() block.System {
	if cfg.System == systemHeap {
		return &block.Heap{}
	}
	return block.Mmap{}
}
