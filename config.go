package qshard

import (
	"fmt"
	"math/bits"
	"runtime"

	"github.com/klauspost/cpuid/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// maxFusedQubits is the hard ceiling on simultaneously addressed qubits; a
// fused pass builds 2^k offsets per group.
const maxFusedQubits = 20

/*
Config tunes one engine. The zero value is not useful; start from NewConfig or
LoadConfig and override fields.
*/
type Config struct {
	// Workers bounds the dispatcher's worker pool.
	Workers int

	// CacheTileQubits is log2 of the amplitude count that fits one cache tile.
	CacheTileQubits int

	// ExchangeBufferSize is the staging capacity, in amplitudes, used by one
	// interchange round. Half sends, half receives.
	ExchangeBufferSize int

	// MaxFusedQubits is the operand ceiling of one fused pass.
	MaxFusedQubits int

	// Root is the rank that reports scalar results and draws measurement
	// outcomes.
	Root int

	// Seed feeds the root's measurement RNG.
	Seed int64

	// Debug re-validates the permutation around every interchange.
	Debug bool

	Logger zerolog.Logger
}

func NewConfig() *Config {
	return &Config{
		Workers:            runtime.GOMAXPROCS(0),
		CacheTileQubits:    defaultCacheTileQubits(),
		ExchangeBufferSize: 1 << 16,
		MaxFusedQubits:     10,
		Root:               0,
		Seed:               1,
		Logger:             zerolog.Nop(),
	}
}

/*
LoadConfig reads configuration from the environment (QSHARD_ prefix) and, when
path is not empty, from a config file. Unset keys keep NewConfig defaults.
*/
func LoadConfig(path string) (*Config, error) {
	def := NewConfig()

	v := viper.New()
	v.SetEnvPrefix("qshard")
	v.AutomaticEnv()

	v.SetDefault("workers", def.Workers)
	v.SetDefault("cache_tile_qubits", def.CacheTileQubits)
	v.SetDefault("exchange_buffer", def.ExchangeBufferSize)
	v.SetDefault("max_fused_qubits", def.MaxFusedQubits)
	v.SetDefault("root", def.Root)
	v.SetDefault("seed", def.Seed)
	v.SetDefault("debug", false)
	v.SetDefault("log_level", "")
	v.SetDefault("log_pretty", false)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &Config{
		Workers:            v.GetInt("workers"),
		CacheTileQubits:    v.GetInt("cache_tile_qubits"),
		ExchangeBufferSize: v.GetInt("exchange_buffer"),
		MaxFusedQubits:     v.GetInt("max_fused_qubits"),
		Root:               v.GetInt("root"),
		Seed:               v.GetInt64("seed"),
		Debug:              v.GetBool("debug"),
		Logger:             zerolog.Nop(),
	}

	if level := v.GetString("log_level"); level != "" {
		cfg.Logger = NewLogger(level, v.GetBool("log_pretty"))
	}

	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	switch {
	case c.Workers < 1:
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	case c.CacheTileQubits < 1:
		return fmt.Errorf("cache_tile_qubits must be positive, got %d", c.CacheTileQubits)
	case c.ExchangeBufferSize < 2:
		return fmt.Errorf("exchange_buffer must hold at least 2 amplitudes, got %d", c.ExchangeBufferSize)
	case c.MaxFusedQubits < 2 || c.MaxFusedQubits > maxFusedQubits:
		return fmt.Errorf("max_fused_qubits must be within [2, %d], got %d", maxFusedQubits, c.MaxFusedQubits)
	}
	return nil
}

// defaultCacheTileQubits sizes a tile to half the detected L2 cache.
func defaultCacheTileQubits() int {
	l2 := cpuid.CPU.Cache.L2
	if l2 <= 0 {
		l2 = 256 << 10
	}
	amps := l2 / 16 / 2
	return max(bits.Len(uint(amps))-1, 4)
}
