package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the syncmon configuration file.
type Config struct {
	Listen    string          `yaml:"listen"`
	Source    string          `yaml:"source"` // "synthetic" or "audio"
	Sync      SyncConfig      `yaml:"sync"`
	Audio     AudioConfig     `yaml:"audio"`
	Synthetic SyntheticConfig `yaml:"synthetic"`
	// TraceEvery broadcasts one metric trace point per this many samples.
	// Zero disables trace broadcasting.
	TraceEvery int `yaml:"trace_every"`
}

// SyncConfig mirrors the synchronizer parameters.
type SyncConfig struct {
	K         int     `yaml:"k"`
	CP        int     `yaml:"cp"`
	L         int     `yaml:"l"`
	N         int     `yaml:"n"`
	Threshold float64 `yaml:"threshold"`
}

// AudioConfig configures the live capture source.
type AudioConfig struct {
	SampleRate      float64 `yaml:"sample_rate"`
	FramesPerBuffer int     `yaml:"frames_per_buffer"`
}

// SyntheticConfig configures the built-in signal source.
type SyntheticConfig struct {
	SNRdB     float64 `yaml:"snr_db"`
	GapFrames int     `yaml:"gap_frames"` // noise-only gap between frames, in frame periods
	ChunkSize int     `yaml:"chunk_size"`
	Seed      int64   `yaml:"seed"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Listen: "0.0.0.0:8090",
		Source: "synthetic",
		Sync: SyncConfig{
			K:  1024,
			CP: 128,
			N:  5,
		},
		Audio: AudioConfig{},
		Synthetic: SyntheticConfig{
			SNRdB:     15,
			GapFrames: 2,
			ChunkSize: 4096,
			Seed:      1,
		},
		TraceEvery: 1024,
	}
}

// LoadConfig reads the YAML configuration, filling defaults for absent
// fields.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	switch cfg.Source {
	case "synthetic", "audio":
	default:
		return nil, fmt.Errorf("unknown source %q", cfg.Source)
	}
	if cfg.Synthetic.ChunkSize <= 0 {
		cfg.Synthetic.ChunkSize = 4096
	}
	if cfg.Synthetic.GapFrames < 0 {
		return nil, fmt.Errorf("gap_frames must be non-negative, got %d", cfg.Synthetic.GapFrames)
	}
	return cfg, nil
}
