package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Init modes for the synthesized image.
const (
	InitNoise   = "noise"
	InitContent = "content"
)

// Config captures the runtime knobs for a synthesis run.
type Config struct {
	ContentPath    string   `yaml:"content_path"`
	StylePath      string   `yaml:"style_path"`
	OutputPath     string   `yaml:"output_path"`
	WeightsPath    string   `yaml:"weights_path"`
	ImageSize      int      `yaml:"image_size"`
	ContentLayers  []string `yaml:"content_layers"`
	StyleLayers    []string `yaml:"style_layers"`
	ContentWeight  float64  `yaml:"content_weight"`
	StyleWeight    float64  `yaml:"style_weight"`
	NumSteps       int      `yaml:"num_steps"`
	ReportInterval int      `yaml:"report_interval"`
	LearningRate   float64  `yaml:"learning_rate"`
	Seed           int64    `yaml:"seed"`
	Init           string   `yaml:"init"`
	NumWorkers     int      `yaml:"num_workers"`
}

// Overrides captures CLI supplied values.
type Overrides struct {
	ContentPath    string
	StylePath      string
	OutputPath     string
	WeightsPath    string
	ImageSize      int
	ContentWeight  float64
	StyleWeight    float64
	NumSteps       int
	ReportInterval int
	LearningRate   float64
	Seed           int64
	Init           string
	NumWorkers     int
}

// Default returns a config with the stock layer selection and weighting.
func Default() *Config {
	return &Config{
		ImageSize:      256,
		ContentLayers:  []string{"conv_4"},
		StyleLayers:    []string{"conv_1", "conv_2", "conv_3", "conv_4", "conv_5"},
		ContentWeight:  1,
		StyleWeight:    3,
		NumSteps:       5000,
		ReportInterval: 1000,
		LearningRate:   0.001,
		Init:           InitNoise,
		NumWorkers:     runtime.NumCPU(),
	}
}

// Load reads a Config from YAML, filling unset fields with defaults.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// ApplyOverrides updates cfg using any non-zero override.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.ContentPath != "" {
		c.ContentPath = o.ContentPath
	}
	if o.StylePath != "" {
		c.StylePath = o.StylePath
	}
	if o.OutputPath != "" {
		c.OutputPath = o.OutputPath
	}
	if o.WeightsPath != "" {
		c.WeightsPath = o.WeightsPath
	}
	if o.ImageSize > 0 {
		c.ImageSize = o.ImageSize
	}
	if o.ContentWeight > 0 {
		c.ContentWeight = o.ContentWeight
	}
	if o.StyleWeight > 0 {
		c.StyleWeight = o.StyleWeight
	}
	if o.NumSteps > 0 {
		c.NumSteps = o.NumSteps
	}
	if o.ReportInterval > 0 {
		c.ReportInterval = o.ReportInterval
	}
	if o.LearningRate > 0 {
		c.LearningRate = o.LearningRate
	}
	if o.Seed != 0 {
		c.Seed = o.Seed
	}
	if o.Init != "" {
		c.Init = o.Init
	}
	if o.NumWorkers > 0 {
		c.NumWorkers = o.NumWorkers
	}
}

// Validate verifies the config is runnable.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.ContentPath == "" {
		return errors.New("content_path must be set")
	}
	if c.StylePath == "" {
		return errors.New("style_path must be set")
	}
	if c.OutputPath == "" {
		return errors.New("output_path must be set")
	}
	if c.WeightsPath == "" {
		return errors.New("weights_path must be set")
	}
	if c.ImageSize <= 0 {
		return fmt.Errorf("image_size must be > 0 (got %d)", c.ImageSize)
	}
	if len(c.ContentLayers) == 0 && len(c.StyleLayers) == 0 {
		return errors.New("at least one content or style layer must be set")
	}
	if c.ContentWeight < 0 || c.StyleWeight < 0 {
		return errors.New("loss weights must be >= 0")
	}
	if c.NumSteps <= 0 {
		return fmt.Errorf("num_steps must be > 0 (got %d)", c.NumSteps)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("learning_rate must be > 0 (got %g)", c.LearningRate)
	}
	if c.Init != InitNoise && c.Init != InitContent {
		return fmt.Errorf("init must be %q or %q (got %q)", InitNoise, InitContent, c.Init)
	}
	if c.ReportInterval <= 0 {
		c.ReportInterval = 1000
	}
	if c.NumWorkers <= 0 {
		c.NumWorkers = runtime.NumCPU()
	}
	return nil
}
