package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"tsbacktest/types"
)

type runConfig struct {
	DatabaseURL string    `yaml:"database_url"`
	Dataset     string    `yaml:"dataset"`
	Start       time.Time `yaml:"start"`
	End         time.Time `yaml:"end"`

	Horizon     int    `yaml:"horizon"`
	Folds       int    `yaml:"folds"`
	Policy      string `yaml:"policy"`
	Parallelism int    `yaml:"parallelism"`
	Progress    bool   `yaml:"progress"`

	Model        string `yaml:"model"`         // naive | linear
	Detrend      bool   `yaml:"detrend"`       // piecewise linear detrending
	ChangePoints int    `yaml:"change_points"` // breakpoints per segment when detrending

	OutputDir string `yaml:"output_dir"`
}

func loadConfig(path string) (*runConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &runConfig{
		Policy:       string(types.PolicyExpanding),
		Folds:        5,
		Parallelism:  1,
		Model:        "naive",
		ChangePoints: 5,
		OutputDir:    ".",
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database_url is required")
	}
	if cfg.Dataset == "" {
		return nil, errors.New("dataset is required")
	}
	if cfg.Horizon < 1 {
		return nil, errors.New("horizon must be a positive number")
	}
	if cfg.Start.IsZero() || cfg.End.IsZero() || !cfg.Start.Before(cfg.End) {
		return nil, errors.New("start must be before end")
	}
	if _, ok := types.ConvertPolicy[cfg.Policy]; !ok {
		return nil, fmt.Errorf("unknown policy %q", cfg.Policy)
	}
	if cfg.Model != "naive" && cfg.Model != "linear" {
		return nil, fmt.Errorf("unknown model %q", cfg.Model)
	}
	return cfg, nil
}
