// Package config provides configuration loading and management for spotfinder.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the run configuration loaded from YAML. It is
// validated once at pipeline construction; the pipeline never mutates it.
type Config struct {
	// Detection parameters
	Detection struct {
		// HotPixelSigma is the sigma multiple above the image mean at
		// which a pixel counts as a hot-pixel candidate.
		HotPixelSigma float64 `yaml:"hotPixelSigma"`

		// LevelFraction is the fraction of the image peak used as the
		// fractional binarization level.
		LevelFraction float64 `yaml:"levelFraction"`

		// UseOtsu enables automatic (Otsu) threshold selection. The
		// Otsu level is used only when it exceeds the fractional level.
		UseOtsu bool `yaml:"useOtsu"`

		// FitboxSize is the half-width of the Gaussian fit window in
		// pixels; the window side is twice this value. It also sets the
		// duplicate-suppression distance.
		FitboxSize int `yaml:"fitboxSize"`

		// MaxCounts is the camera saturation ceiling in ADU.
		MaxCounts float64 `yaml:"maxCounts"`

		// MinEnergy is the advisory minimum spot energy. The pipeline
		// reports energy per spot and leaves the cut to consumers.
		MinEnergy float64 `yaml:"minEnergy"`
	} `yaml:"detection"`

	// Output parameters
	Output struct {
		// Verbose controls per-stage progress printing.
		Verbose bool `yaml:"verbose"`

		// MaskFile, when set, is where the binary mask is written for
		// diagnostics. The format is chosen by MaskFormat.
		MaskFile string `yaml:"maskFile"`

		// MaskFormat is "fits" or "png". Empty defaults to "fits".
		MaskFormat string `yaml:"maskFormat"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values matching
// the SBIG test-stand camera setup.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Detection.HotPixelSigma = 7
	cfg.Detection.LevelFraction = 0.1
	cfg.Detection.UseOtsu = false
	cfg.Detection.FitboxSize = 7
	cfg.Detection.MaxCounts = 1<<16 - 1
	cfg.Detection.MinEnergy = 0.3

	cfg.Output.Verbose = false
	cfg.Output.MaskFile = ""
	cfg.Output.MaskFormat = "fits"

	return cfg
}

// LoadConfig loads configuration from a YAML file.
// If the file doesn't exist, it returns the default configuration.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file.
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// Validate checks the configuration for values the pipeline cannot run
// with. It is called once at pipeline construction.
func (c *Config) Validate() error {
	if c.Detection.HotPixelSigma <= 0 {
		return fmt.Errorf("config: hotPixelSigma must be positive, got %g", c.Detection.HotPixelSigma)
	}
	if c.Detection.LevelFraction <= 0 || c.Detection.LevelFraction >= 1 {
		return fmt.Errorf("config: levelFraction must be in (0, 1), got %g", c.Detection.LevelFraction)
	}
	if c.Detection.FitboxSize < 2 {
		return fmt.Errorf("config: fitboxSize must be at least 2, got %d", c.Detection.FitboxSize)
	}
	if c.Detection.MaxCounts <= 0 {
		return fmt.Errorf("config: maxCounts must be positive, got %g", c.Detection.MaxCounts)
	}
	if c.Detection.MinEnergy < 0 {
		return fmt.Errorf("config: minEnergy must not be negative, got %g", c.Detection.MinEnergy)
	}
	switch c.Output.MaskFormat {
	case "", "fits", "png":
	default:
		return fmt.Errorf("config: maskFormat must be %q or %q, got %q", "fits", "png", c.Output.MaskFormat)
	}
	return nil
}
