// Package config loads and validates the YAML configuration files: the
// scanner tuning file and the provider operations file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/basehunter/basehunter/internal/domain/breakout"
	"github.com/basehunter/basehunter/internal/domain/gates"
	"github.com/basehunter/basehunter/internal/domain/legs"
	"github.com/basehunter/basehunter/internal/domain/vcp"
	"github.com/basehunter/basehunter/internal/scan/pipeline"
)

// ScannerConfig mirrors config/scanner.yaml. Zero fields keep their
// built-in defaults so a partial file only overrides what it names.
type ScannerConfig struct {
	Gates    GatesConfig    `yaml:"gates"`
	Legs     LegsConfig     `yaml:"legs"`
	Pattern  PatternConfig  `yaml:"pattern"`
	Breakout BreakoutConfig `yaml:"breakout"`
	Scan     ScanConfig     `yaml:"scan"`
}

// GatesConfig tunes the filter pipeline thresholds.
type GatesConfig struct {
	MinMarketCap               float64 `yaml:"min_market_cap"`
	RSPercentileMin            float64 `yaml:"rs_percentile_min"`
	NearBreakoutMaxDistancePct float64 `yaml:"near_breakout_max_distance_pct"`
}

// LegsConfig tunes contraction leg extraction.
type LegsConfig struct {
	WindowBars     int     `yaml:"window_bars"`
	ExtremeWindow  int     `yaml:"extreme_window"`
	MinPullbackPct float64 `yaml:"min_pullback_pct"`
}

// PatternConfig tunes setup acceptance bounds.
type PatternConfig struct {
	MinLegs              int     `yaml:"min_legs"`
	MaxLegs              int     `yaml:"max_legs"`
	FinalBaseDepthMaxPct float64 `yaml:"final_base_depth_max_pct"`
}

// BreakoutConfig tunes breakout confirmation.
type BreakoutConfig struct {
	RelativeVolumeThreshold float64 `yaml:"relative_volume_threshold"`
}

// ScanConfig tunes scan-wide execution settings.
type ScanConfig struct {
	Workers    int `yaml:"workers"`
	MaxSymbols int `yaml:"max_symbols"`
}

// LoadScannerConfig reads and validates the scanner tuning file.
func LoadScannerConfig(configPath string) (*ScannerConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read scanner config: %w", err)
	}

	var config ScannerConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse scanner config: %w", err)
	}

	if errs := config.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid scanner config: %v", errs)
	}

	return &config, nil
}

// Validate checks the thresholds for consistency, collecting every
// problem rather than stopping at the first.
func (c *ScannerConfig) Validate() []string {
	var errors []string

	if c.Gates.MinMarketCap < 0 {
		errors = append(errors, fmt.Sprintf("gates min_market_cap must be non-negative, got %.0f", c.Gates.MinMarketCap))
	}
	if c.Gates.RSPercentileMin < 0 || c.Gates.RSPercentileMin > 100 {
		errors = append(errors, fmt.Sprintf("gates rs_percentile_min %.1f outside [0, 100]", c.Gates.RSPercentileMin))
	}
	if c.Gates.NearBreakoutMaxDistancePct < 0 || c.Gates.NearBreakoutMaxDistancePct > 50 {
		errors = append(errors, fmt.Sprintf("gates near_breakout_max_distance_pct %.1f outside [0, 50]", c.Gates.NearBreakoutMaxDistancePct))
	}
	if c.Legs.WindowBars < 0 {
		errors = append(errors, fmt.Sprintf("legs window_bars must be non-negative, got %d", c.Legs.WindowBars))
	}
	if c.Legs.ExtremeWindow != 0 && c.Legs.ExtremeWindow%2 == 0 {
		errors = append(errors, fmt.Sprintf("legs extreme_window must be odd, got %d", c.Legs.ExtremeWindow))
	}
	if c.Legs.MinPullbackPct < 0 {
		errors = append(errors, fmt.Sprintf("legs min_pullback_pct must be non-negative, got %.1f", c.Legs.MinPullbackPct))
	}
	if c.Pattern.MinLegs < 0 || c.Pattern.MaxLegs < 0 {
		errors = append(errors, "pattern leg bounds must be non-negative")
	}
	if c.Pattern.MinLegs > 0 && c.Pattern.MaxLegs > 0 && c.Pattern.MinLegs > c.Pattern.MaxLegs {
		errors = append(errors, fmt.Sprintf("pattern min_legs %d exceeds max_legs %d", c.Pattern.MinLegs, c.Pattern.MaxLegs))
	}
	if c.Pattern.FinalBaseDepthMaxPct < 0 || c.Pattern.FinalBaseDepthMaxPct > 100 {
		errors = append(errors, fmt.Sprintf("pattern final_base_depth_max_pct %.1f outside [0, 100]", c.Pattern.FinalBaseDepthMaxPct))
	}
	if c.Breakout.RelativeVolumeThreshold < 0 {
		errors = append(errors, fmt.Sprintf("breakout relative_volume_threshold must be non-negative, got %.2f", c.Breakout.RelativeVolumeThreshold))
	}
	if c.Scan.Workers < 0 {
		errors = append(errors, fmt.Sprintf("scan workers must be non-negative, got %d", c.Scan.Workers))
	}

	return errors
}

// PipelineConfig converts the file representation into the scanner's
// runtime configuration, filling unset fields from the defaults.
func (c *ScannerConfig) PipelineConfig() pipeline.Config {
	cfg := pipeline.DefaultConfig()

	applyGates(&cfg.VCP.Gates, c.Gates)
	applyLegs(&cfg.VCP.Legs, c.Legs)
	applyPattern(&cfg.VCP, c.Pattern)
	if c.Breakout.RelativeVolumeThreshold > 0 {
		cfg.Breakout.RelativeVolumeThreshold = c.Breakout.RelativeVolumeThreshold
	}
	if c.Scan.Workers > 0 {
		cfg.Workers = c.Scan.Workers
	}
	if c.Scan.MaxSymbols > 0 {
		cfg.MaxSymbols = c.Scan.MaxSymbols
	}

	return cfg
}

func applyGates(dst *gates.Config, src GatesConfig) {
	if src.MinMarketCap > 0 {
		dst.MinMarketCap = src.MinMarketCap
	}
	if src.RSPercentileMin > 0 {
		dst.RSPercentileMin = src.RSPercentileMin
	}
	if src.NearBreakoutMaxDistancePct > 0 {
		dst.NearBreakoutMaxDistancePct = src.NearBreakoutMaxDistancePct
	}
}

func applyLegs(dst *legs.Config, src LegsConfig) {
	if src.WindowBars > 0 {
		dst.WindowBars = src.WindowBars
	}
	if src.ExtremeWindow > 0 {
		dst.ExtremeWindow = src.ExtremeWindow
	}
	if src.MinPullbackPct > 0 {
		dst.MinPullbackPct = src.MinPullbackPct
	}
}

func applyPattern(dst *vcp.Config, src PatternConfig) {
	if src.MinLegs > 0 {
		dst.MinLegs = src.MinLegs
	}
	if src.MaxLegs > 0 {
		dst.MaxLegs = src.MaxLegs
	}
	if src.FinalBaseDepthMaxPct > 0 {
		dst.FinalBaseDepthMaxPct = src.FinalBaseDepthMaxPct
	}
}

// BreakoutDetectorConfig resolves the breakout runtime config alone, for
// callers that only confirm breakouts.
func (c *ScannerConfig) BreakoutDetectorConfig() breakout.Config {
	cfg := breakout.DefaultConfig()
	if c.Breakout.RelativeVolumeThreshold > 0 {
		cfg.RelativeVolumeThreshold = c.Breakout.RelativeVolumeThreshold
	}
	return cfg
}
