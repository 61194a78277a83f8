// Package config loads and validates the agenttop configuration from a
// TOML file. Missing files yield the defaults; unknown top-level keys
// produce warnings rather than errors.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/agenttop/agenttop/internal/alerts"
	"github.com/agenttop/agenttop/internal/stats"
)

type Config struct {
	Dashboard DashboardConfig `toml:"dashboard"`
	Chart     ChartConfig     `toml:"chart"`
	History   HistoryConfig   `toml:"history"`
	Alerts    AlertsConfig    `toml:"alerts"`
	Display   DisplayConfig   `toml:"display"`
	Storage   StorageConfig   `toml:"storage"`
	Receiver  ReceiverConfig  `toml:"receiver"`
	// Pricing maps model name to [input, output] USD per 1M tokens.
	Pricing map[string][2]float64 `toml:"-"`
}

type DashboardConfig struct {
	UpdateIntervalMS       int    `toml:"update_interval_ms"`
	EnableSystemMonitoring bool   `toml:"enable_system_monitoring"`
	EnableCostTracking     bool   `toml:"enable_cost_tracking"`
	LayoutMode             string `toml:"layout_mode"`
}

type ChartConfig struct {
	DataPoints int `toml:"data_points"`
}

type HistoryConfig struct {
	MaxEntries        int  `toml:"max_entries"`
	EnableSearchIndex bool `toml:"enable_search_index"`
}

type AlertsConfig struct {
	MaxResponseTimeMS   float64 `toml:"max_response_time_ms"`
	MaxTokensPerRequest int     `toml:"max_tokens_per_request"`
	MaxCostPerRequest   float64 `toml:"max_cost_per_request"`
	ErrorRateThreshold  float64 `toml:"error_rate_threshold"`
	CPUThresholdPercent float64 `toml:"cpu_threshold_percent"`
	MemoryThresholdMB   float64 `toml:"memory_threshold_mb"`
	SystemNotify        bool    `toml:"system_notify"`
}

type DisplayConfig struct {
	RefreshRateMS int `toml:"refresh_rate_ms"`
}

type StorageConfig struct {
	DBPath        string `toml:"db_path"`
	RetentionDays int    `toml:"retention_days"`
}

type ReceiverConfig struct {
	GRPCPort int    `toml:"grpc_port"`
	Bind     string `toml:"bind"`
}

// Thresholds converts the config section into the alert engine's form.
func (a AlertsConfig) Thresholds() alerts.Thresholds {
	return alerts.Thresholds{
		MaxResponseTimeMS:   a.MaxResponseTimeMS,
		MaxTokensPerRequest: a.MaxTokensPerRequest,
		MaxCostPerRequest:   a.MaxCostPerRequest,
		ErrorRateThreshold:  a.ErrorRateThreshold,
		CPUThresholdPercent: a.CPUThresholdPercent,
		MemoryThresholdMB:   a.MemoryThresholdMB,
	}
}

// PricingTable converts the pricing section into the aggregator's form.
func (c Config) PricingTable() map[string]stats.ModelPricing {
	if len(c.Pricing) == 0 {
		return nil
	}
	out := make(map[string]stats.ModelPricing, len(c.Pricing))
	for model, p := range c.Pricing {
		out[model] = stats.ModelPricing{InputPerMTok: p[0], OutputPerMTok: p[1]}
	}
	return out
}

// DefaultConfig returns the built-in defaults used when no config file
// exists or a section is absent.
func DefaultConfig() Config {
	return Config{
		Dashboard: DashboardConfig{
			UpdateIntervalMS:       1000,
			EnableSystemMonitoring: true,
			EnableCostTracking:     true,
			LayoutMode:             "adaptive",
		},
		Chart:   ChartConfig{DataPoints: 120},
		History: HistoryConfig{MaxEntries: 1000, EnableSearchIndex: true},
		Alerts: AlertsConfig{
			MaxResponseTimeMS:   5000,
			MaxTokensPerRequest: 100_000,
			MaxCostPerRequest:   1.0,
			ErrorRateThreshold:  10,
			CPUThresholdPercent: 90,
			MemoryThresholdMB:   4096,
		},
		Display:  DisplayConfig{RefreshRateMS: 500},
		Storage:  StorageConfig{DBPath: "", RetentionDays: 30},
		Receiver: ReceiverConfig{GRPCPort: 4317, Bind: "127.0.0.1"},
		Pricing: map[string][2]float64{
			stats.DefaultPricingTier: {3.0, 15.0},
		},
	}
}

type LoadResult struct {
	Config   Config
	Warnings []string
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "agenttop", "config.toml")
}

// Load reads the configuration from the default path.
func Load() (*LoadResult, error) {
	return LoadFrom(defaultConfigPath())
}

// LoadFrom reads the configuration from path. A missing file yields the
// defaults without error.
func LoadFrom(path string) (*LoadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			return &LoadResult{Config: cfg}, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromString(string(data))
}

// LoadFromString parses a configuration document, applying it on top of
// the defaults.
func LoadFromString(data string) (*LoadResult, error) {
	cfg := DefaultConfig()
	result := &LoadResult{Config: cfg}

	if data == "" {
		return result, nil
	}

	var raw map[string]any
	if _, err := toml.Decode(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	knownTopLevel := map[string]bool{
		"dashboard": true,
		"chart":     true,
		"history":   true,
		"alerts":    true,
		"display":   true,
		"storage":   true,
		"receiver":  true,
		"models":    true,
	}
	for key := range raw {
		if !knownTopLevel[key] {
			result.Warnings = append(result.Warnings, fmt.Sprintf("unknown config key: %q", key))
		}
	}

	if _, err := toml.Decode(data, &result.Config); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	mergePricingFromRaw(&result.Config, raw)

	if err := validate(&result.Config); err != nil {
		return nil, err
	}
	return result, nil
}

// mergePricingFromRaw pulls [models.pricing] entries out of the raw
// document: model name -> [input, output] price per 1M tokens. Malformed
// entries are skipped.
func mergePricingFromRaw(cfg *Config, raw map[string]any) {
	modelsRaw, ok := raw["models"].(map[string]any)
	if !ok {
		return
	}
	pricingRaw, ok := modelsRaw["pricing"].(map[string]any)
	if !ok {
		return
	}

	for model, priceVal := range pricingRaw {
		priceSlice, ok := priceVal.([]any)
		if !ok || len(priceSlice) != 2 {
			continue
		}
		var prices [2]float64
		valid := true
		for i, v := range priceSlice {
			switch n := v.(type) {
			case float64:
				prices[i] = n
			case int64:
				prices[i] = float64(n)
			default:
				valid = false
			}
		}
		if valid {
			if cfg.Pricing == nil {
				cfg.Pricing = make(map[string][2]float64)
			}
			cfg.Pricing[model] = prices
		}
	}
}

func validate(cfg *Config) error {
	var errs []string

	if cfg.Dashboard.UpdateIntervalMS < 1 {
		errs = append(errs, fmt.Sprintf("update_interval_ms must be positive, got %d", cfg.Dashboard.UpdateIntervalMS))
	}
	switch cfg.Dashboard.LayoutMode {
	case "full", "compact", "focused", "adaptive", "grid":
	default:
		errs = append(errs, fmt.Sprintf("layout_mode must be one of full/compact/focused/adaptive/grid, got %q", cfg.Dashboard.LayoutMode))
	}

	if cfg.Chart.DataPoints < 1 {
		errs = append(errs, fmt.Sprintf("chart data_points must be positive, got %d", cfg.Chart.DataPoints))
	}
	if cfg.History.MaxEntries < 1 {
		errs = append(errs, fmt.Sprintf("history max_entries must be positive, got %d", cfg.History.MaxEntries))
	}

	if cfg.Alerts.MaxResponseTimeMS < 0 {
		errs = append(errs, fmt.Sprintf("max_response_time_ms must not be negative, got %f", cfg.Alerts.MaxResponseTimeMS))
	}
	if cfg.Alerts.MaxTokensPerRequest < 0 {
		errs = append(errs, fmt.Sprintf("max_tokens_per_request must not be negative, got %d", cfg.Alerts.MaxTokensPerRequest))
	}
	if cfg.Alerts.MaxCostPerRequest < 0 {
		errs = append(errs, fmt.Sprintf("max_cost_per_request must not be negative, got %f", cfg.Alerts.MaxCostPerRequest))
	}
	if cfg.Alerts.ErrorRateThreshold < 0 || cfg.Alerts.ErrorRateThreshold > 100 {
		errs = append(errs, fmt.Sprintf("error_rate_threshold must be 0-100, got %f", cfg.Alerts.ErrorRateThreshold))
	}
	if cfg.Alerts.CPUThresholdPercent < 0 || cfg.Alerts.CPUThresholdPercent > 100 {
		errs = append(errs, fmt.Sprintf("cpu_threshold_percent must be 0-100, got %f", cfg.Alerts.CPUThresholdPercent))
	}
	if cfg.Alerts.MemoryThresholdMB < 0 {
		errs = append(errs, fmt.Sprintf("memory_threshold_mb must not be negative, got %f", cfg.Alerts.MemoryThresholdMB))
	}

	if cfg.Display.RefreshRateMS < 1 {
		errs = append(errs, fmt.Sprintf("refresh_rate_ms must be positive, got %d", cfg.Display.RefreshRateMS))
	}
	if cfg.Storage.RetentionDays < 1 {
		errs = append(errs, fmt.Sprintf("storage retention_days must be positive, got %d", cfg.Storage.RetentionDays))
	}
	if cfg.Receiver.GRPCPort < 0 || cfg.Receiver.GRPCPort > 65535 {
		errs = append(errs, fmt.Sprintf("grpc_port must be 0-65535, got %d", cfg.Receiver.GRPCPort))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation error: %s", strings.Join(errs, "; "))
	}
	return nil
}
