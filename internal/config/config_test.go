package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Version != 1 {
		t.Errorf("Version = %d, want 1", cfg.Version)
	}
	if cfg.Tracking.VolumeDropPct != 30 {
		t.Errorf("VolumeDropPct = %v, want 30", cfg.Tracking.VolumeDropPct)
	}
	if cfg.Tracking.PurchaseDropPts != 20 {
		t.Errorf("PurchaseDropPts = %v, want 20", cfg.Tracking.PurchaseDropPts)
	}
	if cfg.Tracking.TopN != 10 {
		t.Errorf("TopN = %d, want 10", cfg.Tracking.TopN)
	}
	if cfg.Tracking.MaxCycleWeeks != 12 {
		t.Errorf("MaxCycleWeeks = %d, want 12", cfg.Tracking.MaxCycleWeeks)
	}
	if cfg.Analyze.GhostMinVolume != 500 {
		t.Errorf("GhostMinVolume = %d, want 500", cfg.Analyze.GhostMinVolume)
	}
	if cfg.Analyze.TitleTopPercentile != 95 {
		t.Errorf("TitleTopPercentile = %v, want 95", cfg.Analyze.TitleTopPercentile)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config must validate: %v", err)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "sqptrack-config-test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	cfg, err := LoadConfig(tmpDir)
	if err != nil {
		t.Fatalf("expected defaults for missing config, got error: %v", err)
	}
	if cfg.Tracking.TopN != 10 {
		t.Errorf("expected default TopN, got %d", cfg.Tracking.TopN)
	}
}

func TestSaveAndLoadConfig(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "sqptrack-config-test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	if err := os.MkdirAll(filepath.Join(tmpDir, ".sqptrack"), 0755); err != nil {
		t.Fatalf("failed to create state dir: %v", err)
	}

	cfg := DefaultConfig()
	cfg.Tracking.VolumeDropPct = 45
	cfg.Tracking.TopN = 5
	if err := cfg.Save(tmpDir); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	loaded, err := LoadConfig(tmpDir)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if loaded.Tracking.VolumeDropPct != 45 {
		t.Errorf("VolumeDropPct = %v, want 45", loaded.Tracking.VolumeDropPct)
	}
	if loaded.Tracking.TopN != 5 {
		t.Errorf("TopN = %d, want 5", loaded.Tracking.TopN)
	}
	// Sections missing from the file keep their defaults
	if loaded.Analyze.GhostMinVolume != 500 {
		t.Errorf("GhostMinVolume = %d, want default 500", loaded.Analyze.GhostMinVolume)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad version", func(c *Config) { c.Version = 99 }, "version"},
		{"zero volume drop", func(c *Config) { c.Tracking.VolumeDropPct = 0 }, "tracking.volumeDropPct"},
		{"huge purchase drop", func(c *Config) { c.Tracking.PurchaseDropPts = 150 }, "tracking.purchaseDropPts"},
		{"zero topN", func(c *Config) { c.Tracking.TopN = 0 }, "tracking.topN"},
		{"zero cycle", func(c *Config) { c.Tracking.MaxCycleWeeks = 0 }, "tracking.maxCycleWeeks"},
		{"crit below warn", func(c *Config) { c.Analyze.PriceCritPct = 5 }, "analyze.priceCritPct"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			cfgErr, ok := err.(*ConfigError)
			if !ok {
				t.Fatalf("expected *ConfigError, got %T", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("field = %q, want %q", cfgErr.Field, tt.field)
			}
		})
	}
}
