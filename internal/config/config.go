package config

import (
	"encoding/json"
	"os"

	"github.com/spf13/viper"

	"sqptrack/internal/paths"
)

// Config represents the complete sqptrack configuration
type Config struct {
	Version int `json:"version" mapstructure:"version"`

	Tracking TrackingConfig `json:"tracking" mapstructure:"tracking"`
	Analyze  AnalyzeConfig  `json:"analyze" mapstructure:"analyze"`
	Logging  LoggingConfig  `json:"logging" mapstructure:"logging"`
}

// TrackingConfig contains the week-over-week tracking thresholds.
// All values are tunables, never embedded constants.
type TrackingConfig struct {
	// VolumeDropPct flags a keyword when its search volume falls by at
	// least this percentage against the previous week (default 30).
	VolumeDropPct float64 `json:"volumeDropPct" mapstructure:"volumeDropPct"`

	// PurchaseDropPts flags a keyword when its purchase share falls by at
	// least this many percentage points against the previous week (default 20).
	PurchaseDropPts float64 `json:"purchaseDropPts" mapstructure:"purchaseDropPts"`

	// TopN is the number of keywords locked at cycle start (default 10).
	TopN int `json:"topN" mapstructure:"topN"`

	// MaxCycleWeeks is the soft length of the observation window (default 12).
	// Appends past this limit still succeed but raise a cycle notice.
	MaxCycleWeeks int `json:"maxCycleWeeks" mapstructure:"maxCycleWeeks"`
}

// AnalyzeConfig contains single-week analyzer thresholds
type AnalyzeConfig struct {
	BreadButterMinPurchaseShare   float64 `json:"breadButterMinPurchaseShare" mapstructure:"breadButterMinPurchaseShare"`
	OpportunityMaxImpressionShare float64 `json:"opportunityMaxImpressionShare" mapstructure:"opportunityMaxImpressionShare"`
	OpportunityMinPurchaseShare   float64 `json:"opportunityMinPurchaseShare" mapstructure:"opportunityMinPurchaseShare"`
	LeakMinImpressionShare        float64 `json:"leakMinImpressionShare" mapstructure:"leakMinImpressionShare"`
	LeakMaxClickShare             float64 `json:"leakMaxClickShare" mapstructure:"leakMaxClickShare"`
	LeakMaxPurchaseShare          float64 `json:"leakMaxPurchaseShare" mapstructure:"leakMaxPurchaseShare"`

	GhostMinVolume                  int     `json:"ghostMinVolume" mapstructure:"ghostMinVolume"`
	GhostMaxImpressionShare         float64 `json:"ghostMaxImpressionShare" mapstructure:"ghostMaxImpressionShare"`
	WindowShopperMinImpressionShare float64 `json:"windowShopperMinImpressionShare" mapstructure:"windowShopperMinImpressionShare"`
	WindowShopperMaxClickShare      float64 `json:"windowShopperMaxClickShare" mapstructure:"windowShopperMaxClickShare"`
	PriceProblemMinImpressionShare  float64 `json:"priceProblemMinImpressionShare" mapstructure:"priceProblemMinImpressionShare"`

	PriceWarnPct float64 `json:"priceWarnPct" mapstructure:"priceWarnPct"`
	PriceCritPct float64 `json:"priceCritPct" mapstructure:"priceCritPct"`

	RankTopMax     int `json:"rankTopMax" mapstructure:"rankTopMax"`
	RankStrongMax  int `json:"rankStrongMax" mapstructure:"rankStrongMax"`
	RankPageOneMax int `json:"rankPageOneMax" mapstructure:"rankPageOneMax"`

	TitleTopPercentile   float64 `json:"titleTopPercentile" mapstructure:"titleTopPercentile"`
	TitleMinPercentile   float64 `json:"titleMinPercentile" mapstructure:"titleMinPercentile"`
	TitleMinClickShare   float64 `json:"titleMinClickShare" mapstructure:"titleMinClickShare"`
	BulletsMinPercentile float64 `json:"bulletsMinPercentile" mapstructure:"bulletsMinPercentile"`
	BackendMinPercentile float64 `json:"backendMinPercentile" mapstructure:"backendMinPercentile"`

	TopOpportunities int     `json:"topOpportunities" mapstructure:"topOpportunities"`
	TrendDeadbandPts float64 `json:"trendDeadbandPts" mapstructure:"trendDeadbandPts"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Tracking: TrackingConfig{
			VolumeDropPct:   30,
			PurchaseDropPts: 20,
			TopN:            10,
			MaxCycleWeeks:   12,
		},
		Analyze: AnalyzeConfig{
			BreadButterMinPurchaseShare:   10,
			OpportunityMaxImpressionShare: 5,
			OpportunityMinPurchaseShare:   5,
			LeakMinImpressionShare:        5,
			LeakMaxClickShare:             2,
			LeakMaxPurchaseShare:          2,

			GhostMinVolume:                  500,
			GhostMaxImpressionShare:         1,
			WindowShopperMinImpressionShare: 10,
			WindowShopperMaxClickShare:      1,
			PriceProblemMinImpressionShare:  5,

			PriceWarnPct: 10,
			PriceCritPct: 20,

			RankTopMax:     1,
			RankStrongMax:  10,
			RankPageOneMax: 20,

			TitleTopPercentile:   95,
			TitleMinPercentile:   80,
			TitleMinClickShare:   5,
			BulletsMinPercentile: 50,
			BackendMinPercentile: 20,

			TopOpportunities: 50,
			TrendDeadbandPts: 1,
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// LoadConfig loads configuration from .sqptrack/config.json
func LoadConfig(root string) (*Config, error) {
	v := viper.New()

	v.SetDefault("version", 1)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(paths.StateDir(root))

	if err := v.ReadInConfig(); err != nil {
		// If config doesn't exist, return default config
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	// Start from defaults so absent fields keep their documented values
	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to .sqptrack/config.json
func (c *Config) Save(root string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(paths.ConfigPath(root), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != 1 {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.Tracking.VolumeDropPct <= 0 || c.Tracking.VolumeDropPct > 100 {
		return &ConfigError{Field: "tracking.volumeDropPct", Message: "must be in (0,100]"}
	}
	if c.Tracking.PurchaseDropPts <= 0 || c.Tracking.PurchaseDropPts > 100 {
		return &ConfigError{Field: "tracking.purchaseDropPts", Message: "must be in (0,100]"}
	}
	if c.Tracking.TopN < 1 {
		return &ConfigError{Field: "tracking.topN", Message: "must be at least 1"}
	}
	if c.Tracking.MaxCycleWeeks < 1 {
		return &ConfigError{Field: "tracking.maxCycleWeeks", Message: "must be at least 1"}
	}
	if c.Analyze.PriceCritPct < c.Analyze.PriceWarnPct {
		return &ConfigError{Field: "analyze.priceCritPct", Message: "must be at least priceWarnPct"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
