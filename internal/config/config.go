package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Widget identifiers accepted in widget_layout.
const (
	WidgetWeather       = "weather"
	WidgetSysmon        = "sysmon"
	WidgetNotifications = "notifications"
	WidgetMedia         = "media"
	WidgetEditor        = "editor"
	WidgetMediaWidget   = "media_widget"
)

// DefaultWeatherBaseURL is the OpenWeatherMap 2.5 API root.
const DefaultWeatherBaseURL = "https://api.openweathermap.org/data/2.5"

// StatusBusConfig enables mirroring overlay updates to Redis pub/sub
type StatusBusConfig struct {
	RedisURL string `yaml:"redis_url"` // Empty disables the status bus
	Instance string `yaml:"instance"`  // Channel namespace, defaults to the host name
}

// Config represents the per-user vigil configuration file
type Config struct {
	BackgroundImage string  `yaml:"background_image"`
	DimLevel        float64 `yaml:"dim_level"` // 0 = no dim, 1 = black

	ShowMedia         bool   `yaml:"show_media"`
	ShowEditor        bool   `yaml:"show_editor"`
	EditorProjectPath string `yaml:"editor_project_path"` // Empty = most recent VSCodium workspace

	ShowWeather    bool   `yaml:"show_weather"`
	WeatherAPIKey  string `yaml:"weather_api_key"`
	WeatherCity    string `yaml:"weather_city"`
	WeatherBaseURL string `yaml:"weather_base_url"`

	// Time-of-day backgrounds
	TODEnabled      bool   `yaml:"tod_enabled"`
	TODMorningImage string `yaml:"tod_morning_image"`
	TODDayImage     string `yaml:"tod_day_image"`
	TODEveningImage string `yaml:"tod_evening_image"`
	TODNightImage   string `yaml:"tod_night_image"`

	LiveWallpaper        string  `yaml:"live_wallpaper"`
	LiveWallpaperEnabled bool    `yaml:"live_wallpaper_enabled"`
	LiveWallpaperVolume  float64 `yaml:"live_wallpaper_volume"`

	Language    string `yaml:"language"` // Interface language tag: "ru" or "en"
	FrostedBlur bool   `yaml:"frosted_blur"`

	ShowSysmon        bool `yaml:"show_sysmon"`
	ShowNotifications bool `yaml:"show_notifications"`

	ShowMediaWidget bool   `yaml:"show_media_widget"`
	MediaWidgetFile string `yaml:"media_widget_file"`

	WidgetLayout []string `yaml:"widget_layout"`

	AuthUser string `yaml:"auth_user"` // Account checked on unlock, defaults to $USER

	StatusBus StatusBusConfig `yaml:"status_bus"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		DimLevel:          0.45,
		ShowMedia:         true,
		ShowEditor:        true,
		ShowWeather:       true,
		WeatherCity:       "Moscow",
		WeatherBaseURL:    DefaultWeatherBaseURL,
		Language:          "ru",
		FrostedBlur:       true,
		ShowSysmon:        true,
		ShowNotifications: true,
		ShowMediaWidget:   true,
		WidgetLayout: []string{
			WidgetWeather, WidgetSysmon, WidgetNotifications,
			WidgetMedia, WidgetEditor, WidgetMediaWidget,
		},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/vigil/config.yml, falling back to
// ~/.config/vigil/config.yml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "vigil", "config.yml")
}

// Normalize clamps numeric ranges and fills empty fields that have defaults.
func (c *Config) Normalize() {
	c.DimLevel = clamp01(c.DimLevel)
	c.LiveWallpaperVolume = clamp01(c.LiveWallpaperVolume)

	if c.WeatherBaseURL == "" {
		c.WeatherBaseURL = DefaultWeatherBaseURL
	}
	if c.Language != "ru" && c.Language != "en" {
		c.Language = "ru"
	}
	if len(c.WidgetLayout) == 0 {
		c.WidgetLayout = Default().WidgetLayout
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Parse decodes a YAML document over the defaults. Fields missing from the
// document keep their default value and unknown fields are ignored.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	cfg.Normalize()
	return cfg, nil
}

// Load reads the configuration at path. A missing or malformed file yields
// the defaults; the problem is only logged at debug level.
func Load(path string) *Config {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[DEBUG] Config %s unreadable, using defaults: %v", path, err)
		}
		return Default()
	}

	cfg, err := Parse(data)
	if err != nil {
		log.Printf("[DEBUG] Config %s malformed, using defaults: %v", path, err)
		return Default()
	}

	return cfg
}

// Save writes the configuration as YAML, creating parent directories.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// WeatherConfigured reports whether the weather widget can make requests.
func (c *Config) WeatherConfigured() bool {
	return c.ShowWeather && c.WeatherAPIKey != "" && c.WeatherCity != ""
}
