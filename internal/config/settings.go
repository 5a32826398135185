package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// UserSettings represents persistent user preferences
type UserSettings struct {
	// Download settings
	DownloadPath    string `json:"downloadPath"`
	LastDownloadDir string `json:"lastDownloadDir"`

	// Default filters
	DefaultMaxCloudCover int `json:"defaultMaxCloudCover"`

	// Data source
	UseLocalData  bool   `json:"useLocalData"`
	LocalDataPath string `json:"localDataPath"`

	// Catalog cache
	CacheEnabled   bool `json:"cacheEnabled"`
	CacheMaxSizeMB int  `json:"cacheMaxSizeMB"`
	CacheTTLDays   int  `json:"cacheTTLDays"`

	// Display
	FootprintOpacity  int    `json:"footprintOpacity"` // 0-100
	AutoZoom          bool   `json:"autoZoom"`
	GroupLayersByName bool   `json:"groupLayersByName"`
	DefaultProduct    string `json:"defaultProduct"` // "visual", "ms_analytic", "pan_analytic"
	ShowLabels        bool   `json:"showLabels"`

	// Network
	RequestTimeoutSec int `json:"requestTimeoutSec"`

	// Debug
	Debug        bool `json:"debug"`
	ShowAssetURL bool `json:"showAssetUrl"`
}

// DefaultSettings returns default user settings
func DefaultSettings() *UserSettings {
	homeDir, _ := os.UserHomeDir()
	downloadPath := filepath.Join(homeDir, "Downloads", "maxar-open-data")

	return &UserSettings{
		DownloadPath:         downloadPath,
		DefaultMaxCloudCover: 100,
		UseLocalData:         false,
		CacheEnabled:         true,
		CacheMaxSizeMB:       250,
		CacheTTLDays:         30,
		FootprintOpacity:     50,
		AutoZoom:             true,
		GroupLayersByName:    true,
		DefaultProduct:       "visual",
		ShowLabels:           false,
		RequestTimeoutSec:    30,
	}
}

// GetSettingsPath returns the OS-specific settings file path
func GetSettingsPath() string {
	homeDir, _ := os.UserHomeDir()

	baseDir := filepath.Join(homeDir, ".maxar-open-data", "desktop", "settings")

	// Ensure directory exists
	os.MkdirAll(baseDir, 0755)

	return filepath.Join(baseDir, "settings.json")
}

// LoadSettings loads user settings from disk
func LoadSettings() (*UserSettings, error) {
	return loadSettingsFrom(GetSettingsPath())
}

// loadSettingsFrom reads settings from an explicit path
func loadSettingsFrom(settingsPath string) (*UserSettings, error) {
	// If file doesn't exist, return defaults
	if _, err := os.Stat(settingsPath); os.IsNotExist(err) {
		return DefaultSettings(), nil
	}

	data, err := os.ReadFile(settingsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	// Unmarshal over the defaults: fields present in the file win, missing
	// fields keep their default. A saved 0 (e.g. max cloud cover) stays 0.
	settings := DefaultSettings()
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}

	return settings, nil
}

// SaveSettings saves user settings to disk
func SaveSettings(settings *UserSettings) error {
	return saveSettingsTo(GetSettingsPath(), settings)
}

// saveSettingsTo writes settings to an explicit path
func saveSettingsTo(settingsPath string, settings *UserSettings) error {
	dir := filepath.Dir(settingsPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if err := os.WriteFile(settingsPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}

	return nil
}

// ValidateSettings checks settings values before they are applied
func ValidateSettings(settings *UserSettings) error {
	if settings.DownloadPath == "" {
		return fmt.Errorf("download path cannot be empty")
	}
	if settings.DefaultMaxCloudCover < 0 || settings.DefaultMaxCloudCover > 100 {
		return fmt.Errorf("max cloud cover must be within [0, 100]")
	}
	if settings.FootprintOpacity < 0 || settings.FootprintOpacity > 100 {
		return fmt.Errorf("footprint opacity must be within [0, 100]")
	}
	if settings.RequestTimeoutSec < 5 || settings.RequestTimeoutSec > 120 {
		return fmt.Errorf("request timeout must be within [5, 120] seconds")
	}
	if settings.CacheMaxSizeMB <= 0 {
		return fmt.Errorf("cache size must be positive")
	}
	if settings.CacheTTLDays <= 0 {
		return fmt.Errorf("cache TTL must be positive")
	}
	if settings.UseLocalData && settings.LocalDataPath == "" {
		return fmt.Errorf("local data path is required when local data is enabled")
	}
	switch settings.DefaultProduct {
	case "visual", "ms_analytic", "pan_analytic":
	default:
		return fmt.Errorf("invalid default product: %s", settings.DefaultProduct)
	}
	return nil
}
