package main

import (
	"fmt"
	"log"

	"opendata-desktop/internal/cache"
	"opendata-desktop/internal/config"
)

// GetSettings returns the current user settings
func (a *App) GetSettings() *config.UserSettings {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.settings
}

// SaveSettings validates, persists, and applies new user settings
func (a *App) SaveSettings(settings *config.UserSettings) error {
	if settings == nil {
		return fmt.Errorf("settings cannot be nil")
	}
	if err := config.ValidateSettings(settings); err != nil {
		return err
	}
	if err := config.SaveSettings(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.settings = settings
	// Rebuild the catalog client so timeout, local-data mode, and cache
	// changes take effect on the next fetch
	a.client = a.newCatalogClient()

	log.Printf("Settings saved to: %s", config.GetSettingsPath())
	return nil
}

// GetSettingsPath returns the path of the settings file
func (a *App) GetSettingsPath() string {
	return config.GetSettingsPath()
}

// CacheStats reports catalog cache usage to the settings panel
type CacheStats struct {
	Enabled   bool   `json:"enabled"`
	Entries   int    `json:"entries"`
	SizeBytes int64  `json:"sizeBytes"`
	MaxBytes  int64  `json:"maxBytes"`
	Dir       string `json:"dir"`
}

// GetCacheStats returns catalog cache usage
func (a *App) GetCacheStats() CacheStats {
	a.mu.Lock()
	rc := a.resourceCache
	enabled := a.settings.CacheEnabled
	a.mu.Unlock()

	stats := CacheStats{Enabled: enabled && rc != nil, Dir: cache.GetCacheDir()}
	if rc != nil {
		stats.Entries, stats.SizeBytes, stats.MaxBytes = rc.Stats()
	}
	return stats
}

// ClearCache empties the catalog cache
func (a *App) ClearCache() error {
	a.mu.Lock()
	rc := a.resourceCache
	a.mu.Unlock()

	if rc == nil {
		return nil
	}
	if err := rc.Clear(); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	log.Printf("Catalog cache cleared")
	return nil
}
