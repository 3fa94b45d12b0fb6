// Package config assembles runtime settings for the auditor client.
// Values are layered: defaults, then the optional JSON file, then
// command-line flags. Later sources take precedence.
package config

import "time"

// Config holds runtime settings for the auditor client.
type Config struct {
	// DatabasePath is the sqlite file holding users, settings and audit data.
	DatabasePath string
	// CacheDir is the root directory for resource-cache generations.
	CacheDir string
	// OriginAddr is the application origin; cached resources and the
	// connectivity probe resolve against it.
	OriginAddr string
	// OnlineCheckInterval is how often connectivity is probed.
	OnlineCheckInterval time.Duration
	// OnlineCheckTimeout bounds a single probe.
	OnlineCheckTimeout time.Duration
	// CacheManifest is the ordered list of resource URLs to pre-cache.
	CacheManifest []string
	// TechnicianPassword, when non-empty, provisions the technician
	// identity on first run. Never rotates an existing credential.
	TechnicianPassword string
}

// LoadDefaults populates c with sensible defaults. The manifest covers the
// entry document, its primary bundles and the icon/manifest assets.
func (c *Config) LoadDefaults() {
	c.DatabasePath = "auditor.db"
	c.CacheDir = "cache"
	c.OriginAddr = "http://127.0.0.1:8080"
	c.OnlineCheckInterval = 3 * time.Second
	c.OnlineCheckTimeout = 3 * time.Second
	c.CacheManifest = []string{
		"/",
		"/manifest.json",
		"/egg-logo.svg",
		"/icon-192.png",
		"/icon-512.png",
		"/static/app/layout.js",
		"/static/app/page.js",
		"/static/app/layout.css",
	}
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from JSON (if present) and command-line flags (if present).
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
