package config

import (
	"encoding/json"
	"os"

	"github.com/tama-audit/auditor/internal/flagx"
	"github.com/tama-audit/auditor/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations
// accept either strings like "3s" or integer nanoseconds via timex.Duration.
type JsonConfig struct {
	DatabasePath        string         `json:"database_path"`
	CacheDir            string         `json:"cache_dir"`
	OriginAddr          string         `json:"origin_addr"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	OnlineCheckTimeout  timex.Duration `json:"online_check_timeout"`
	CacheManifest       []string       `json:"cache_manifest"`
	TechnicianPassword  string         `json:"technician_password"`
}

// parseJson overlays cfg with values from the JSON file named by the
// -c/-config flags. No file flag, no overlay. Read or unmarshal errors
// panic; config must be valid if supplied.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	applyJson(cfg, &jc)
}

func applyJson(cfg *Config, jc *JsonConfig) {
	if jc.DatabasePath != "" {
		cfg.DatabasePath = jc.DatabasePath
	}
	if jc.CacheDir != "" {
		cfg.CacheDir = jc.CacheDir
	}
	if jc.OriginAddr != "" {
		cfg.OriginAddr = jc.OriginAddr
	}
	if jc.OnlineCheckInterval != 0 {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Std()
	}
	if jc.OnlineCheckTimeout != 0 {
		cfg.OnlineCheckTimeout = jc.OnlineCheckTimeout.Std()
	}
	if len(jc.CacheManifest) > 0 {
		cfg.CacheManifest = jc.CacheManifest
	}
	if jc.TechnicianPassword != "" {
		cfg.TechnicianPassword = jc.TechnicianPassword
	}
}
