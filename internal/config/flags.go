package config

import (
	"flag"
	"os"
	"time"

	"github.com/tama-audit/auditor/internal/flagx"
)

// parseFlags overlays cfg with command-line flags. The -c/-config flags are
// consumed by the JSON stage; everything else is parsed here.
func parseFlags(cfg *Config) {
	fs := flag.NewFlagSet("auditor", flag.ExitOnError)

	// swallow the config-file flags so they don't trip the parser
	var configFile string
	fs.StringVar(&configFile, "c", "", "path to JSON config file")
	fs.StringVar(&configFile, "config", "", "path to JSON config file")

	dbPath := fs.String("d", cfg.DatabasePath, "path to the local database file")
	cacheDir := fs.String("cache-dir", cfg.CacheDir, "resource cache root directory")
	origin := fs.String("o", cfg.OriginAddr, "application origin address")
	interval := fs.Duration("i", cfg.OnlineCheckInterval, "connectivity probe interval")
	timeout := fs.Duration("t", cfg.OnlineCheckTimeout, "connectivity probe timeout")

	allowed := []string{
		"-c", "-config", "--c", "--config",
		"-d", "--d", "-cache-dir", "--cache-dir",
		"-o", "--o", "-i", "--i", "-t", "--t",
	}
	_ = fs.Parse(flagx.FilterArgs(os.Args[1:], allowed))

	applyFlags(cfg, *dbPath, *cacheDir, *origin, *interval, *timeout)
}

func applyFlags(cfg *Config, dbPath, cacheDir, origin string, interval, timeout time.Duration) {
	cfg.DatabasePath = dbPath
	cfg.CacheDir = cacheDir
	cfg.OriginAddr = origin
	cfg.OnlineCheckInterval = interval
	cfg.OnlineCheckTimeout = timeout
}
