// Package config loads runtime configuration for the cropauth CLI.
//
// Sources, later ones win:
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. CROPAUTH_SERVER_URL, CROPAUTH_TOKEN and CROPAUTH_TIMEOUT, after an
//     optional .env file is loaded.
//  3. Optional JSON file selected with -c or -config.
//  4. Flags -a (server URL), -token and -timeout (seconds).
//
// JSON example:
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "timeout": "10s"
//	}
package config

import (
	"os"
	"time"
)

type Config struct {
	ServerURL string
	Token     string
	Timeout   time.Duration
}

func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.Timeout = 10 * time.Second
}

// LoadConfig builds a Config from defaults, environment, JSON file and
// flags. Invalid input panics.
func LoadConfig() *Config {
	return load(os.Args[1:])
}

func load(args []string) *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseJson(cfg, args)
	parseFlags(cfg, args)
	return cfg
}
