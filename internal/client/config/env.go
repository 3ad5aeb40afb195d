package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

var dotenvLoad = func() error { return godotenv.Load() }

func parseEnv(cfg *Config) {
	_ = dotenvLoad()

	if v, ok := os.LookupEnv("CROPAUTH_SERVER_URL"); ok && v != "" {
		cfg.ServerURL = v
	}
	if v, ok := os.LookupEnv("CROPAUTH_TOKEN"); ok {
		cfg.Token = v
	}
	if v, ok := os.LookupEnv("CROPAUTH_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			panic(fmt.Errorf("CROPAUTH_TIMEOUT: %w", err))
		}
		cfg.Timeout = d
	}
}
