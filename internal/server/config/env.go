package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable read by parseEnv.
const EnvPrefix = "CROPAUTH_"

// dotenvLoad is a seam for tests.
var dotenvLoad = func() error { return godotenv.Load() }

// parseEnv overlays CROPAUTH_* environment variables onto config. A .env
// file in the working directory is loaded first when present; variables
// already set in the process environment take precedence over it.
func parseEnv(config *Config) {
	// missing .env is fine
	_ = dotenvLoad()

	envString("HTTP_ADDR", &config.HTTPAddr)
	envString("GRPC_ADDR", &config.GRPCAddr)
	envString("DATABASE_DSN", &config.DatabaseDSN)
	envString("SECRET_KEY", &config.SecretKey)
	envDuration("TOKEN_VALIDITY", &config.TokenValidity)
	envDuration("SESSION_VALIDITY", &config.SessionValidity)
	envDuration("RESET_TOKEN_VALIDITY", &config.ResetTokenValidity)
	envInt("LOCKOUT_THRESHOLD", &config.LockoutThreshold)
	envDuration("LOCKOUT_DURATION", &config.LockoutDuration)
	envInt("BCRYPT_COST", &config.BcryptCost)
	envDuration("STORE_TIMEOUT", &config.StoreTimeout)
	envDuration("USER_CACHE_TTL", &config.UserCacheTTL)
	envDuration("SHARED_CACHE_TTL", &config.SharedCacheTTL)
	envString("LOG_LEVEL", &config.LogLevel)
	envString("LOG_FORMAT", &config.LogFormat)
}

func envString(name string, dst *string) {
	if v, ok := os.LookupEnv(EnvPrefix + name); ok && v != "" {
		*dst = v
	}
}

func envInt(name string, dst *int) {
	v, ok := os.LookupEnv(EnvPrefix + name)
	if !ok || v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		panic(fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
	}
	*dst = n
}

func envDuration(name string, dst *time.Duration) {
	v, ok := os.LookupEnv(EnvPrefix + name)
	if !ok || v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
	}
	*dst = d
}
